package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentJSON(items int) string {
	var rows []string
	for i := 0; i < items; i++ {
		rows = append(rows, fmt.Sprintf(`{"id":"item-%d","name":"Item %d","quantity":1,"unit_price":10}`, i, i))
	}
	return `{"kind":"invoice","number":"INV-1","business":{"name":"Acme"},"client":{"name":"Jane"},"items":[` +
		strings.Join(rows, ",") + `]}`
}

func TestRunFromStdin(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), nil, strings.NewReader(documentJSON(80)), &out))

	var result output
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "paginated", result.State.String())
	assert.Greater(t, result.TotalPages, 1)
	assert.Len(t, result.Pages, result.TotalPages)
	assert.Equal(t, "item-0", result.Pages[0].ItemIDs[0])

	total := 0
	for _, p := range result.Pages {
		total += len(p.Items)
	}
	assert.Equal(t, 80, total)
}

func TestRunFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(documentJSON(2)), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-width", "600", path}, nil, &out))
	assert.Contains(t, out.String(), `"total_pages": 1`)
}

func TestRunErrors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(context.Background(), nil, strings.NewReader("{"), &out))
	assert.Error(t, run(context.Background(), []string{"-engine", "gpu"}, strings.NewReader(documentJSON(1)), &out))
	assert.Error(t, run(context.Background(), []string{"/does/not/exist.json"}, nil, &out))
}
