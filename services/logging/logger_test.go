package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewReplacesGlobals(t *testing.T) {
	orig := zap.L()
	defer zap.ReplaceGlobals(orig)

	log, err := New("production")
	require.NoError(t, err)
	assert.Same(t, log, zap.L())
	assert.False(t, log.Core().Enabled(zap.DebugLevel))

	dev, err := New("development")
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("abc"))
	assert.Equal(t, "******7890", MaskSecret("re_4567890"))
}
