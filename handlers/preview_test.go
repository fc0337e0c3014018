package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"doc_builder_app_go/services/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewHandler(t *testing.T) {
	database := setupTestDB(t)
	preview := setupPreview(t)
	doc := createTestDocument(t, database, 8)

	t.Run("Interactive shows one sheet", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/documents/"+doc.ID+"/preview", nil)
		c.SetParamNames("id")
		c.SetParamValues(doc.ID)
		c.Set(ContextKeyPreview, preview)

		require.NoError(t, PreviewHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Equal(t, "1", rec.Header().Get("X-Page-Count"))
		assert.Equal(t, 1, strings.Count(rec.Body.String(), "data-page-index="))
	})

	t.Run("Print paginates", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/documents/"+doc.ID+"/preview?mode=print", nil)
		c.SetParamNames("id")
		c.SetParamValues(doc.ID)
		c.Set(ContextKeyPreview, preview)

		require.NoError(t, PreviewHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "paginated", rec.Header().Get("X-Pagination-State"))
		assert.Equal(t, "2", rec.Header().Get("X-Page-Count"))
		assert.Contains(t, rec.Body.String(), "Page 2 of 2")
	})

	t.Run("No preview service", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodGet, "/documents/"+doc.ID+"/preview", nil)
		c.SetParamNames("id")
		c.SetParamValues(doc.ID)
		assert.Error(t, PreviewHandler(c))
	})
}

func TestPaginationHandler(t *testing.T) {
	database := setupTestDB(t)
	preview := setupPreview(t)
	doc := createTestDocument(t, database, 7)

	t.Run("Waits for the outcome", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/documents/"+doc.ID+"/pagination", nil)
		c.SetParamNames("id")
		c.SetParamValues(doc.ID)
		c.Set(ContextKeyPreview, preview)

		require.NoError(t, PaginationHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			State      string `json:"state"`
			TotalPages int    `json:"total_pages"`
			Fallback   bool   `json:"fallback"`
			Pages      []struct {
				Index   int      `json:"index"`
				ItemIDs []string `json:"item_ids"`
			} `json:"pages"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "paginated", resp.State)
		assert.False(t, resp.Fallback)
		require.Equal(t, 2, resp.TotalPages)
		require.Len(t, resp.Pages, 2)
		assert.Len(t, resp.Pages[0].ItemIDs, 5)
		assert.Equal(t, doc.Items[0].ID, resp.Pages[0].ItemIDs[0])
		assert.Equal(t, doc.Items[6].ID, resp.Pages[1].ItemIDs[1])
	})

	t.Run("No wait on fresh content", func(t *testing.T) {
		fresh := createTestDocument(t, database, 2)
		_, c, rec := setupEcho(http.MethodGet, "/api/documents/"+fresh.ID+"/pagination?wait=false", nil)
		c.SetParamNames("id")
		c.SetParamValues(fresh.ID)
		c.Set(ContextKeyPreview, preview)

		require.NoError(t, PaginationHandler(c))
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"state":"stale"`)

		assert.Eventually(t, func() bool {
			return preview.State(fresh.ID) == pagination.StatePaginated
		}, time.Second, 5*time.Millisecond)

		_, c, rec = setupEcho(http.MethodGet, "/api/documents/"+fresh.ID+"/pagination?wait=false", nil)
		c.SetParamNames("id")
		c.SetParamValues(fresh.ID)
		c.Set(ContextKeyPreview, preview)
		require.NoError(t, PaginationHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total_pages":1`)
	})
}
