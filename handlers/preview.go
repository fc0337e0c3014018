package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"doc_builder_app_go/models"
	"doc_builder_app_go/services"
	"doc_builder_app_go/services/pagination"

	"github.com/labstack/echo/v4"
)

// PreviewHandler renders the HTML preview. ?mode=print paginates first.
func PreviewHandler(c echo.Context) error {
	preview, err := getPreview(c)
	if err != nil {
		return err
	}
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}

	mode := services.ModeInteractive
	if c.QueryParam("mode") == services.ModePrint {
		mode = services.ModePrint
	}

	// Buffer so a render error can still produce a clean error response
	var buf bytes.Buffer
	out, err := preview.RenderPreview(c.Request().Context(), &buf, doc, mode)
	if err != nil {
		return serviceError(c, err)
	}

	h := c.Response().Header()
	h.Set("X-Pagination-State", out.State.String())
	h.Set("X-Page-Count", strconv.Itoa(out.TotalPages()))
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// PageResponse lists the line items printed on one page
type PageResponse struct {
	Index   int      `json:"index"`
	ItemIDs []string `json:"item_ids"`
}

// PaginationResponse is the JSON view of a pagination outcome
type PaginationResponse struct {
	DocumentID string                      `json:"document_id"`
	State      pagination.State            `json:"state"`
	Key        string                      `json:"key,omitempty"`
	TotalPages int                         `json:"total_pages"`
	Fallback   bool                        `json:"fallback"`
	Reason     string                      `json:"reason,omitempty"`
	Pages      []PageResponse              `json:"pages"`
	Heights    *pagination.MeasuredHeights `json:"heights,omitempty"`
}

func newPaginationResponse(doc *models.Document, out pagination.Outcome) PaginationResponse {
	resp := PaginationResponse{
		DocumentID: doc.ID,
		State:      out.State,
		Key:        out.Key,
		TotalPages: out.TotalPages(),
		Fallback:   out.State == pagination.StateFallback,
		Reason:     out.Reason,
		Pages:      make([]PageResponse, 0, len(out.Pages)),
		Heights:    out.Heights,
	}
	for i, page := range pagination.Split(doc.Items, out.Pages) {
		ids := make([]string, len(page))
		for j, item := range page {
			ids[j] = item.ID
		}
		resp.Pages = append(resp.Pages, PageResponse{Index: i, ItemIDs: ids})
	}
	return resp
}

// PaginationHandler returns the print pagination of a document. By default
// it waits for measurement; ?wait=false reports the current state instead.
func PaginationHandler(c echo.Context) error {
	preview, err := getPreview(c)
	if err != nil {
		return err
	}
	doc, err := loadDocument(c)
	if err != nil {
		return err
	}

	if c.QueryParam("wait") == "false" {
		if out, ok := preview.Current(doc); ok {
			return c.JSON(http.StatusOK, newPaginationResponse(doc, out))
		}
		preview.Touch(doc)
		return c.JSON(http.StatusAccepted, PaginationResponse{
			DocumentID: doc.ID,
			State:      preview.State(doc.ID),
			Pages:      []PageResponse{},
		})
	}

	out, err := preview.Paginate(c.Request().Context(), doc)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, newPaginationResponse(doc, out))
}
