package documents

import (
	"context"
	"io"

	"doc_builder_app_go/services/i18n"

	"github.com/a-h/templ"
)

// Document renders view as a standalone HTML document with one sheet per
// entry of pages. A nil or empty pages renders a single empty sheet. Labels
// are printed in the document's language.
func Document(view DocumentView, templateID string, pages [][]ItemView, sheet Sheet, paginated bool) templ.Component {
	_, render := Lookup(templateID, view.Category)
	if len(pages) == 0 {
		pages = [][]ItemView{{}}
	}

	sheets := make([]templ.Component, len(pages))
	for i, items := range pages {
		sheets[i] = render(PageProps{
			Document:   view,
			Items:      items,
			PageIndex:  i,
			TotalPages: len(pages),
			Style:      view.Style,
		})
	}

	title := view.Title
	if view.Number != "" {
		title += " " + view.Number
	}
	shell := Shell(ShellProps{
		Title:     title,
		Language:  view.Language,
		Style:     view.Style,
		Sheet:     sheet,
		Paginated: paginated,
	}, sheets)
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return shell.Render(i18n.WithLocale(ctx, view.Language), w)
	})
}
