package pagination

// Layout holds the fixed print geometry, in CSS pixels.
type Layout struct {
	PageHeight  float64
	PagePadding float64
}

// DefaultLayout is an A4 sheet at 96 dpi with a one inch total vertical padding.
func DefaultLayout() Layout {
	return Layout{PageHeight: 1123, PagePadding: 96}
}

// AvailableHeight is the content height of a single printed page.
func (l Layout) AvailableHeight() float64 {
	return l.PageHeight - l.PagePadding
}

// Pack splits items into pages with a greedy first-fit pass. Items are never
// reordered or split. An item that does not fit on an empty page is still
// placed alone on that page. A page opened on overflow starts with the
// repeated page and table headers charged. h.RowHeights must be aligned with items.
func Pack[T any](availableHeight float64, h MeasuredHeights, items []T) [][]T {
	if len(items) == 0 {
		return [][]T{{}}
	}

	var (
		pages       [][]T
		current     []T
		accumulated float64
	)
	firstPage := true

	for i, item := range items {
		row := h.RowHeights[i]

		headerCost := 0.0
		if len(current) == 0 {
			if firstPage {
				headerCost = h.FirstPageHeaderHeight + h.TableHeaderHeight
			} else {
				headerCost = h.SubsequentPageHeaderHeight + h.TableHeaderHeight
			}
		}

		footerCost := 0.0
		if i == len(items)-1 {
			footerCost = h.FooterHeight
		}

		if len(current) > 0 && accumulated+headerCost+row+footerCost > availableHeight {
			pages = append(pages, current)
			firstPage = false
			current = []T{item}
			accumulated = h.SubsequentPageHeaderHeight + h.TableHeaderHeight + row
			continue
		}

		current = append(current, item)
		accumulated += headerCost + row
	}

	if len(current) > 0 {
		pages = append(pages, current)
	}
	return pages
}

// Result is the partition produced for one content version.
type Result[T any] struct {
	Pages    [][]T
	Fallback bool
	Heights  *MeasuredHeights
	Reason   string
}

// Paginate runs the packer when the measurement succeeded and degrades to a
// single page holding every item otherwise. It never fails.
func Paginate[T any](layout Layout, heights MeasuredHeights, measureErr error, items []T) Result[T] {
	if len(items) == 0 {
		return Result[T]{Pages: [][]T{{}}, Fallback: measureErr != nil}
	}
	if measureErr != nil {
		return Result[T]{Pages: [][]T{items}, Fallback: true, Reason: measureErr.Error()}
	}
	if err := heights.Validate(len(items)); err != nil {
		return Result[T]{Pages: [][]T{items}, Fallback: true, Reason: err.Error()}
	}

	return Result[T]{
		Pages:   Pack(layout.AvailableHeight(), heights, items),
		Heights: &heights,
	}
}
