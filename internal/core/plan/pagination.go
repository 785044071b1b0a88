package plan

import (
	"fmt"

	"github.com/defbuild/defbuild/internal/core/registry"
)

// =============================================================================
// Pagination
// =============================================================================

// Paginate splits build groups across exactly pageTotal pages. With more
// groups than pages, the excess groups fold into the last page; with fewer,
// trailing empty pages pad the count. No group is ever dropped: the items
// across all pages always equal the items across the input groups.
func Paginate(groups []Group, pageTotal int) ([]Page, error) {
	if pageTotal < 1 {
		return nil, NewPlanError("paginate", "",
			fmt.Sprintf("requested %d pages", pageTotal), ErrBadPageTotal)
	}

	pages := make([]Page, 0, pageTotal)
	for _, g := range groups {
		pages = append(pages, Page{g})
	}

	if len(pages) > pageTotal {
		last := pages[pageTotal-1]
		for _, extra := range pages[pageTotal:] {
			last = append(last, extra...)
		}
		pages = pages[:pageTotal-1]
		pages = append(pages, last)
	}
	for len(pages) < pageTotal {
		pages = append(pages, Page{})
	}
	return pages, nil
}

// PageAt returns the 1-based page from a paginated plan. An out-of-range
// page is an explicit error, never a silent crash.
func PageAt(pages []Page, page int) (Page, error) {
	if page < 1 || page > len(pages) {
		return nil, NewPlanError("select page", "",
			fmt.Sprintf("page %d of %d", page, len(pages)), ErrPageOutOfRange)
	}
	return pages[page-1], nil
}

// Build computes the full ordered plan and returns the requested page.
func Build(reg *registry.Registry, page, pageTotal int, exclude []string) (Page, error) {
	groups, err := Order(reg, exclude)
	if err != nil {
		return nil, err
	}
	pages, err := Paginate(groups, pageTotal)
	if err != nil {
		return nil, err
	}
	return PageAt(pages, page)
}
