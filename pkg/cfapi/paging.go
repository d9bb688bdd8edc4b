package cfapi

import (
	"context"
	"fmt"
)

// FirstPage is the index of the first page. Both the platform API and the
// scheduler service paginate from 1.
const FirstPage = 1

// Pagination describes the position of one page within a listing.
type Pagination struct {
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Pagination Pagination `json:"pagination"`
	Resources  []T        `json:"resources"`
}

// PageFunc fetches one page of a listing by 1-based index.
type PageFunc[T any] func(ctx context.Context, page int) (*Page[T], error)

// DrainPages walks every page of a listing, starting at FirstPage, and
// returns the union of all resources. Downstream processing must never see
// a partially drained listing, so any page error aborts the whole drain.
func DrainPages[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var all []T
	for page := FirstPage; ; page++ {
		p, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("draining page %d: %w", page, err)
		}
		if p == nil {
			return nil, fmt.Errorf("draining page %d: empty response", page)
		}
		all = append(all, p.Resources...)
		if page >= p.Pagination.TotalPages {
			return all, nil
		}
	}
}
