package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"travel_inventory/internal/domain"
)

// ListingFilter keeps listings with at least one room sellable for the whole stay.
type ListingFilter struct {
	catalog domain.Catalog
	matcher *Matcher
	workers int
}

func NewListingFilter(c domain.Catalog, m *Matcher, workers int) *ListingFilter {
	if workers <= 0 {
		workers = 8
	}
	return &ListingFilter{catalog: c, matcher: m, workers: workers}
}

// IsAvailable is OR across rooms. A listing without rooms is never available for dated searches.
func (f *ListingFilter) IsAvailable(ctx context.Context, listingID int64, r domain.DateRange) (bool, error) {
	rooms, err := f.catalog.ListRooms(ctx, listingID)
	if err != nil {
		return false, err
	}
	for _, room := range rooms {
		q, err := f.matcher.Match(ctx, room.ID, r)
		if err != nil {
			return false, err
		}
		if q.Bookable {
			return true, nil
		}
	}
	return false, nil
}

// Filter returns the bookable subset of ids in input order.
// A nil range bypasses the matcher entirely.
func (f *ListingFilter) Filter(ctx context.Context, ids []int64, r *domain.DateRange) ([]int64, error) {
	if r == nil {
		return ids, nil
	}
	keep := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, id := range ids {
		g.Go(func() error {
			ok, err := f.IsAvailable(gctx, id, *r)
			if err != nil {
				return err
			}
			keep[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(ids))
	for i, id := range ids {
		if keep[i] {
			out = append(out, id)
		}
	}
	return out, nil
}
