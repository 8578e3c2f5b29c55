package app

import (
	"context"
	"fmt"
	"time"

	"travel_inventory/internal/domain"
)

// CatalogService is a read-through cache over the catalog replica. It satisfies domain.Catalog,
// so the matcher, the filter and the calendar all read rooms through it.
type CatalogService struct {
	repo     domain.Catalog
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewCatalogService(r domain.Catalog, c domain.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{repo: r, cache: c, cacheTTL: ttl}
}

func listingKey(id int64) string      { return fmt.Sprintf("listing:%d", id) }
func listingRoomsKey(id int64) string { return fmt.Sprintf("listing:%d:rooms", id) }
func roomKey(id int64) string         { return fmt.Sprintf("room:%d", id) }

func (s *CatalogService) GetListing(ctx context.Context, id int64) (domain.Listing, error) {
	var l domain.Listing
	if s.hit(ctx, listingKey(id), &l) {
		return l, nil
	}
	l, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return domain.Listing{}, err
	}
	s.put(ctx, listingKey(id), l)
	return l, nil
}

func (s *CatalogService) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	var r domain.Room
	if s.hit(ctx, roomKey(id), &r) {
		return r, nil
	}
	r, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	s.put(ctx, roomKey(id), r)
	return r, nil
}

func (s *CatalogService) ListRooms(ctx context.Context, listingID int64) ([]domain.Room, error) {
	var rs []domain.Room
	if s.hit(ctx, listingRoomsKey(listingID), &rs) {
		return rs, nil
	}
	rs, err := s.repo.ListRooms(ctx, listingID)
	if err != nil {
		return nil, err
	}
	// copy so callers cannot mutate what the repo handed back
	out := make([]domain.Room, len(rs))
	copy(out, rs)
	s.put(ctx, listingRoomsKey(listingID), out)
	return out, nil
}

// Invalidate evicts a listing and the given rooms after a catalog sync.
func (s *CatalogService) Invalidate(ctx context.Context, listingID int64, roomIDs ...int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, listingKey(listingID))
	_ = s.cache.Del(ctx, listingRoomsKey(listingID))
	for _, id := range roomIDs {
		_ = s.cache.Del(ctx, roomKey(id))
	}
}

func (s *CatalogService) hit(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, _ := s.cache.Get(ctx, key, dst)
	return ok
}

func (s *CatalogService) put(ctx context.Context, key string, v any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
}
