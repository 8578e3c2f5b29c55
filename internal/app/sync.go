package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"travel_inventory/internal/domain"
)

// SyncService replicates listings and rooms from the content system into the local catalog.
type SyncService struct {
	content domain.ContentClient
	repo    domain.CatalogRepository
	catalog *CatalogService
}

func NewSyncService(c domain.ContentClient, r domain.CatalogRepository, cat *CatalogService) *SyncService {
	return &SyncService{content: c, repo: r, catalog: cat}
}

// SyncListing upserts the listing first, then its rooms. A listing the content system
// no longer knows is a miss: cached entries are evicted and nil is returned.
func (s *SyncService) SyncListing(ctx context.Context, id int64) error {
	p, err := s.content.GetListing(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		log.Info().Int64("listing_id", id).Msg("listing not found upstream")
		s.evict(ctx, id, nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch listing %d: %w", id, err)
	}

	// parent first to satisfy the rooms FK
	if err := s.repo.UpsertListing(ctx, mapListing(id, p)); err != nil {
		return fmt.Errorf("upsert listing %d: %w", id, err)
	}

	raw, err := s.content.GetRooms(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		raw = nil
	case err != nil:
		return fmt.Errorf("fetch rooms of %d: %w", id, err)
	}

	rooms := mapRooms(id, raw)
	ids := make([]int64, 0, len(rooms))
	for _, r := range rooms {
		if err := s.repo.UpsertRoom(ctx, r); err != nil {
			return fmt.Errorf("upsert room %d: %w", r.ID, err)
		}
		ids = append(ids, r.ID)
	}
	s.evict(ctx, id, ids)
	return nil
}

func (s *SyncService) evict(ctx context.Context, listingID int64, roomIDs []int64) {
	if s.catalog != nil {
		s.catalog.Invalidate(ctx, listingID, roomIDs...)
	}
}
