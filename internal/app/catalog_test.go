package app_test

import (
	"context"
	"testing"
	"time"

	"travel_inventory/internal/app"
	"travel_inventory/internal/domain"
)

// ---- fakes ----

type fakeCatalog struct {
	listing domain.Listing
	room    domain.Room
	rooms   []domain.Room
	reads   int
}

func (f *fakeCatalog) GetListing(ctx context.Context, id int64) (domain.Listing, error) {
	f.reads++
	if id != f.listing.ID {
		return domain.Listing{}, domain.ErrNotFound
	}
	return f.listing, nil
}

func (f *fakeCatalog) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	f.reads++
	return f.room, nil
}

func (f *fakeCatalog) ListRooms(ctx context.Context, listingID int64) ([]domain.Room, error) {
	f.reads++
	return f.rooms, nil
}

// ---- tests ----

func TestGetRoom_CacheMissThenHit(t *testing.T) {
	repo := &fakeCatalog{room: domain.Room{ID: 42, ListingID: 7, Name: "Garden Suite", TotalUnits: 2}}
	cache := &fakeCache{}
	c := app.NewCatalogService(repo, cache, 10*time.Minute)

	r, err := c.GetRoom(context.Background(), 42)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if r.ID != 42 || r.Name != "Garden Suite" {
		t.Fatalf("unexpected room: %+v", r)
	}

	// the second read must come from cache
	repo.room.Name = "SHOULD NOT SEE THIS"

	r2, err := c.GetRoom(context.Background(), 42)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if r2.Name != "Garden Suite" {
		t.Fatalf("expected cached name, got %s", r2.Name)
	}
	if repo.reads != 1 {
		t.Fatalf("expected 1 repo read, got %d", repo.reads)
	}
}

func TestListRooms_CopiesAndCaches(t *testing.T) {
	repo := &fakeCatalog{rooms: []domain.Room{{ID: 1, ListingID: 7, Name: "Twin"}}}
	cache := &fakeCache{}
	c := app.NewCatalogService(repo, cache, 10*time.Minute)

	out, err := c.ListRooms(context.Background(), 7)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 1 || out[0].Name != "Twin" {
		t.Fatalf("unexpected rooms: %+v", out)
	}

	repo.rooms[0].Name = "Changed"
	out2, _ := c.ListRooms(context.Background(), 7)
	if out2[0].Name != "Twin" {
		t.Fatalf("expected cached Twin, got %s", out2[0].Name)
	}
}

func TestInvalidate_EvictsListingAndRooms(t *testing.T) {
	repo := &fakeCatalog{listing: domain.Listing{ID: 7, Currency: "EUR"}}
	cache := &fakeCache{}
	c := app.NewCatalogService(repo, cache, time.Minute)

	if _, err := c.GetListing(context.Background(), 7); err != nil {
		t.Fatalf("err: %v", err)
	}
	c.Invalidate(context.Background(), 7, 1, 2)

	want := []string{"listing:7", "listing:7:rooms", "room:1", "room:2"}
	if len(cache.dels) != len(want) {
		t.Fatalf("dels = %v", cache.dels)
	}
	for i := range want {
		if cache.dels[i] != want[i] {
			t.Fatalf("dels[%d] = %s, want %s", i, cache.dels[i], want[i])
		}
	}
	if _, err := c.GetListing(context.Background(), 7); err != nil {
		t.Fatalf("err: %v", err)
	}
	if repo.reads != 2 {
		t.Fatalf("expected a repo read after invalidation, got %d reads", repo.reads)
	}
}

func TestCatalog_NilCacheReadsThrough(t *testing.T) {
	repo := &fakeCatalog{listing: domain.Listing{ID: 3}}
	c := app.NewCatalogService(repo, nil, time.Minute)
	for i := 0; i < 2; i++ {
		if _, err := c.GetListing(context.Background(), 3); err != nil {
			t.Fatalf("err: %v", err)
		}
	}
	if repo.reads != 2 {
		t.Fatalf("expected 2 reads, got %d", repo.reads)
	}
}
