package shared

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"LEDGER_DRIVER", "CACHE_TTL_SECONDS", "SYNC_LISTING_IDS", "FILTER_WORKERS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.LedgerDriver != "mysql" {
		t.Fatalf("driver = %q", c.LedgerDriver)
	}
	if c.CacheTTL != 900*time.Second {
		t.Fatalf("ttl = %v", c.CacheTTL)
	}
	if c.FilterWorker != 8 || len(c.ListingIDs) != 0 {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "Postgres")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("FILTER_WORKERS", "not-a-number")
	t.Setenv("SYNC_LISTING_IDS", "10, 20,x,-3,,30")

	c := Load()
	if c.LedgerDriver != "postgres" {
		t.Fatalf("driver = %q", c.LedgerDriver)
	}
	if c.CacheTTL != time.Minute {
		t.Fatalf("ttl = %v", c.CacheTTL)
	}
	if c.FilterWorker != 8 {
		t.Fatalf("bad numeric value should fall back, got %d", c.FilterWorker)
	}
	want := []int64{10, 20, 30}
	if len(c.ListingIDs) != len(want) {
		t.Fatalf("ids = %v", c.ListingIDs)
	}
	for i := range want {
		if c.ListingIDs[i] != want[i] {
			t.Fatalf("ids = %v", c.ListingIDs)
		}
	}
}
