package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"travel_inventory/internal/domain"
	"travel_inventory/internal/shared"
	"travel_inventory/internal/storage/memory"
	mysqlrepo "travel_inventory/internal/storage/mysql"
	pgrepo "travel_inventory/internal/storage/postgres"
)

// Store is everything one backend provides: the ledger, bookings and the catalog replica.
type Store interface {
	domain.Ledger
	domain.BookingRepository
	domain.CatalogRepository
}

// Open connects the backend named by cfg.LedgerDriver. The returned func releases it.
func Open(ctx context.Context, cfg shared.Config) (Store, func(), error) {
	switch cfg.LedgerDriver {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("mysql ping: %w", err)
		}
		log.Info().Msg("mysql connection ok")
		return mysqlrepo.New(db), func() { _ = db.Close() }, nil

	case "postgres":
		pool, err := pgrepo.NewPool(ctx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("postgres connection ok")
		return pgrepo.New(pool), pool.Close, nil

	case "memory":
		log.Warn().Msg("using the in-memory ledger; state is lost on restart")
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown LEDGER_DRIVER %q", cfg.LedgerDriver)
}
