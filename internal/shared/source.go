package shared

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"review_insights/internal/adapters/reviewsapi"
	"review_insights/internal/domain"
	mysqlrepo "review_insights/internal/storage/mysql"
)

// OpenSource builds the configured ReviewSource. The returned func releases
// whatever the source holds open.
func OpenSource(ctx context.Context, cfg Config) (domain.ReviewSource, func(), error) {
	switch cfg.ReviewSource {
	case "", "http":
		log.Info().Str("base", cfg.ReviewsAPIURL).Msg("using reviews API source")
		return reviewsapi.New(cfg.ReviewsAPIURL, cfg.FetchRPS, cfg.FetchTimeout), func() {}, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Str("table", cfg.ReviewsTable).Msg("database connection ok")
		repo, err := mysqlrepo.New(db, cfg.ReviewsTable)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown review source %q", cfg.ReviewSource)
}
