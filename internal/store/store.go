package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roadsafety-cli/internal/config"
	"github.com/sells-group/roadsafety-cli/internal/model"
)

// ErrNotFound is returned when a report id does not exist.
var ErrNotFound = eris.New("store: report not found")

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	Filename string `json:"filename,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Archive keeps finished estimates. Nothing reads them back into a pipeline
// run; they are for later inspection only.
type Archive interface {
	SaveReport(ctx context.Context, r model.Report) error
	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 50

// Open connects the archive named by cfg and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Archive, error) {
	var (
		a   Archive
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		a, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		a, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := a.Migrate(ctx); err != nil {
		a.Close() //nolint:errcheck
		return nil, err
	}
	return a, nil
}
