// Package store persists run records and run outputs.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/popframe/internal/config"
	"github.com/sells-group/popframe/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for engine runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.RunKind, params any) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, msg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Outputs
	SaveAgglomerations(ctx context.Context, runID string, aggs []model.Agglomeration) error
	SaveMemberships(ctx context.Context, runID string, members []model.Membership) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store selected by cfg and migrates it. The "none"
// driver yields a nil Store.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "none", "":
		return nil, nil
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

const defaultListLimit = 100

func marshalParams(params any) ([]byte, error) {
	if params == nil {
		return []byte("{}"), nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal params")
	}
	return b, nil
}

// agglomerationRow flattens an agglomeration into
// run_id, name, core_cities, type, population, level, geom.
func agglomerationRow(runID string, a model.Agglomeration) ([]any, error) {
	cores, err := json.Marshal(a.CoreCities)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal core cities")
	}
	var geomWKB []byte
	if a.Geometry != nil {
		if geomWKB, err = wkb.Marshal(a.Geometry, wkb.NDR); err != nil {
			return nil, eris.Wrapf(err, "store: encode geometry of %s", a.Name)
		}
	}
	return []any{runID, a.Name, string(cores), string(a.Type), a.Population, a.Level, geomWKB}, nil
}

var agglomerationColumns = []string{"run_id", "name", "core_cities", "type", "population", "level", "geom"}

var membershipColumns = []string{"run_id", "settlement_id", "name", "status", "agglomeration", "level"}

func membershipRow(runID string, m model.Membership) []any {
	return []any{runID, m.SettlementID, m.Name, string(m.Status), m.Agglomeration, m.Level}
}
