// Package layer persists raw layer rows as hash documents. The rows carry
// arbitrary Unicode attribute names, so the FT index covers only the
// synthetic __id field; the attribute table is rebuilt in memory at startup.
package layer

import (
	"context"
	"fmt"

	"github.com/caspianlab/georag/internal/db"
)

// IDField is the synthetic identity field added to every layer document.
const IDField = "__id"

// store is the consumer interface for layer documents (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config holds index parameters.
type Config struct {
	Index     string
	KeyPrefix string // document key prefix, e.g. georag:layer:
}

// Repo stores layer documents.
type Repo struct {
	store store
	cfg   Config
}

// New creates a layer repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// IndexDefinition describes the layers index. Only the synthetic __id field
// is indexed; attribute names are free-form Unicode.
func (r *Repo) IndexDefinition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     r.cfg.Index,
		Prefixes: []string{r.cfg.KeyPrefix},
		Fields: []db.IndexField{
			{Name: IDField, Type: db.IndexFieldTag},
		},
	}
}

// EnsureIndex creates the layers index if absent.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.Index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.Index, err)
	}
	if exists {
		return nil
	}

	if err := r.store.CreateIndex(ctx, r.IndexDefinition()); err != nil {
		return fmt.Errorf("create index %s: %w", r.cfg.Index, err)
	}
	return nil
}

// PutMulti stores a batch of rows. Each row gets the synthetic __id field.
func (r *Repo) PutMulti(ctx context.Context, ids []string, rows []map[string]string) error {
	if len(ids) != len(rows) {
		return fmt.Errorf("put multi: mismatched lengths %d/%d", len(ids), len(rows))
	}

	items := make([]db.HashSetItem, len(ids))
	for i, row := range rows {
		fields := make(map[string]string, len(row)+1)
		for k, v := range row {
			fields[k] = v
		}
		fields[IDField] = ids[i]
		items[i] = db.HashSetItem{Key: r.cfg.KeyPrefix + ids[i], Fields: fields}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("put layers: %w", err)
	}
	return nil
}

// Count returns the number of stored layer documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.cfg.Index, "*")
	if err != nil {
		return 0, fmt.Errorf("count layers: %w", err)
	}
	return n, nil
}
