// Package feature stores attribute descriptions with their embeddings and
// serves KNN retrieval over them.
package feature

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/caspianlab/georag/internal/db"
	"github.com/caspianlab/georag/internal/domain"
)

// store is the consumer interface for the description index (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config holds index parameters.
type Config struct {
	Index           string // FT index name
	KeyPrefix       string // document key prefix, e.g. georag:desc:
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
	ScanPageSize    int
}

// Repo implements the description index over hash documents.
type Repo struct {
	store store
	cfg   Config
}

// New creates a feature description repository.
func New(s store, cfg Config) *Repo {
	if cfg.ScanPageSize <= 0 {
		cfg.ScanPageSize = 500
	}
	return &Repo{store: s, cfg: cfg}
}

// IndexDefinition describes the HNSW index over the stored descriptions.
func (r *Repo) IndexDefinition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     r.cfg.Index,
		Prefixes: []string{r.cfg.KeyPrefix},
		Fields: []db.IndexField{
			{Name: "name", Type: db.IndexFieldTag},
			{Name: "description", Type: db.IndexFieldText},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.cfg.Dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.cfg.HNSWM,
				VectorEFConstruct: r.cfg.HNSWEFConstruct,
			},
		},
	}
}

// EnsureIndex creates the HNSW index if it does not exist yet.
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

// Put stores one description with its embedding.
func (r *Repo) Put(ctx context.Context, id string, f domain.FeatureDescription, vec []float32) error {
	if err := r.store.HSet(ctx, r.key(id), r.fields(f, vec)); err != nil {
		return fmt.Errorf("put description %s: %w", id, err)
	}
	return nil
}

// PutMulti stores a batch of descriptions in one round-trip.
func (r *Repo) PutMulti(ctx context.Context, ids []string, fs []domain.FeatureDescription, vecs [][]float32) error {
	if len(ids) != len(fs) || len(ids) != len(vecs) {
		return fmt.Errorf("put multi: mismatched lengths %d/%d/%d", len(ids), len(fs), len(vecs))
	}
	items := make([]db.HashSetItem, len(ids))
	for i := range ids {
		items[i] = db.HashSetItem{Key: r.key(ids[i]), Fields: r.fields(fs[i], vecs[i])}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("put multi: %w", err)
	}
	return nil
}

// Search returns the k nearest descriptions for the query vector,
// ordered by similarity.
func (r *Repo) Search(ctx context.Context, vec []float32, k int) ([]domain.FeatureDescription, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.Index,
		Vector:       vec,
		K:            k,
		ReturnFields: []string{"name", "description", "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	out := make([]domain.FeatureDescription, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, domain.FeatureDescription{
			Name:        e.Fields["name"],
			Description: e.Fields["description"],
			Score:       e.Score,
		})
	}
	return out, nil
}

// Count returns the number of stored descriptions.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.cfg.Index, "*")
	if err != nil {
		return 0, fmt.Errorf("count descriptions: %w", err)
	}
	return n, nil
}

// ScanAll pages through every stored description without vectors.
func (r *Repo) ScanAll(ctx context.Context) ([]domain.FeatureDescription, error) {
	var out []domain.FeatureDescription
	offset := 0
	for {
		page, err := r.store.SearchList(
			ctx, r.cfg.Index, "*", offset, r.cfg.ScanPageSize,
			[]string{"name", "description"},
		)
		if err != nil {
			return nil, fmt.Errorf("scan descriptions at offset %d: %w", offset, err)
		}
		for _, e := range page.Entries {
			out = append(out, domain.FeatureDescription{
				Name:        e.Fields["name"],
				Description: e.Fields["description"],
			})
		}
		offset += len(page.Entries)
		if len(page.Entries) == 0 || offset >= page.Total {
			break
		}
	}
	return out, nil
}

func (r *Repo) key(id string) string {
	return r.cfg.KeyPrefix + id
}

func (r *Repo) fields(f domain.FeatureDescription, vec []float32) map[string]string {
	return map[string]string{
		"name":        f.Name,
		"description": f.Description,
		"vector":      encodeVector(vec),
	}
}

func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
