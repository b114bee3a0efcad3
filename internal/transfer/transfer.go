// Package transfer moves index contents between a live database and JSON
// dump files: the index mapping plus every document as an {_id, _source}
// pair. A round-trip preserves document count and field sets exactly.
package transfer

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/caspianlab/georag/internal/db"
)

// store is the consumer interface for export/import (ISP).
type store interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Doc is one exported document.
type Doc struct {
	ID     string            `json:"_id"`
	Source map[string]string `json:"_source"`
}

// Dump is the on-disk format.
type Dump struct {
	Mapping Mapping `json:"mapping"`
	Docs    []Doc   `json:"docs"`
}

// Export reads every document under the index prefixes. Binary vector
// fields are base64-encoded so the dump stays valid JSON.
func Export(ctx context.Context, s store, def *db.IndexDefinition) (*Dump, error) {
	var keys []string
	for _, prefix := range def.Prefixes {
		page, err := s.Scan(ctx, prefix+"*")
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", prefix, err)
		}
		keys = append(keys, page...)
	}
	sort.Strings(keys)

	docs, err := s.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	binary := binaryFields(def)
	dump := &Dump{Mapping: mappingFromDef(def), Docs: make([]Doc, 0, len(keys))}
	for i, key := range keys {
		if len(docs[i]) == 0 {
			continue
		}
		src := make(map[string]string, len(docs[i]))
		for f, v := range docs[i] {
			if _, ok := binary[f]; ok {
				v = base64.StdEncoding.EncodeToString([]byte(v))
			}
			src[f] = v
		}
		dump.Docs = append(dump.Docs, Doc{ID: key, Source: src})
	}
	return dump, nil
}

// Import recreates the index and writes every document back. With replace
// set, an existing index is dropped first. Returns the imported count.
func Import(ctx context.Context, s store, dump *Dump, replace bool) (int, error) {
	def := dump.Mapping.IndexDefinition()
	if err := def.Validate(); err != nil {
		return 0, fmt.Errorf("dump mapping: %w", err)
	}

	exists, err := s.IndexExists(ctx, def.Name)
	if err != nil {
		return 0, fmt.Errorf("check index %s: %w", def.Name, err)
	}
	if exists && replace {
		if err := s.DropIndex(ctx, def.Name); err != nil {
			return 0, fmt.Errorf("drop index %s: %w", def.Name, err)
		}
		exists = false
	}
	if !exists {
		if err := s.CreateIndex(ctx, def); err != nil {
			return 0, fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}

	binary := binaryFields(def)
	items := make([]db.HashSetItem, 0, len(dump.Docs))
	for _, doc := range dump.Docs {
		fields := make(map[string]string, len(doc.Source))
		for f, v := range doc.Source {
			if _, ok := binary[f]; ok {
				raw, err := base64.StdEncoding.DecodeString(v)
				if err != nil {
					return 0, fmt.Errorf("document %s field %s: %w", doc.ID, f, err)
				}
				v = string(raw)
			}
			fields[f] = v
		}
		items = append(items, db.HashSetItem{Key: doc.ID, Fields: fields})
	}

	if err := s.HSetMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("write documents: %w", err)
	}
	return len(items), nil
}

func binaryFields(def *db.IndexDefinition) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range def.Fields {
		if f.Type == db.IndexFieldVector {
			out[f.Name] = struct{}{}
		}
	}
	return out
}
