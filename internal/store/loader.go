package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/db"
)

// Loader pages through the layer documents and assembles the attribute table.
type Loader struct {
	searcher db.Searcher
	index    string
	table    string
	pageSize int
	log      *zap.Logger
}

// NewLoader creates a table loader over an FT index of layer hashes.
func NewLoader(searcher db.Searcher, index, table string, pageSize int, log *zap.Logger) *Loader {
	return &Loader{
		searcher: searcher,
		index:    index,
		table:    table,
		pageSize: pageSize,
		log:      log,
	}
}

// Load fetches every document from the index and builds the table.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	builder := NewBuilder(l.table)

	offset := 0
	for {
		page, err := l.searcher.SearchList(ctx, l.index, "*", offset, l.pageSize, nil)
		if err != nil {
			return nil, fmt.Errorf("load page at offset %d: %w", offset, err)
		}
		for _, entry := range page.Entries {
			builder.AddRow(stripInternal(entry.Fields))
		}

		offset += len(page.Entries)
		if len(page.Entries) == 0 || offset >= page.Total {
			break
		}
	}

	table := builder.Build()
	l.log.Info("attribute table loaded",
		zap.String("table", l.table),
		zap.Int("rows", table.NumRows()),
		zap.Int("columns", len(table.Columns())),
	)
	return table, nil
}

// stripInternal drops synthetic __-prefixed fields that are not attributes.
func stripInternal(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, "__") {
			continue
		}
		out[k] = v
	}
	return out
}
