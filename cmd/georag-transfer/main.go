// Command georag-transfer dumps an index to a JSON file or restores it.
//
//	georag-transfer -index descriptions -export dump.json
//	georag-transfer -index layers -import dump.json -replace
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/config"
	"github.com/caspianlab/georag/internal/db"
	dbRedis "github.com/caspianlab/georag/internal/db/redis"
	logpkg "github.com/caspianlab/georag/internal/logger"
	featurerepo "github.com/caspianlab/georag/internal/repository/feature"
	layerrepo "github.com/caspianlab/georag/internal/repository/layer"
	"github.com/caspianlab/georag/internal/transfer"
)

func main() {
	var (
		index      = flag.String("index", "descriptions", `"descriptions" or "layers"`)
		exportPath = flag.String("export", "", "dump the index to this file")
		importPath = flag.String("import", "", "restore the index from this file")
		replace    = flag.Bool("replace", false, "drop the existing index before import")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall deadline")
	)
	flag.Parse()

	if (*exportPath == "") == (*importPath == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -export or -import is required")
		os.Exit(2)
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	def, err := indexDefinition(cfg, *index)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	switch {
	case *exportPath != "":
		dump, err := transfer.Export(ctx, store, def)
		if err != nil {
			logger.Fatal("Export failed", zap.Error(err))
		}
		if err := transfer.Save(*exportPath, dump); err != nil {
			logger.Fatal("Failed to write dump", zap.Error(err))
		}
		logger.Info("Index exported",
			zap.String("index", def.Name),
			zap.String("file", *exportPath),
			zap.Int("docs", len(dump.Docs)),
		)

	case *importPath != "":
		dump, err := transfer.Load(*importPath)
		if err != nil {
			logger.Fatal("Failed to read dump", zap.Error(err))
		}
		n, err := transfer.Import(ctx, store, dump, *replace)
		if err != nil {
			logger.Fatal("Import failed", zap.Error(err))
		}
		logger.Info("Index imported",
			zap.String("index", dump.Mapping.Index),
			zap.String("file", *importPath),
			zap.Int("docs", n),
		)
	}
}

// indexDefinition resolves the named index to its live definition.
func indexDefinition(cfg config.Config, index string) (*db.IndexDefinition, error) {
	switch index {
	case "descriptions":
		repo := featurerepo.New(nil, featurerepo.Config{
			Index:           indexName(cfg.Index.KeyPrefix, cfg.Index.DescriptionsIndex),
			KeyPrefix:       cfg.Index.KeyPrefix + "desc:",
			Dimensions:      cfg.Embedding.Dimensions,
			HNSWM:           cfg.Index.HNSWM,
			HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
		})
		return repo.IndexDefinition(), nil
	case "layers":
		repo := layerrepo.New(nil, layerrepo.Config{
			Index:     indexName(cfg.Index.KeyPrefix, cfg.Index.LayersIndex),
			KeyPrefix: cfg.Index.KeyPrefix + "layer:",
		})
		return repo.IndexDefinition(), nil
	default:
		return nil, fmt.Errorf("unknown index %q, want \"descriptions\" or \"layers\"", index)
	}
}

func indexName(keyPrefix, name string) string {
	return strings.TrimSuffix(keyPrefix, ":") + "_" + name
}
