// Command georag-load ingests a layer attribute table from CSV and builds
// the semantic description index for its columns.
//
//	georag-load -file data/layers.csv            # load rows
//	georag-load -mode describe                   # describe + embed columns
package main

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/config"
	dbRedis "github.com/caspianlab/georag/internal/db/redis"
	"github.com/caspianlab/georag/internal/domain"
	logpkg "github.com/caspianlab/georag/internal/logger"
	"github.com/caspianlab/georag/internal/metrics"
	featurerepo "github.com/caspianlab/georag/internal/repository/feature"
	layerrepo "github.com/caspianlab/georag/internal/repository/layer"
	attrstore "github.com/caspianlab/georag/internal/store"
	openaiTr "github.com/caspianlab/georag/internal/transport/openai"
	llmuc "github.com/caspianlab/georag/internal/usecase/llm"
)

// describePrompt asks the model for a reference-style description of one
// attribute given a few sample values. The descriptions feed the KNN index.
const describePrompt = `Ты - эксперт по геологии Каспийского моря и нефтегазовой геологии.

В таблице геологических данных есть колонка: "%s"

Примеры значений: %s

Напиши краткое описание этого признака (2-3 предложения), как в справочнике:
что это за показатель, что он характеризует, в каких единицах измеряется.

Верни ТОЛЬКО описание, без дополнительных комментариев.`

const sampleValues = 5

func main() {
	var (
		mode    = flag.String("mode", "load", `"load" rows from CSV or "describe" columns`)
		file    = flag.String("file", "", "path to the CSV file (load mode)")
		timeout = flag.Duration("timeout", 30*time.Minute, "overall deadline")
	)
	flag.Parse()

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

	metrics.RegisterLLMMetrics()

	layersIndex := indexName(cfg.Index.KeyPrefix, cfg.Index.LayersIndex)
	layers := layerrepo.New(store, layerrepo.Config{
		Index:     layersIndex,
		KeyPrefix: cfg.Index.KeyPrefix + "layer:",
	})

	switch *mode {
	case "load":
		if *file == "" {
			fmt.Fprintln(os.Stderr, "-file is required in load mode")
			os.Exit(2)
		}
		if err := loadCSV(ctx, layers, *file, logger); err != nil {
			logger.Fatal("Load failed", zap.Error(err))
		}

	case "describe":
		features := featurerepo.New(store, featurerepo.Config{
			Index:           indexName(cfg.Index.KeyPrefix, cfg.Index.DescriptionsIndex),
			KeyPrefix:       cfg.Index.KeyPrefix + "desc:",
			Dimensions:      cfg.Embedding.Dimensions,
			HNSWM:           cfg.Index.HNSWM,
			HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
			ScanPageSize:    cfg.Index.ScanPageSize,
		})
		if err := features.EnsureIndex(ctx); err != nil {
			logger.Fatal("Failed to ensure descriptions index", zap.Error(err))
		}

		loader := attrstore.NewLoader(store, layersIndex, cfg.Index.LayersIndex, cfg.Index.ScanPageSize, logger)
		table, err := loader.Load(ctx)
		if err != nil {
			logger.Fatal("Failed to load attribute table", zap.Error(err))
		}
		if table.NumRows() == 0 {
			logger.Fatal("Attribute table is empty, run load mode first")
		}

		completer := llmuc.NewInstrumentedCompleter(
			openaiTr.NewCompleter(&openaiTr.CompleterConfig{
				APIKey:      cfg.LLM.APIKey,
				BaseURL:     cfg.LLM.BaseURL,
				Model:       cfg.LLM.Model,
				Temperature: cfg.LLM.Temperature,
				Logger:      logger,
			}),
			cfg.LLM.Model, nil, logger,
		)
		embedder := buildDocEmbedder(cfg, logger)

		if err := describeColumns(ctx, completer, embedder, features, table, logger); err != nil {
			logger.Fatal("Describe failed", zap.Error(err))
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
}

// loadCSV reads the attribute table and stores every row as a hash document.
// The first record is the header; attribute names are kept byte for byte.
func loadCSV(ctx context.Context, layers *layerrepo.Repo, path string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // хвостовые колонки бывают рваные

	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) < 2 {
		return fmt.Errorf("%s: need a header and at least one row", path)
	}

	header := records[0]
	ids := make([]string, 0, len(records)-1)
	rows := make([]map[string]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for j, name := range header {
			if j >= len(rec) {
				break
			}
			if v := strings.TrimSpace(rec[j]); v != "" {
				row[name] = v
			}
		}
		if len(row) == 0 {
			continue
		}
		ids = append(ids, fmt.Sprintf("%d", i))
		rows = append(rows, row)
	}

	if err := layers.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure layers index: %w", err)
	}
	if err := layers.PutMulti(ctx, ids, rows); err != nil {
		return err
	}

	logger.Info("Layer rows loaded",
		zap.String("file", path),
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(header)),
	)
	return nil
}

// describeColumns generates a reference description for every attribute and
// stores it with its embedding in the descriptions index.
func describeColumns(
	ctx context.Context,
	completer domain.Completer,
	embedder domain.Embedder,
	features *featurerepo.Repo,
	table *attrstore.Table,
	logger *zap.Logger,
) error {
	names := table.ColumnNames()

	ids := make([]string, 0, len(names))
	descs := make([]domain.FeatureDescription, 0, len(names))
	texts := make([]string, 0, len(names))

	for i, name := range names {
		res, err := completer.Complete(ctx, fmt.Sprintf(describePrompt, name, samples(table, name)))
		if err != nil {
			return fmt.Errorf("describe column %q: %w", name, err)
		}
		desc := strings.TrimSpace(res.Text)
		if desc == "" {
			logger.Warn("Empty description, skipping column", zap.String("column", name))
			continue
		}

		ids = append(ids, featureID(name))
		descs = append(descs, domain.FeatureDescription{Name: name, Description: desc})
		texts = append(texts, desc)

		logger.Info("Column described",
			zap.Int("n", i+1),
			zap.Int("total", len(names)),
			zap.String("column", name),
		)
	}

	var batch domain.BatchEmbeddingResult
	var err error
	if be, ok := embedder.(domain.BatchEmbedder); ok {
		batch, err = be.BatchEmbed(ctx, texts)
	} else {
		batch, err = domain.BatchFallback(ctx, embedder, texts)
	}
	if err != nil {
		return fmt.Errorf("embed descriptions: %w", err)
	}

	if err := features.PutMulti(ctx, ids, descs, batch.Embeddings); err != nil {
		return err
	}

	logger.Info("Descriptions stored", zap.Int("count", len(descs)))
	return nil
}

// samples collects a few distinct non-empty values of a column for the prompt.
func samples(table *attrstore.Table, column string) string {
	seen := make(map[string]struct{}, sampleValues)
	var out []string
	for row := 0; row < table.NumRows() && len(out) < sampleValues; row++ {
		v, ok := table.Value(row, column)
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprintf("%v", v)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return "(нет значений)"
	}
	return strings.Join(out, "; ")
}

// featureID derives a stable document id from the attribute name. Names carry
// arbitrary Unicode and punctuation, so they are hashed instead of sanitized.
func featureID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return fmt.Sprintf("%x", sum[:8])
}

func indexName(keyPrefix, name string) string {
	return strings.TrimSuffix(keyPrefix, ":") + "_" + name
}

// buildDocEmbedder builds the ingestion-side chain: OpenAI -> Instrumented -> Instruction.
// No cache: каждая колонка embed-ится один раз.
func buildDocEmbedder(cfg config.Config, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = openaiTr.NewEmbedder(&openaiTr.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	embedder = llmuc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Model, nil, logger)
	if cfg.Embedding.DocInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.DocInstruction)
	}
	return embedder
}
