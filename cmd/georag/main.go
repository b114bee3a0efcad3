package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/caspianlab/georag/internal/config"
	"github.com/caspianlab/georag/internal/db"
	dbRedis "github.com/caspianlab/georag/internal/db/redis"
	"github.com/caspianlab/georag/internal/domain"
	logpkg "github.com/caspianlab/georag/internal/logger"
	"github.com/caspianlab/georag/internal/metrics"
	budgetrepo "github.com/caspianlab/georag/internal/repository/budget"
	"github.com/caspianlab/georag/internal/repository/embcache"
	featurerepo "github.com/caspianlab/georag/internal/repository/feature"
	layerrepo "github.com/caspianlab/georag/internal/repository/layer"
	attrstore "github.com/caspianlab/georag/internal/store"
	chiTransport "github.com/caspianlab/georag/internal/transport/chi"
	openaiTr "github.com/caspianlab/georag/internal/transport/openai"
	"github.com/caspianlab/georag/internal/usecase/answer"
	"github.com/caspianlab/georag/internal/usecase/ask"
	"github.com/caspianlab/georag/internal/usecase/classify"
	"github.com/caspianlab/georag/internal/usecase/formalize"
	healthuc "github.com/caspianlab/georag/internal/usecase/health"
	llmuc "github.com/caspianlab/georag/internal/usecase/llm"
	"github.com/caspianlab/georag/internal/usecase/progress"
	"github.com/caspianlab/georag/internal/usecase/resolve"
	"github.com/caspianlab/georag/internal/usecase/synthesize"
	usageuc "github.com/caspianlab/georag/internal/usecase/usage"
	"github.com/caspianlab/georag/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting georag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register LLM metrics explicitly (no init())
	metrics.RegisterLLMMetrics()

	// Single BudgetTracker shared by the completer, the embedder and the usage service.
	var budget *llmuc.BudgetTracker
	budgetCfg := cfg.LLM.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := llmuc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = llmuc.BudgetActionReject
		}
		budget = llmuc.NewBudgetTracker(
			budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store — loads current counters from DB.
		budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, budgetStore)

		logger.Info("Token budget enabled",
			zap.Int64("daily_limit", budgetCfg.DailyTokenLimit),
			zap.Int64("monthly_limit", budgetCfg.MonthlyTokenLimit),
			zap.String("action", string(action)),
		)
	}

	// Pass nil interface (not typed nil pointer!) when budget is disabled.
	var budgetChecker llmuc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	// Chat completion chain: OpenAI -> Instrumented (budget)
	baseCompleter := openaiTr.NewCompleter(&openaiTr.CompleterConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})
	completer := llmuc.NewInstrumentedCompleter(baseCompleter, cfg.LLM.Model, budgetChecker, logger)

	embedder := buildEmbedder(cfg, store, budgetChecker, logger)

	// Repositories
	descIndex := indexName(cfg.Index.KeyPrefix, cfg.Index.DescriptionsIndex)
	features := featurerepo.New(store, featurerepo.Config{
		Index:           descIndex,
		KeyPrefix:       cfg.Index.KeyPrefix + "desc:",
		Dimensions:      cfg.Embedding.Dimensions,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
		ScanPageSize:    cfg.Index.ScanPageSize,
	})
	if err := features.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure descriptions index", zap.Error(err))
	}

	layersIndex := indexName(cfg.Index.KeyPrefix, cfg.Index.LayersIndex)
	layers := layerrepo.New(store, layerrepo.Config{
		Index:     layersIndex,
		KeyPrefix: cfg.Index.KeyPrefix + "layer:",
	})
	if err := layers.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure layers index", zap.Error(err))
	}

	// Attribute table lives in memory; without it no structured query can run,
	// so a load failure is fatal.
	loader := attrstore.NewLoader(store, layersIndex, cfg.Index.LayersIndex, cfg.Index.ScanPageSize, logger)
	table, err := loader.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load attribute table",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrStoreNotLoaded, err)))
	}
	if table.NumRows() == 0 {
		logger.Warn("Attribute table is empty, run georag-load first")
	}

	// Use cases
	classifySvc := classify.New(completer, logger)
	formalizeSvc := formalize.New(completer, table.ColumnNames(), logger)
	resolveSvc := resolve.New(completer, embedder, features, cfg.Pipeline.TopK, logger)
	synthSvc := synthesize.New(completer, table, cfg.Pipeline.MaxAttempts, logger)
	answerSvc := answer.New(completer, cfg.Pipeline.PreviewRows, logger)
	pipeline := ask.New(classifySvc, formalizeSvc, resolveSvc, synthSvc, answerSvc, logger)

	usageSvc := usageuc.New(budgetReader)
	healthSvc := healthuc.New(store, baseCompleter)

	jobs := progress.NewRegistry(time.Duration(cfg.Pipeline.JobTTLSec)*time.Second, logger)
	go jobs.Run(ctx, time.Minute)

	server := chiTransport.NewServer(pipeline, answerSvc, jobs, usageSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.Config,
	store db.Store,
	budget llmuc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	base := openaiTr.NewEmbedder(&openaiTr.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)

	// Instrumented (budget + metrics)
	embedder = llmuc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Model, budget, logger)

	// Instruction prefix (outermost — cache key includes instruction)
	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}

	return embedder
}

// indexName builds an FT index name from the key prefix: "georag:" + "layers" -> "georag_layers".
func indexName(keyPrefix, name string) string {
	return strings.TrimSuffix(keyPrefix, ":") + "_" + name
}
