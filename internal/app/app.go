// Package app wires configured backends into a ready service. The netmon
// binaries share it so the server, the MCP bridge and the terminal front
// ends see the same store.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"netmon/internal/advisor"
	"netmon/internal/config"
	"netmon/internal/database"
	"netmon/internal/database/document"
	"netmon/internal/database/graph"
	"netmon/internal/database/memory"
	"netmon/internal/database/rag"
	"netmon/internal/database/relational"
	"netmon/internal/health"
	"netmon/internal/idempotency"
	"netmon/internal/service"
)

// App holds the opened backends. Graph and RAG are nil when not configured.
type App struct {
	Config  config.Config
	Log     *logrus.Logger
	Store   database.Store
	Graph   graph.GraphClient
	RAG     *rag.GraphRAGEngine
	Service *service.Service

	closers []func() error
}

// NewLogger builds a logrus logger from the log section.
func NewLogger(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// memoryLimitGB parses values like "4GB" or "4". Anything else means no cap.
func memoryLimitGB(s string) int {
	s = strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "GB")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// OpenStore opens the backend named by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (database.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverDuckDB:
		return relational.Open(ctx, cfg.DuckDB.Path,
			relational.WithThreads(cfg.DuckDB.Threads),
			relational.WithMemoryLimit(memoryLimitGB(cfg.DuckDB.MemoryLimit)),
			relational.WithTimeout(cfg.DuckDB.Timeout),
		)
	case config.DriverMongo:
		return document.Open(ctx, document.Config{
			URI:               cfg.Mongo.URL,
			Database:          cfg.Mongo.Database,
			MetricsCollection: cfg.Mongo.MetricsCollection,
			EventsCollection:  cfg.Mongo.EventsCollection,
			Timeout:           cfg.Mongo.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Build opens the store and every optional backend the config enables, then
// constructs the service. On error everything opened so far is closed.
func Build(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.open(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	cfg, log := a.Config, a.Log

	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	log.WithField("driver", cfg.Storage.Driver).Info("store opened")

	if cfg.Neo4j.Enabled() {
		g, err := graph.NewNeo4jClient(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			return fmt.Errorf("connect neo4j: %w", err)
		}
		a.Graph = g
		a.closers = append(a.closers, func() error { return g.Close(context.Background()) })
		log.WithField("uri", cfg.Neo4j.URI).Info("graph connected")
	}

	var llm rag.Generator
	if cfg.Gemini.Enabled() {
		gem, err := rag.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return err
		}
		llm = gem
		a.closers = append(a.closers, gem.Close)
		log.WithField("model", gem.ModelName()).Info("gemini enabled")
	}
	if a.Graph != nil && llm != nil {
		a.RAG = rag.NewGraphRAGEngine(a.Graph, llm)
	}

	var keys idempotency.Store = idempotency.NewMemory()
	if cfg.Redis.Addr != "" {
		client, err := idempotency.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		keys = idempotency.NewRedis(client, "")
		a.closers = append(a.closers, client.Close)
		log.WithField("addr", cfg.Redis.Addr).Info("redis idempotency enabled")
	}

	a.Service = service.New(service.Deps{
		Store:   store,
		Graph:   a.Graph,
		RAG:     a.RAG,
		Advisor: advisor.New(llm, log),
		Keys:    keys,
		KeyTTL:  cfg.Redis.IdempotencyTTL,
		Health:  health.NewClassifier(health.DefaultConfig()),
		Query:   cfg.Query,
		Log:     log,
	})
	return nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
