// Package container はアプリケーションの依存関係を明示的に組み立てる。
package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/doc-rag/internal/core/ask"
	"github.com/jinford/doc-rag/internal/core/embedding"
	"github.com/jinford/doc-rag/internal/core/ingestion"
	"github.com/jinford/doc-rag/internal/core/retrieval"
	"github.com/jinford/doc-rag/internal/core/vectorstore"
	"github.com/jinford/doc-rag/internal/infra/extract"
	"github.com/jinford/doc-rag/internal/infra/gemini"
	"github.com/jinford/doc-rag/internal/infra/openai"
	"github.com/jinford/doc-rag/internal/infra/postgres"
	"github.com/jinford/doc-rag/internal/platform/config"
)

// ServiceContainer はサービス層とインフラ層の依存関係を保持する
type ServiceContainer struct {
	IngestionService *ingestion.Service
	RetrievalService *retrieval.Service
	AskService       *ask.Service
	Store            vectorstore.Store

	logger *slog.Logger
	pool   *pgxpool.Pool
}

type containerOptions struct {
	logger    *slog.Logger
	embedder  embedding.Embedder
	llmClient ask.LLMClient
	store     vectorstore.Store
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder embedding.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client ask.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerStore はベクトルストアを差し替える
func WithContainerStore(store vectorstore.Store) ContainerOption {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// NewContainer は設定から依存関係を組み立てる。
// 構築順は 接続プール → ストア → Embedder → LLM → 各サービス。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Store (PostgreSQL + pgvector)
	store := options.store
	var pool *pgxpool.Pool
	if store == nil {
		var err error
		pool, err = postgres.NewPool(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
		}

		store, err = postgres.NewStore(pool, cfg.Ingest.Collection, cfg.Gemini.Dimension, vectorstore.MetricCosine)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("ベクトルストア初期化に失敗しました: %w", err)
		}
	}

	// Embedder (Gemini)
	embedder := options.embedder
	if embedder == nil {
		var err error
		embedder, err = gemini.NewEmbedder(ctx, cfg.Gemini.APIKey,
			gemini.WithModel(cfg.Gemini.EmbeddingModel),
			gemini.WithDimension(cfg.Gemini.Dimension),
			gemini.WithBatchSize(cfg.Gemini.BatchSize),
			gemini.WithBatchPause(cfg.Gemini.BatchPause),
		)
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("Embedder初期化に失敗しました: %w", err)
		}
	}

	// LLMClient (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		var err error
		llmClient, err = openai.NewClient(cfg.OpenAI.APIKey, openai.WithModel(cfg.OpenAI.Model))
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("OpenAIクライアント初期化に失敗しました: %w", err)
		}
	}

	// Services
	chunker, err := ingestion.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("Chunker初期化に失敗しました: %w", err)
	}

	ingestionService := ingestion.NewService(
		extract.NewExtractor(),
		chunker,
		embedder,
		store,
		ingestion.WithMaxBatchFiles(cfg.Ingest.MaxBatchFiles),
		ingestion.WithServiceLogger(options.logger),
	)

	retrievalService := retrieval.NewService(embedder, store, retrieval.WithServiceLogger(options.logger))

	askService := ask.NewService(retrievalService, llmClient, ask.WithServiceLogger(options.logger))

	return &ServiceContainer{
		IngestionService: ingestionService,
		RetrievalService: retrievalService,
		AskService:       askService,
		Store:            store,
		logger:           options.logger,
		pool:             pool,
	}, nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.pool != nil {
		c.pool.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
