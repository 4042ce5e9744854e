package ask

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/doc-rag/internal/core/retrieval"
)

// LLMClient は回答生成のためのLLM通信インターフェース。
// プロンプト全体を1回の呼び出しで渡す。リトライ方針は実装側の責務。
type LLMClient interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// Retriever は質問からランク付きコンテキストを取得する
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int) ([]retrieval.RetrievedContext, error)
}

// Answer は質問応答の結果。
// Sourcesは実際に検索で使われたチャンクのファイル名から導出される。
type Answer struct {
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	ProcessingTime float64  `json:"processing_time"`
}

// Service は 検索 → コンテキスト組み立て → 回答生成 を行う
type Service struct {
	retriever Retriever
	llm       LLMClient
	logger    *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithServiceLogger はロガーを差し替える
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しい Service を作成する
func NewService(retriever Retriever, llm LLMClient, opts ...ServiceOption) *Service {
	svc := &Service{
		retriever: retriever,
		llm:       llm,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Ask は質問に対してRAGベースで回答を生成する
func (s *Service) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	start := time.Now()

	contexts, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	prompt, err := BuildPrompt(question, contexts)
	if err != nil {
		return nil, err
	}

	answer, err := s.llm.GenerateCompletion(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	elapsed := time.Since(start).Seconds()
	s.logger.Info("質問応答が完了", "contexts", len(contexts), "processing_time", elapsed)

	return &Answer{
		Answer:         answer,
		Sources:        SourcesFrom(contexts),
		ProcessingTime: elapsed,
	}, nil
}
