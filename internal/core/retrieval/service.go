package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jinford/doc-rag/internal/core/embedding"
	"github.com/jinford/doc-rag/internal/core/vectorstore"
)

// ErrRetrievalFailed は質問応答時のEmbedding生成または類似検索の失敗。
// 空の結果に黙って縮退させず、必ず呼び出し側へ伝播させる。
var ErrRetrievalFailed = errors.New("context retrieval failed")

// DefaultTopK は件数未指定時に返す最大ヒット数
const DefaultTopK = 5

// RetrievedContext はクエリに対するランク付き1ヒット。
// 順序は関連度スコア（類似度）の降順で、同点の順序はストア任せ。
type RetrievedContext struct {
	VectorID       uuid.UUID `json:"vector_id"`
	RelevanceScore float64   `json:"relevance_score"`
	Content        string    `json:"content"`
	Filename       string    `json:"filename"`
	PageNumber     *int      `json:"page_number"`
}

// VectorSearcher は検索が必要とするベクトルストア操作の部分ビュー
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]vectorstore.SearchHit, error)
}

// Service は質問文からランク付きコンテキスト集合を組み立てるオーケストレータ。
// キャッシュもクエリ書き換えも行わない単発処理。
type Service struct {
	embedder embedding.Embedder
	store    VectorSearcher
	logger   *slog.Logger
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
func NewService(embedder embedding.Embedder, store VectorSearcher, opts ...ServiceOption) *Service {
	svc := &Service{
		embedder: embedder,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Retrieve は質問をクエリ用途でEmbeddingし、最近傍のチャンクを
// 類似度の降順で最大topK件返す。ストアの返した順序をそのまま保持する。
func (s *Service) Retrieve(ctx context.Context, question string, topK int) ([]RetrievedContext, error) {
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrRetrievalFailed)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVector, err := s.embedder.EmbedOne(ctx, question, embedding.IntentQueryLookup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	hits, err := s.store.Search(ctx, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	contexts := make([]RetrievedContext, 0, len(hits))
	for _, hit := range hits {
		contexts = append(contexts, RetrievedContext{
			VectorID:       hit.ID,
			RelevanceScore: hit.Score,
			Content:        hit.Payload.Document,
			Filename:       hit.Payload.Filename,
			PageNumber:     hit.Payload.PageNumber,
		})
	}

	s.logger.Info("コンテキスト検索が完了", "top_k", topK, "hits", len(contexts))
	return contexts, nil
}
