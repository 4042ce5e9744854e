// Package gemini は Gemini API を使った embedding.Embedder 実装を提供する。
package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/jinford/doc-rag/internal/core/embedding"
	"google.golang.org/genai"
)

const (
	// DefaultModel はモデル未指定時のデフォルトEmbeddingモデル
	DefaultModel = "text-embedding-004"
	// DefaultDimension は text-embedding-004 の次元数
	DefaultDimension = 768
	// DefaultBatchSize は1回のAPI呼び出しに含める最大テキスト数
	DefaultBatchSize = 8
	// DefaultBatchPause はレート制限対策でバッチ間に挟む待ち時間
	DefaultBatchPause = 100 * time.Millisecond

	// Geminiのタスクタイプ。intentタグをそのまま転送する先。
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

// contentEmbedder は外部API呼び出しの継ぎ目。テストではスタブに差し替える。
type contentEmbedder interface {
	embedContents(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}

// Embedder は embedding.Embedder のGemini実装。
// バッチ分割・順序保証・バッチ間スロットリングを担い、
// 外部呼び出しの失敗は部分結果を返さずそのまま伝播させる。
type Embedder struct {
	backend   contentEmbedder
	model     string
	dimension int
	batchSize int
	pause     time.Duration
	wait      func(ctx context.Context, d time.Duration) error
}

var _ embedding.Embedder = (*Embedder)(nil)

type embedderOptions struct {
	model     string
	dimension int
	batchSize int
	pause     time.Duration
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithModel はEmbeddingモデル名を上書きする
func WithModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithDimension はベクトル次元数を上書きする
func WithDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithBatchSize はバッチサイズを上書きする
func WithBatchSize(size int) EmbedderOption {
	return func(o *embedderOptions) {
		o.batchSize = size
	}
}

// WithBatchPause はバッチ間の待ち時間を上書きする
func WithBatchPause(pause time.Duration) EmbedderOption {
	return func(o *embedderOptions) {
		o.pause = pause
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(ctx context.Context, apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	options := embedderOptions{
		model:     DefaultModel,
		dimension: DefaultDimension,
		batchSize: DefaultBatchSize,
		pause:     DefaultBatchPause,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.batchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", options.batchSize)
	}
	if options.pause < 0 {
		return nil, fmt.Errorf("batch pause must not be negative, got %s", options.pause)
	}
	if options.dimension < 1 {
		return nil, fmt.Errorf("dimension must be at least 1, got %d", options.dimension)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Embedder{
		backend:   &genaiBackend{client: client, model: options.model, dimension: options.dimension},
		model:     options.model,
		dimension: options.dimension,
		batchSize: options.batchSize,
		pause:     options.pause,
		wait:      waitFor,
	}, nil
}

// newEmbedderWithBackend はテスト用にバックエンドを差し替えて作成する
func newEmbedderWithBackend(backend contentEmbedder, dimension, batchSize int, pause time.Duration) *Embedder {
	return &Embedder{
		backend:   backend,
		model:     DefaultModel,
		dimension: dimension,
		batchSize: batchSize,
		pause:     pause,
		wait:      waitFor,
	}
}

// waitFor はキャンセル可能な待機。ctxが先に終われば即座に中断する。
func waitFor(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Dimension は生成されるベクトルの次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// EmbedOne は単一テキストのEmbeddingを生成する
func (e *Embedder) EmbedOne(ctx context.Context, text string, intent embedding.Intent) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, intent)
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

// EmbedBatch は複数テキストのEmbeddingを入力順に生成する。
// batchSize件ずつに分けて外部APIを呼び、バッチの合間に短い待ちを挟む
// （最終バッチの後には待たない）。いずれかの呼び出しが失敗した場合、
// それまでの結果は破棄して呼び出し全体を失敗させる。
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, intent embedding.Intent) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}
	if e.batchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", e.batchSize)
	}

	taskType, err := taskTypeFor(intent)
	if err != nil {
		return nil, err
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.backend.embedContents(ctx, texts[start:end], taskType)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d failed: %w", start, end, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding batch %d-%d returned %d vectors for %d texts", start, end, len(vectors), end-start)
		}
		all = append(all, vectors...)

		if end < len(texts) && e.pause > 0 {
			if err := e.wait(ctx, e.pause); err != nil {
				return nil, err
			}
		}
	}

	return all, nil
}

// taskTypeFor は用途タグをGeminiのタスクタイプへ変換する
func taskTypeFor(intent embedding.Intent) (string, error) {
	switch intent {
	case embedding.IntentDocumentIndexing:
		return taskTypeDocument, nil
	case embedding.IntentQueryLookup:
		return taskTypeQuery, nil
	}
	return "", fmt.Errorf("unknown embedding intent: %q", intent)
}

// genaiBackend は genai クライアントへの実際の呼び出し
type genaiBackend struct {
	client    *genai.Client
	model     string
	dimension int
}

func (b *genaiBackend) embedContents(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	dimension := int32(b.dimension)
	resp, err := b.client.Models.EmbedContent(ctx, b.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dimension,
	})
	if err != nil {
		return nil, err
	}

	return vectorsFromResponse(resp, b.model, b.dimension)
}

// vectorsFromResponse はAPI応答からベクトルを取り出し、次元数を検証する
func vectorsFromResponse(resp *genai.EmbedContentResponse, model string, dimension int) ([][]float32, error) {
	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if len(emb.Values) != dimension {
			return nil, fmt.Errorf("model %s returned a %d-dimensional vector, expected %d", model, len(emb.Values), dimension)
		}
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}
