package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jinford/doc-rag/internal/core/embedding"
	"github.com/jinford/doc-rag/internal/core/vectorstore"
)

// Extractor は宣言されたコンテンツタイプに従ってファイルからテキストを抽出する。
// 実装は internal/infra/extract に置く。
type Extractor interface {
	// Extract はページ（セクション）単位のユニット列を文書順で返す。
	// サポート外のタイプは ErrUnsupportedFormat、パーサ失敗は
	// ErrExtractionFailed に分類されるエラーを返す。
	Extract(ctx context.Context, filePath, contentType string) ([]ExtractedUnit, error)
}

// VectorWriter は取り込みが必要とするベクトルストア操作の部分ビュー
type VectorWriter interface {
	Upsert(ctx context.Context, vectors [][]float32, payloads []vectorstore.Payload) ([]uuid.UUID, error)
}

// DefaultMaxBatchFiles は1回のバッチ取り込みで受け付ける最大ファイル数
const DefaultMaxBatchFiles = 10

// Service は 抽出 → チャンク化 → Embedding → 登録 を1ファイルずつ
// アトミックに実行するオーケストレータ。コラボレータはすべて
// コンストラクタで明示的に注入され、グローバルな状態は持たない。
type Service struct {
	extractor     Extractor
	chunker       *Chunker
	embedder      embedding.Embedder
	store         VectorWriter
	maxBatchFiles int
	logger        *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithMaxBatchFiles はバッチあたりの最大ファイル数を上書きする
func WithMaxBatchFiles(n int) ServiceOption {
	return func(s *Service) {
		s.maxBatchFiles = n
	}
}

// WithServiceLogger はロガーを差し替える
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しい Service を作成する
func NewService(
	extractor Extractor,
	chunker *Chunker,
	embedder embedding.Embedder,
	store VectorWriter,
	opts ...ServiceOption,
) *Service {
	svc := &Service{
		extractor:     extractor,
		chunker:       chunker,
		embedder:      embedder,
		store:         store,
		maxBatchFiles: DefaultMaxBatchFiles,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ProcessDocument は1ファイルを取り込む。
// いずれかのステージが失敗した場合は残りのステージを実行せず、
// 分類済みのエラーを返す。部分的に登録された状態は発生しない。
func (s *Service) ProcessDocument(ctx context.Context, input DocumentInput) (*ProcessedDocument, error) {
	logger := s.logger.With("filename", input.Filename, "content_type", input.ContentType)
	logger.Info("ドキュメント取り込みを開始")

	// 前提チェック: 抽出処理に入る前に宣言タイプを検証する
	if !SupportedContentType(input.ContentType) {
		return nil, unsupportedFormatError(input.ContentType)
	}

	// Extracting
	units, err := s.extractor.Extract(ctx, input.FilePath, input.ContentType)
	if err != nil {
		return nil, err
	}
	logger.Info("テキスト抽出が完了", "units", len(units))

	// Chunking
	chunks := s.chunker.Chunk(units, input.ContentType, input.Filename)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, input.Filename)
	}
	logger.Info("チャンク化が完了", "chunks", len(chunks))

	// Embedding
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, embedding.IntentDocumentIndexing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d vectors for %d chunks", ErrEmbeddingMismatch, len(vectors), len(chunks))
	}

	// Upserting
	payloads := make([]vectorstore.Payload, len(chunks))
	for i, c := range chunks {
		payloads[i] = vectorstore.Payload{
			Document:   c.Content,
			Source:     c.SourcePath,
			Filename:   c.Filename,
			PageNumber: c.PageNumber,
			ChunkIndex: c.ChunkIndex,
			CreatedAt:  c.CreatedAt,
		}
	}
	if _, err := s.store.Upsert(ctx, vectors, payloads); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpsertFailed, err)
	}

	logger.Info("ドキュメント取り込みが完了", "chunks_created", len(chunks))
	return &ProcessedDocument{
		Filename:      input.Filename,
		ChunksCreated: len(chunks),
		ContentType:   input.ContentType,
		CreatedAt:     chunks[0].CreatedAt,
	}, nil
}

// ProcessDocuments は複数ファイルをバッチ取り込みする。
// 最大ファイル数の検査はどのファイルの処理よりも先に行い、超過時は
// 1ファイルも処理せずに ErrTooManyFiles を返す。個々のファイルの失敗は
// (ファイル名, 理由) として失敗リストに変換され、他のファイルの処理を
// 中断させることはない。
func (s *Service) ProcessDocuments(ctx context.Context, inputs []DocumentInput) (*BatchResult, error) {
	if len(inputs) > s.maxBatchFiles {
		return nil, fmt.Errorf("%w: %d files (maximum %d)", ErrTooManyFiles, len(inputs), s.maxBatchFiles)
	}

	result := &BatchResult{
		Successful: []ProcessedDocument{},
		Failed:     []FailedDocument{},
	}

	for _, input := range inputs {
		processed, err := s.ProcessDocument(ctx, input)
		if err != nil {
			s.logger.Warn("ファイルの取り込みに失敗", "filename", input.Filename, "error", err)
			result.Failed = append(result.Failed, FailedDocument{
				Filename: input.Filename,
				Reason:   err.Error(),
			})
			continue
		}
		result.Successful = append(result.Successful, *processed)
	}

	result.Summary = BatchSummary{
		TotalFiles:      len(inputs),
		SuccessfulCount: len(result.Successful),
		FailedCount:     len(result.Failed),
	}

	s.logger.Info("バッチ取り込みが完了",
		"total", result.Summary.TotalFiles,
		"successful", result.Summary.SuccessfulCount,
		"failed", result.Summary.FailedCount,
	)
	return result, nil
}
