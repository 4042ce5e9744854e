package ingestion

import (
	"errors"
	"fmt"
)

// 取り込みパイプラインのエラー分類。
// トランスポート層が errors.Is で判別してレスポンスへマッピングできるよう、
// すべて区別可能なセンチネルとして公開する。
var (
	// ErrUnsupportedFormat は宣言されたコンテンツタイプがサポート外
	ErrUnsupportedFormat = errors.New("unsupported content type")

	// ErrExtractionFailed はパーサレベルの抽出失敗（ファイル破損など）
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrEmptyDocument は抽出可能な（空白以外の）テキストが存在しない。
	// 例外的な状況ではなく、報告対象の通常の失敗結果。
	ErrEmptyDocument = errors.New("no extractable content")

	// ErrEmbeddingFailed は外部Embedding呼び出しの失敗
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrEmbeddingMismatch はEmbedding件数とチャンク件数の不一致
	ErrEmbeddingMismatch = errors.New("embedding count does not match chunk count")

	// ErrUpsertFailed はベクトルストアへの書き込み失敗
	ErrUpsertFailed = errors.New("vector store upsert failed")

	// ErrTooManyFiles はバッチあたりの最大ファイル数超過。
	// 1ファイルも処理される前にバッチ全体を拒否する。
	ErrTooManyFiles = errors.New("too many files in batch")
)

// unsupportedFormatError は ErrUnsupportedFormat に実際のタイプ名を添える
func unsupportedFormatError(contentType string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
}
