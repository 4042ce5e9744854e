// Package extract は宣言されたコンテンツタイプに応じてファイルから
// ページ付きテキストを取り出す Extractor 実装を提供する。
package extract

import (
	"context"
	"fmt"

	"github.com/jinford/doc-rag/internal/core/ingestion"
)

// Extractor は ingestion.Extractor のファイルベース実装。
// ディスパッチは宣言されたコンテンツタイプのみで決まり、
// サポート外のタイプではファイルI/Oを一切行わない。
type Extractor struct{}

// NewExtractor は新しい Extractor を作成する
func NewExtractor() *Extractor {
	return &Extractor{}
}

var _ ingestion.Extractor = (*Extractor)(nil)

// Extract はファイルを読み、ページ（セクション）単位のユニット列を文書順で返す。
// ファイルの削除・変更は行わない。後始末は呼び出し側の責務。
func (e *Extractor) Extract(ctx context.Context, filePath, contentType string) ([]ingestion.ExtractedUnit, error) {
	switch contentType {
	case ingestion.ContentTypeText:
		return extractText(filePath)
	case ingestion.ContentTypePDF:
		return extractPDF(filePath)
	case ingestion.ContentTypeDocx:
		return extractDocx(filePath)
	}
	return nil, fmt.Errorf("%w: %s", ingestion.ErrUnsupportedFormat, contentType)
}

// extractionError はパーサレベルの失敗を元の原因つきで分類する
func extractionError(filePath string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ingestion.ErrExtractionFailed, filePath, cause)
}
