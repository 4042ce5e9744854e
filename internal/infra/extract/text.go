package extract

import (
	"os"

	"github.com/jinford/doc-rag/internal/core/ingestion"
)

// extractText はプレーンテキストをファイル全体で1ユニットとして返す。
// テキストにページ概念はないため PageHint は持たない。
func extractText(filePath string) ([]ingestion.ExtractedUnit, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, extractionError(filePath, err)
	}

	return []ingestion.ExtractedUnit{{
		Text:       string(content),
		SourcePath: filePath,
	}}, nil
}
