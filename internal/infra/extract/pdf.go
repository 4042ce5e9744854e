package extract

import (
	"github.com/jinford/doc-rag/internal/core/ingestion"
	"github.com/ledongthuc/pdf"
)

// extractPDF はPDFを1ページ1ユニットで抽出する。
// PageHint にはリーダーのページ番号（1始まり）を設定する。
func extractPDF(filePath string) ([]ingestion.ExtractedUnit, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, extractionError(filePath, err)
	}
	defer f.Close()

	total := reader.NumPage()
	units := make([]ingestion.ExtractedUnit, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, extractionError(filePath, err)
		}

		pageNumber := i
		units = append(units, ingestion.ExtractedUnit{
			Text:       text,
			SourcePath: filePath,
			PageHint:   &pageNumber,
		})
	}

	return units, nil
}
