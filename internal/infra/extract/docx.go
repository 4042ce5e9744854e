package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/jinford/doc-rag/internal/core/ingestion"
)

// docxDocumentPath はDOCXアーカイブ内の本文XMLのパス
const docxDocumentPath = "word/document.xml"

// extractDocx はWord文書（OOXML）からセクション単位のユニット列を抽出する。
// DOCXはZIPに格納されたXMLなので、word/document.xml をストリームで読み、
// 明示的な改ページ（w:br w:type="page" / w:lastRenderedPageBreak）を
// セクション境界として扱う。改ページが1つも無い文書は1ユニットになり、
// その場合のページ番号解決は下流の単一ページフォールバックに委ねる。
func extractDocx(filePath string) ([]ingestion.ExtractedUnit, error) {
	archive, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, extractionError(filePath, err)
	}
	defer archive.Close()

	doc, err := openDocxDocument(archive)
	if err != nil {
		return nil, extractionError(filePath, err)
	}
	defer doc.Close()

	sections, err := readDocxSections(doc)
	if err != nil {
		return nil, extractionError(filePath, err)
	}

	// 改ページが検出できた場合のみページ番号を確定させる
	pageKnown := len(sections) > 1

	units := make([]ingestion.ExtractedUnit, 0, len(sections))
	for i, text := range sections {
		if strings.TrimSpace(text) == "" {
			continue
		}

		unit := ingestion.ExtractedUnit{
			Text:       text,
			SourcePath: filePath,
		}
		if pageKnown {
			pageNumber := i + 1
			unit.PageHint = &pageNumber
		}
		units = append(units, unit)
	}

	return units, nil
}

func openDocxDocument(archive *zip.ReadCloser) (io.ReadCloser, error) {
	for _, file := range archive.File {
		if file.Name == docxDocumentPath {
			return file.Open()
		}
	}
	return nil, errors.New("word/document.xml not found in archive")
}

// readDocxSections は本文XMLをトークン単位で走査し、改ページごとの
// テキスト区間を返す。段落の終端は改行として扱う。
func readDocxSections(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var sections []string
	var current strings.Builder
	inText := false

	flush := func() {
		sections = append(sections, current.String())
		current.Reset()
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "lastRenderedPageBreak":
				flush()
			case "br":
				if docxBreakType(t) == "page" {
					flush()
				} else {
					current.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				current.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	flush()
	return sections, nil
}

func docxBreakType(el xml.StartElement) string {
	for _, attr := range el.Attr {
		if attr.Name.Local == "type" {
			return attr.Value
		}
	}
	return ""
}
