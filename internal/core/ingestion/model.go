package ingestion

import (
	"time"
)

// サポートする宣言済みコンテンツタイプ
const (
	ContentTypeText = "text/plain"
	ContentTypePDF  = "application/pdf"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// SupportedContentType は宣言されたコンテンツタイプがサポート対象かを返す
func SupportedContentType(contentType string) bool {
	switch contentType {
	case ContentTypeText, ContentTypePDF, ContentTypeDocx:
		return true
	}
	return false
}

// PageBearingContentType はページという概念を持つフォーマットかどうかを返す。
// ページを持つフォーマットでページメタデータが欠落している場合、
// チャンクのページ番号は1をデフォルトとする（単一ページフォールバック）。
func PageBearingContentType(contentType string) bool {
	return contentType == ContentTypePDF || contentType == ContentTypeDocx
}

// ExtractedUnit は抽出された1ページ（またはセクション）のテキスト。
// Extractorが生成し、チャンカーだけが消費する。永続化はされない。
type ExtractedUnit struct {
	Text       string
	SourcePath string
	// PageHint は元ファイル自身が持つページ番号。ページ概念のない
	// フォーマットやメタデータが無い場合は nil。
	PageHint *int
}

// DocumentInput は取り込み対象の1ファイル。
// 一時ファイルの作成と削除は呼び出し側（トランスポート層）の責務。
type DocumentInput struct {
	FilePath    string
	Filename    string
	ContentType string
}

// ProcessedDocument は1ファイルの取り込みに成功した結果
type ProcessedDocument struct {
	Filename      string    `json:"filename"`
	ChunksCreated int       `json:"chunks_created"`
	ContentType   string    `json:"content_type"`
	CreatedAt     time.Time `json:"created_at"`
}

// FailedDocument は1ファイルの取り込みに失敗した結果。
// 失敗したファイルはバッチ内の他ファイルに影響しない。
type FailedDocument struct {
	Filename string `json:"filename"`
	Reason   string `json:"error"`
}

// BatchSummary はバッチ取り込みの集計
type BatchSummary struct {
	TotalFiles      int `json:"total_files"`
	SuccessfulCount int `json:"successful_count"`
	FailedCount     int `json:"failed_count"`
}

// BatchResult はバッチ取り込み全体の結果。
// 成功と失敗を1つの明示的な結果型にまとめ、「中身ゼロの成功」と
// 「失敗」を呼び出し側が取り違えられないようにしている。
type BatchResult struct {
	Successful []ProcessedDocument `json:"successful"`
	Failed     []FailedDocument    `json:"failed"`
	Summary    BatchSummary        `json:"summary"`
}
