package chunk

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun      = regexp.MustCompile(`\s+`)
	numberedListMarker = regexp.MustCompile(`(\d+\.\s*)`)
	spaceBeforePunct   = regexp.MustCompile(`\s+([,.!?])`)
	missingSpaceAfter  = regexp.MustCompile(`([.!?])([^\s])`)
	multiSpace         = regexp.MustCompile(` {2,}`)
	spaceAfterBreak    = regexp.MustCompile(`\n[ \t]+`)
	spaceBeforeBreak   = regexp.MustCompile(`[ \t]+\n`)
)

// Normalize はチャンクの生テキストを保存用に正規化する。
// 変換は決定的かつ冪等で、正規化済みテキストに再適用しても結果は変わらない。
func Normalize(text string) string {
	// 先頭と末尾の引用符を除去
	cleaned := strings.Trim(text, `'"`)

	// 改行を含む空白の連続を1つのスペースに潰す
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	// 番号付きリストのマーカー直前に改行を入れ直し、1行1項目の構造を保つ
	cleaned = numberedListMarker.ReplaceAllString(cleaned, "\n$1")

	// 句読点の前の空白を除去し、文末記号の後にスペースを保証する
	cleaned = spaceBeforePunct.ReplaceAllString(cleaned, "$1")
	cleaned = missingSpaceAfter.ReplaceAllString(cleaned, "$1 $2")

	// 残った2つ以上のスペースを1つにまとめ、改行の前後の空白を整える
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	cleaned = spaceAfterBreak.ReplaceAllString(cleaned, "\n")
	cleaned = spaceBeforeBreak.ReplaceAllString(cleaned, "\n")

	return strings.TrimSpace(cleaned)
}
