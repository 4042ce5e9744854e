package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators は分割境界の優先順位。
// 段落境界 → 行境界 → 文末記号 → カンマ → スペース → 無条件の文字分割 の順で、
// より自然な境界を優先して探す。末尾の空文字列は無条件分割を意味する。
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}

const (
	// DefaultMaxChunkLen はチャンクの最大文字数のデフォルト
	DefaultMaxChunkLen = 1000
	// DefaultOverlap は隣接チャンク間で重複させる文字数のデフォルト
	DefaultOverlap = 200
)

// Splitter はテキストを境界探索つきで再帰的に分割する。
// 長さはすべて文字（rune）単位で数える。分割を引き起こしたセパレータ文字は
// 出力に保持され、黙って捨てられることはない。
type Splitter struct {
	maxChunkLen int
	overlap     int
	separators  []string
}

// NewSplitter は新しい Splitter を作成する。
// overlap は maxChunkLen より小さくなければならない。
func NewSplitter(maxChunkLen, overlap int) (*Splitter, error) {
	if maxChunkLen <= 0 {
		return nil, fmt.Errorf("max chunk length must be positive: %d", maxChunkLen)
	}
	if overlap < 0 || overlap >= maxChunkLen {
		return nil, fmt.Errorf("overlap must be in [0, %d): %d", maxChunkLen, overlap)
	}
	return &Splitter{
		maxChunkLen: maxChunkLen,
		overlap:     overlap,
		separators:  DefaultSeparators,
	}, nil
}

// Split はテキストを最大長以下のチャンク列に分割する。
// 隣接チャンクはoverlap文字だけ重複する（チャンクiの末尾overlap文字が
// チャンクi+1の先頭に再登場する）。
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	// 前チャンクから持ち越すoverlap分を差し引いた量が1ピースの上限。
	// これにより結合後のチャンク長が常にmaxChunkLenに収まる。
	budget := s.maxChunkLen - s.overlap
	pieces := splitRecursive(text, s.separators, budget)

	return s.merge(pieces)
}

// splitRecursive はテキスト中に現れる最初のセパレータで分割し、
// まだ大きすぎる断片には残りのセパレータを再帰的に適用する。
func splitRecursive(text string, separators []string, budget int) []string {
	if runeLen(text) <= budget {
		return []string{text}
	}

	// 無条件の文字分割（終端セパレータ）
	if len(separators) == 0 || separators[0] == "" {
		return hardCut(text, budget)
	}

	sep := separators[0]
	if !strings.Contains(text, sep) {
		return splitRecursive(text, separators[1:], budget)
	}

	var result []string
	for _, part := range splitAfter(text, sep) {
		if runeLen(part) <= budget {
			result = append(result, part)
			continue
		}
		result = append(result, splitRecursive(part, separators[1:], budget)...)
	}
	return result
}

// splitAfter はセパレータの直後で分割する。セパレータは直前の断片の末尾に残る。
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	// SplitAfterは末尾がセパレータで終わる場合に空文字列を残すため除外する
	result := parts[:0]
	for _, p := range parts {
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// hardCut は境界が見つからないテキストをbudget文字ごとに切り出す
func hardCut(text string, budget int) []string {
	runes := []rune(text)

	var result []string
	for len(runes) > budget {
		result = append(result, string(runes[:budget]))
		runes = runes[budget:]
	}
	if len(runes) > 0 {
		result = append(result, string(runes))
	}
	return result
}

// merge は分割済みの断片を貪欲に結合してチャンクを組み立てる。
// 新しいチャンクは前チャンクの末尾overlap文字を種として開始する。
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, piece := range pieces {
		pieceLen := runeLen(piece)
		if currentLen > 0 && currentLen+pieceLen > s.maxChunkLen {
			chunk := current.String()
			chunks = append(chunks, chunk)

			current.Reset()
			currentLen = 0
			if s.overlap > 0 {
				seed := tail(chunk, s.overlap)
				current.WriteString(seed)
				currentLen = runeLen(seed)
			}
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// tail は文字列の末尾n文字を返す
func tail(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

func runeLen(text string) int {
	return utf8.RuneCountInString(text)
}
