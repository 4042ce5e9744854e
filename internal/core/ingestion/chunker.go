package ingestion

import (
	"path/filepath"
	"time"

	"github.com/jinford/doc-rag/internal/core/ingestion/chunk"
)

// Chunk は保存・検索される最小単位。生成後は不変で、永続化された後に
// 書き換えられることはない（更新は削除→再登録でのみ表現される）。
type Chunk struct {
	// Content は正規化済みテキスト
	Content    string
	SourcePath string
	Filename   string
	// PageNumber はページ概念のないフォーマットではnil。
	// ページを持つフォーマットでメタデータが無い場合は1。
	PageNumber *int
	// ChunkIndex は1ファイル内で0始まりの連番。ページ境界をまたいで連続する。
	ChunkIndex int
	CreatedAt  time.Time
}

// Chunker は抽出済みユニット列をチャンク列へ変換する。
// 分割の力学（境界探索とオーバーラップ）は chunk.Splitter に委譲し、
// ここでは出自メタデータの付与とインデックスの採番を担う。
type Chunker struct {
	splitter *chunk.Splitter
	now      func() time.Time
}

// ChunkerOption は Chunker のオプション設定
type ChunkerOption func(*Chunker)

// WithChunkerClock は生成時刻の取得関数を差し替える（テスト用）
func WithChunkerClock(now func() time.Time) ChunkerOption {
	return func(c *Chunker) {
		c.now = now
	}
}

// NewChunker は新しい Chunker を作成する
func NewChunker(maxChunkLen, overlap int, opts ...ChunkerOption) (*Chunker, error) {
	splitter, err := chunk.NewSplitter(maxChunkLen, overlap)
	if err != nil {
		return nil, err
	}

	c := &Chunker{
		splitter: splitter,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Chunk は1ファイル分の抽出済みユニット列をチャンク化する。
// filenameはアップロード時の元ファイル名で、そのままチャンクの出自情報になる
// （空の場合はソースパスのベース名にフォールバックする）。
// チャンクインデックスはユニット（ページ）ごとにリセットせず、
// ファイル全体を通して 0..n-1 の連番になる。正規化後に空になった
// チャンクは、数えられる前に取り除かれる。
func (c *Chunker) Chunk(units []ExtractedUnit, contentType, filename string) []Chunk {
	createdAt := c.now()

	var chunks []Chunk
	index := 0
	for _, unit := range units {
		pageNumber := resolvePageNumber(unit, contentType)

		name := filename
		if name == "" {
			name = filepath.Base(unit.SourcePath)
		}

		for _, piece := range c.splitter.Split(unit.Text) {
			content := chunk.Normalize(piece)
			if content == "" {
				continue
			}

			chunks = append(chunks, Chunk{
				Content:    content,
				SourcePath: unit.SourcePath,
				Filename:   name,
				PageNumber: pageNumber,
				ChunkIndex: index,
				CreatedAt:  createdAt,
			})
			index++
		}
	}
	return chunks
}

// resolvePageNumber はユニットのページヒントからチャンクのページ番号を決める。
// プレーンテキストは常にnil。ページを持つフォーマットでヒントが無い場合は
// 単一ページとみなして1を割り当てる。
func resolvePageNumber(unit ExtractedUnit, contentType string) *int {
	if !PageBearingContentType(contentType) {
		return nil
	}
	if unit.PageHint != nil {
		page := *unit.PageHint
		return &page
	}
	defaultPage := 1
	return &defaultPage
}
