package vectorstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DistanceMetric はベクトル間の距離関数を表す
type DistanceMetric string

const (
	// MetricCosine はコサイン距離（デフォルト）
	MetricCosine DistanceMetric = "cosine"
	// MetricL2 はユークリッド距離
	MetricL2 DistanceMetric = "l2"
	// MetricInnerProduct は内積
	MetricInnerProduct DistanceMetric = "inner_product"
)

// Payload はベクトルと一緒に永続化されるチャンクのメタデータ。
// フィールド名はストア側のスキーマ（document / source / filename /
// page_number / chunk_index / created_at）と一対一で対応し、安定である必要がある。
type Payload struct {
	Document   string
	Source     string
	Filename   string
	PageNumber *int
	ChunkIndex int
	CreatedAt  time.Time
}

// SearchHit は類似検索の1件のヒット
type SearchHit struct {
	ID      uuid.UUID
	Score   float64
	Payload Payload
}

// Store はベクトルデータベースへのゲートウェイ。
// コレクションのライフサイクル（存在しなければ作成）を所有し、
// 内部レコードとストア固有のポイント表現の変換を担う。
type Store interface {
	// EnsureCollection はコレクションの存在を確認し、無ければ作成する。
	// 冪等であり、起動のたびに呼んで安全。並行して作成が走った場合、
	// 「すでに存在する」応答は成功として扱う。
	EnsureCollection(ctx context.Context) error

	// Upsert はベクトルごとに新しいランダムIDを生成し、1回のバッチ書き込みで
	// ポイントを登録する。書き込みが失敗した場合は呼び出し全体が失敗し、
	// チャンク単位のリトライは行わない。戻り値は生成されたID（入力順）。
	Upsert(ctx context.Context, vectors [][]float32, payloads []Payload) ([]uuid.UUID, error)

	// Search は最近傍検索を実行し、類似度の降順で最大limit件を返す
	Search(ctx context.Context, queryVector []float32, limit int) ([]SearchHit, error)

	// DeleteByFilename は指定ファイル由来のポイントを削除する。
	// 更新は常に削除→再登録で表現され、ポイントのペイロードを
	// インプレースで書き換えることはない。
	DeleteByFilename(ctx context.Context, filename string) (int64, error)
}
