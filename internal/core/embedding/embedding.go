package embedding

import "context"

// Intent はEmbedding生成の用途を表すタグ。
// 非対称Embeddingモデルでは、インデックス用とクエリ用で返されるベクトルが異なるため、
// 呼び出し側は必ず用途を指定する。
type Intent string

const (
	// IntentDocumentIndexing はドキュメントをインデックスに登録するためのEmbedding
	IntentDocumentIndexing Intent = "document-indexing"
	// IntentQueryLookup は検索クエリのためのEmbedding
	IntentQueryLookup Intent = "query-lookup"
)

// Embedder はテキストを固定次元のベクトルに変換するインターフェース。
// 実装は internal/infra 側に置き、オーケストレータにはコンストラクタで注入する。
type Embedder interface {
	// EmbedOne は単一テキストのEmbeddingを生成する
	EmbedOne(ctx context.Context, text string, intent Intent) ([]float32, error)

	// EmbedBatch は複数テキストのEmbeddingを生成する。
	// 戻り値の件数と順序は入力と完全に一致する。途中で外部呼び出しが失敗した場合、
	// 部分的な結果は返さずエラーのみを返す。
	EmbedBatch(ctx context.Context, texts []string, intent Intent) ([][]float32, error)

	// Dimension は生成されるベクトルの次元数を返す
	Dimension() int
}
