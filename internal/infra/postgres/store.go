// Package postgres は pgvector を使った vectorstore.Store 実装を提供する。
// コレクションはテーブルに対応させ、ペイロードは列として保持する。
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/jinford/doc-rag/internal/core/vectorstore"
)

// identifierPattern はコレクション名として許可する識別子の形式
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrInvalidCollectionName はコレクション名が識別子として不正な場合のエラー
var ErrInvalidCollectionName = errors.New("invalid collection name")

// NewPool は pgvector 型を登録済みの接続プールを作成する。
// vector 拡張が未導入だと型登録が失敗するため、プール作成前に
// 単発の接続で CREATE EXTENSION を済ませておく。
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	setup, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	_, err = setup.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	closeErr := setup.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close setup connection: %w", closeErr)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// Store は vectorstore.Store のPostgreSQL実装
type Store struct {
	pool       *pgxpool.Pool
	collection string
	dimension  int
	metric     vectorstore.DistanceMetric
}

var _ vectorstore.Store = (*Store)(nil)

// NewStore は新しい Store を作成する
func NewStore(pool *pgxpool.Pool, collection string, dimension int, metric vectorstore.DistanceMetric) (*Store, error) {
	if !identifierPattern.MatchString(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollectionName, collection)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if _, _, err := metricOps(metric); err != nil {
		return nil, err
	}

	return &Store{
		pool:       pool,
		collection: collection,
		dimension:  dimension,
		metric:     metric,
	}, nil
}

// EnsureCollection はコレクション用テーブルとインデックスを作成する。
// 既に存在する場合は何もしない。並行して呼ばれても安全。
func (s *Store) EnsureCollection(ctx context.Context) error {
	table := pgx.Identifier{s.collection}.Sanitize()
	opclass, _, err := metricOps(s.metric)
	if err != nil {
		return err
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          UUID PRIMARY KEY,
			document    TEXT NOT NULL,
			source      TEXT NOT NULL,
			filename    TEXT NOT NULL,
			page_number INTEGER,
			chunk_index INTEGER NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, table, s.dimension)
	if _, err := s.pool.Exec(ctx, createTable); err != nil && !isDuplicateObject(err) {
		return fmt.Errorf("failed to create collection %q: %w", s.collection, err)
	}

	createIndex := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding %s)`,
		pgx.Identifier{s.collection + "_embedding_idx"}.Sanitize(), table, opclass,
	)
	if _, err := s.pool.Exec(ctx, createIndex); err != nil && !isDuplicateObject(err) {
		return fmt.Errorf("failed to create embedding index for %q: %w", s.collection, err)
	}

	return nil
}

// Upsert はベクトルとペイロードをまとめて登録し、採番したIDを返す。
// 1トランザクションで書き込むため、失敗時に一部だけ残ることはない。
func (s *Store) Upsert(ctx context.Context, vectors [][]float32, payloads []vectorstore.Payload) ([]uuid.UUID, error) {
	if len(vectors) != len(payloads) {
		return nil, fmt.Errorf("vectors and payloads length mismatch: %d != %d", len(vectors), len(payloads))
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to upsert")
	}

	ids := make([]uuid.UUID, len(vectors))
	rows := make([][]any, len(vectors))
	for i, vec := range vectors {
		if len(vec) != s.dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vec), s.dimension)
		}
		ids[i] = uuid.New()
		p := payloads[i]
		rows[i] = []any{
			ids[i], p.Document, p.Source, p.Filename,
			p.PageNumber, p.ChunkIndex, p.CreatedAt, pgvector.NewVector(vec),
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{s.collection},
		[]string{"id", "document", "source", "filename", "page_number", "chunk_index", "created_at", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert vectors: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return ids, nil
}

// Search はクエリベクトルに近い順に最大limit件のヒットを返す
func (s *Store) Search(ctx context.Context, queryVector []float32, limit int) ([]vectorstore.SearchHit, error) {
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, expected %d", len(queryVector), s.dimension)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	_, operator, err := metricOps(s.metric)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, document, source, filename, page_number, chunk_index, created_at,
		       embedding %s $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`, operator, pgx.Identifier{s.collection}.Sanitize())

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", s.collection, err)
	}
	defer rows.Close()

	hits := make([]vectorstore.SearchHit, 0, limit)
	for rows.Next() {
		var (
			hit      vectorstore.SearchHit
			distance float64
		)
		err := rows.Scan(
			&hit.ID, &hit.Payload.Document, &hit.Payload.Source, &hit.Payload.Filename,
			&hit.Payload.PageNumber, &hit.Payload.ChunkIndex, &hit.Payload.CreatedAt,
			&distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		hit.Score = scoreFromDistance(s.metric, distance)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search hits: %w", err)
	}

	return hits, nil
}

// DeleteByFilename は指定ファイル由来のベクトルを削除し、削除件数を返す。
// 同一ファイルの再取り込み時に古いチャンクを消すために使う。
func (s *Store) DeleteByFilename(ctx context.Context, filename string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE filename = $1`, pgx.Identifier{s.collection}.Sanitize())

	tag, err := s.pool.Exec(ctx, query, filename)
	if err != nil {
		return 0, fmt.Errorf("failed to delete vectors for %q: %w", filename, err)
	}
	return tag.RowsAffected(), nil
}

// metricOps は距離メトリックに対応するインデックス演算子クラスと距離演算子を返す
func metricOps(metric vectorstore.DistanceMetric) (opclass string, operator string, err error) {
	switch metric {
	case vectorstore.MetricCosine:
		return "vector_cosine_ops", "<=>", nil
	case vectorstore.MetricL2:
		return "vector_l2_ops", "<->", nil
	case vectorstore.MetricInnerProduct:
		return "vector_ip_ops", "<#>", nil
	}
	return "", "", fmt.Errorf("unsupported distance metric: %q", metric)
}

// scoreFromDistance は距離を「大きいほど類似」のスコアに変換する。
// cosineは 1 - 距離、それ以外は符号反転で単調性を揃える。
func scoreFromDistance(metric vectorstore.DistanceMetric, distance float64) float64 {
	if metric == vectorstore.MetricCosine {
		return 1 - distance
	}
	return -distance
}

// isDuplicateObject は並行作成時の重複エラーを判定する
func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 42P07: duplicate_table, 23505: unique_violation (pg_typeの競合で出ることがある)
	return pgErr.Code == "42P07" || pgErr.Code == "23505"
}
