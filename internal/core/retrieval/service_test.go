package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-rag/internal/core/embedding"
	"github.com/jinford/doc-rag/internal/core/vectorstore"
)

type stubEmbedder struct {
	err       bool
	gotIntent embedding.Intent
	gotText   string
}

func (s *stubEmbedder) EmbedOne(_ context.Context, text string, intent embedding.Intent) ([]float32, error) {
	s.gotText = text
	s.gotIntent = intent
	if s.err {
		return nil, errors.New("embedding api down")
	}
	return []float32{0.1, 0.2}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string, intent embedding.Intent) ([][]float32, error) {
	vec, err := s.EmbedOne(ctx, texts[0], intent)
	if err != nil {
		return nil, err
	}
	return [][]float32{vec}, nil
}

func (s *stubEmbedder) Dimension() int { return 2 }

type stubSearcher struct {
	hits     []vectorstore.SearchHit
	err      bool
	gotLimit int
}

func (s *stubSearcher) Search(_ context.Context, _ []float32, limit int) ([]vectorstore.SearchHit, error) {
	s.gotLimit = limit
	if s.err {
		return nil, errors.New("store unreachable")
	}
	return s.hits, nil
}

func intPtr(n int) *int { return &n }

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("ヒットをストアの順序のまま変換して返す", func(t *testing.T) {
		ids := []uuid.UUID{uuid.New(), uuid.New()}
		searcher := &stubSearcher{hits: []vectorstore.SearchHit{
			{ID: ids[0], Score: 0.92, Payload: vectorstore.Payload{Document: "first", Filename: "a.pdf", PageNumber: intPtr(3)}},
			{ID: ids[1], Score: 0.85, Payload: vectorstore.Payload{Document: "second", Filename: "b.txt"}},
		}}
		embedder := &stubEmbedder{}
		svc := NewService(embedder, searcher)

		contexts, err := svc.Retrieve(ctx, "質問です", 2)
		require.NoError(t, err)
		require.Len(t, contexts, 2)

		assert.Equal(t, ids[0], contexts[0].VectorID)
		assert.Equal(t, 0.92, contexts[0].RelevanceScore)
		assert.Equal(t, "first", contexts[0].Content)
		assert.Equal(t, "a.pdf", contexts[0].Filename)
		require.NotNil(t, contexts[0].PageNumber)
		assert.Equal(t, 3, *contexts[0].PageNumber)

		assert.Nil(t, contexts[1].PageNumber)

		// 質問はクエリ用途のタグでEmbeddingされる
		assert.Equal(t, embedding.IntentQueryLookup, embedder.gotIntent)
		assert.Equal(t, "質問です", embedder.gotText)
		assert.Equal(t, 2, searcher.gotLimit)
	})

	t.Run("topKが0以下ならデフォルト値を使う", func(t *testing.T) {
		searcher := &stubSearcher{}
		svc := NewService(&stubEmbedder{}, searcher)

		_, err := svc.Retrieve(ctx, "question", 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultTopK, searcher.gotLimit)
	})

	t.Run("空の質問はErrRetrievalFailed", func(t *testing.T) {
		svc := NewService(&stubEmbedder{}, &stubSearcher{})

		_, err := svc.Retrieve(ctx, "", 5)
		require.ErrorIs(t, err, ErrRetrievalFailed)
	})

	t.Run("Embedding失敗はErrRetrievalFailedに包まれる", func(t *testing.T) {
		svc := NewService(&stubEmbedder{err: true}, &stubSearcher{})

		_, err := svc.Retrieve(ctx, "question", 5)
		require.ErrorIs(t, err, ErrRetrievalFailed)
	})

	t.Run("検索失敗はErrRetrievalFailedに包まれる", func(t *testing.T) {
		svc := NewService(&stubEmbedder{}, &stubSearcher{err: true})

		_, err := svc.Retrieve(ctx, "question", 5)
		require.ErrorIs(t, err, ErrRetrievalFailed)
	})

	t.Run("ヒット0件はエラーではなく空のコンテキスト", func(t *testing.T) {
		svc := NewService(&stubEmbedder{}, &stubSearcher{})

		contexts, err := svc.Retrieve(ctx, "question", 5)
		require.NoError(t, err)
		assert.Empty(t, contexts)
	})
}
