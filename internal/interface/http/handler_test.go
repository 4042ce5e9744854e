package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-rag/internal/core/ask"
	"github.com/jinford/doc-rag/internal/core/ingestion"
)

type stubIngestor struct {
	processErr  error
	batchErr    error
	gotInputs   []ingestion.DocumentInput
	batchResult *ingestion.BatchResult
}

func (s *stubIngestor) ProcessDocument(_ context.Context, input ingestion.DocumentInput) (*ingestion.ProcessedDocument, error) {
	s.gotInputs = append(s.gotInputs, input)
	if s.processErr != nil {
		return nil, s.processErr
	}
	return &ingestion.ProcessedDocument{
		Filename:      input.Filename,
		ChunksCreated: 3,
		ContentType:   input.ContentType,
		CreatedAt:     time.Now(),
	}, nil
}

func (s *stubIngestor) ProcessDocuments(_ context.Context, inputs []ingestion.DocumentInput) (*ingestion.BatchResult, error) {
	s.gotInputs = append(s.gotInputs, inputs...)
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	return s.batchResult, nil
}

type stubAnswerer struct {
	gotQuestion string
	gotTopK     int
	err         error
}

func (s *stubAnswerer) Ask(_ context.Context, question string, topK int) (*ask.Answer, error) {
	s.gotQuestion = question
	s.gotTopK = topK
	if s.err != nil {
		return nil, s.err
	}
	return &ask.Answer{
		Answer:         "コンテキストに基づく回答です。",
		Sources:        []string{"report.pdf"},
		ProcessingTime: 0.42,
	}, nil
}

func newTestRouter(ingestor *stubIngestor, answerer *stubAnswerer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandler(ingestor, answerer, 5, nil).RegisterRoutes(engine)
	return engine
}

// multipartBody は指定したContent-Typeのファイルパートを持つボディを組み立てる
func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for filename, contentType := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("ファイルの中身"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	t.Run("取り込み成功で201と処理結果を返す", func(t *testing.T) {
		ingestor := &stubIngestor{}
		router := newTestRouter(ingestor, &stubAnswerer{})

		body, contentType := multipartBody(t, "file", map[string]string{"notes.txt": "text/plain"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Status string                      `json:"status"`
			Data   ingestion.ProcessedDocument `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "notes.txt", resp.Data.Filename)
		assert.Equal(t, 3, resp.Data.ChunksCreated)

		// ハンドラーは一時ファイルに保存し、アップロード時のファイル名を別に渡す
		require.Len(t, ingestor.gotInputs, 1)
		assert.Equal(t, "notes.txt", ingestor.gotInputs[0].Filename)
		assert.NotEqual(t, "notes.txt", ingestor.gotInputs[0].FilePath)
		assert.Equal(t, "text/plain", ingestor.gotInputs[0].ContentType)
		// 一時ファイルはレスポンス後に削除される
		_, err := os.Stat(ingestor.gotInputs[0].FilePath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("未対応フォーマットは400", func(t *testing.T) {
		ingestor := &stubIngestor{processErr: fmt.Errorf("precheck: %w", ingestion.ErrUnsupportedFormat)}
		router := newTestRouter(ingestor, &stubAnswerer{})

		body, contentType := multipartBody(t, "file", map[string]string{"img.png": "image/png"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("空ドキュメントは422", func(t *testing.T) {
		ingestor := &stubIngestor{processErr: fmt.Errorf("chunking: %w", ingestion.ErrEmptyDocument)}
		router := newTestRouter(ingestor, &stubAnswerer{})

		body, contentType := multipartBody(t, "file", map[string]string{"empty.txt": "text/plain"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("ファイル未指定は400", func(t *testing.T) {
		router := newTestRouter(&stubIngestor{}, &stubAnswerer{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", strings.NewReader(""))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUploadMultipleDocuments(t *testing.T) {
	t.Run("一部失敗してもバッチ結果を201で返す", func(t *testing.T) {
		ingestor := &stubIngestor{
			batchResult: &ingestion.BatchResult{
				Successful: []ingestion.ProcessedDocument{
					{Filename: "a.txt", ChunksCreated: 2, ContentType: "text/plain"},
				},
				Failed: []ingestion.FailedDocument{
					{Filename: "b.png", Reason: "unsupported document format"},
				},
				Summary: ingestion.BatchSummary{TotalFiles: 2, SuccessfulCount: 1, FailedCount: 1},
			},
		}
		router := newTestRouter(ingestor, &stubAnswerer{})

		body, contentType := multipartBody(t, "files", map[string]string{
			"a.txt": "text/plain",
			"b.png": "image/png",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload-multiple", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Status  string                `json:"status"`
			Message string                `json:"message"`
			Data    ingestion.BatchResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, "processed 1 documents successfully, 1 failed", resp.Message)
		assert.Equal(t, 2, resp.Data.Summary.TotalFiles)
		require.Len(t, resp.Data.Failed, 1)
		assert.Equal(t, "b.png", resp.Data.Failed[0].Filename)
	})

	t.Run("ファイル数超過は400", func(t *testing.T) {
		ingestor := &stubIngestor{batchErr: fmt.Errorf("precheck: %w", ingestion.ErrTooManyFiles)}
		router := newTestRouter(ingestor, &stubAnswerer{})

		body, contentType := multipartBody(t, "files", map[string]string{"a.txt": "text/plain"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload-multiple", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ファイルなしは400", func(t *testing.T) {
		router := newTestRouter(&stubIngestor{}, &stubAnswerer{})

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("note", "no files"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload-multiple", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestChat(t *testing.T) {
	t.Run("回答と出典を返す", func(t *testing.T) {
		answerer := &stubAnswerer{}
		router := newTestRouter(&stubIngestor{}, answerer)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"question":"要点は?"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp ask.Answer
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "コンテキストに基づく回答です。", resp.Answer)
		assert.Equal(t, []string{"report.pdf"}, resp.Sources)
		assert.InDelta(t, 0.42, resp.ProcessingTime, 1e-9)

		assert.Equal(t, "要点は?", answerer.gotQuestion)
		assert.Equal(t, 5, answerer.gotTopK)
	})

	t.Run("questionフィールドなしは400", func(t *testing.T) {
		router := newTestRouter(&stubIngestor{}, &stubAnswerer{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("検索失敗は500", func(t *testing.T) {
		router := newTestRouter(&stubIngestor{}, &stubAnswerer{err: fmt.Errorf("boom")})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"question":"?"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubIngestor{}, &stubAnswerer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}
