// Package http はRAGサービスのHTTP APIを提供する。
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/jinford/doc-rag/internal/core/ask"
	"github.com/jinford/doc-rag/internal/core/ingestion"
	"github.com/jinford/doc-rag/internal/core/retrieval"
)

// DocumentIngestor はドキュメント取り込み操作
type DocumentIngestor interface {
	ProcessDocument(ctx context.Context, input ingestion.DocumentInput) (*ingestion.ProcessedDocument, error)
	ProcessDocuments(ctx context.Context, inputs []ingestion.DocumentInput) (*ingestion.BatchResult, error)
}

// QuestionAnswerer は質問応答操作
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, topK int) (*ask.Answer, error)
}

// Handler はHTTPエンドポイントの実装
type Handler struct {
	ingestor DocumentIngestor
	answerer QuestionAnswerer
	topK     int
	logger   *slog.Logger
}

// NewHandler は新しい Handler を作成する
func NewHandler(ingestor DocumentIngestor, answerer QuestionAnswerer, topK int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Handler{
		ingestor: ingestor,
		answerer: answerer,
		topK:     topK,
		logger:   logger,
	}
}

// RegisterRoutes はエンドポイントをルーターに登録する
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.root)
	router.GET("/health", h.health)

	v1 := router.Group("/api/v1")
	v1.POST("/documents/upload", h.uploadDocument)
	v1.POST("/documents/upload-multiple", h.uploadMultipleDocuments)
	v1.POST("/chat", h.chat)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "RAG Chat API",
		"version": "1.0.0",
		"status":  "running",
	})
}

func (h *Handler) health(c *gin.Context) {
	if h.ingestor == nil || h.answerer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "services not initialized",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"services": gin.H{
			"vector_store":      "ok",
			"embedding_service": "ok",
			"llm_service":       "ok",
		},
	})
}

// uploadDocument は単一ファイルを取り込む
func (h *Handler) uploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "file is required"})
		return
	}

	input, cleanup, err := h.saveUpload(c, fileHeader)
	if err != nil {
		h.logger.Error("アップロードファイルの保存に失敗しました", "filename", fileHeader.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to store uploaded file"})
		return
	}
	defer cleanup()

	doc, err := h.ingestor.ProcessDocument(c.Request.Context(), input)
	if err != nil {
		h.logger.Error("ドキュメント取り込みに失敗しました", "filename", input.Filename, "error", err)
		c.JSON(statusForIngestError(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "document uploaded and processed successfully",
		"data":    doc,
	})
}

// uploadMultipleDocuments は複数ファイルをまとめて取り込む。
// 個々のファイルの失敗はバッチ全体を止めない。
func (h *Handler) uploadMultipleDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "multipart form is required"})
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "files are required"})
		return
	}

	inputs := make([]ingestion.DocumentInput, 0, len(fileHeaders))
	cleanups := make([]func(), 0, len(fileHeaders))
	defer func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	for _, fileHeader := range fileHeaders {
		input, cleanup, err := h.saveUpload(c, fileHeader)
		if err != nil {
			h.logger.Error("アップロードファイルの保存に失敗しました", "filename", fileHeader.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to store uploaded files"})
			return
		}
		cleanups = append(cleanups, cleanup)
		inputs = append(inputs, input)
	}

	result, err := h.ingestor.ProcessDocuments(c.Request.Context(), inputs)
	if err != nil {
		h.logger.Error("一括取り込みに失敗しました", "files", len(inputs), "error", err)
		c.JSON(statusForIngestError(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "completed",
		"message": fmt.Sprintf("processed %d documents successfully, %d failed",
			result.Summary.SuccessfulCount, result.Summary.FailedCount),
		"data": result,
	})
}

// chatRequest は質問リクエストのボディ
type chatRequest struct {
	Question string `json:"question" binding:"required"`
}

// chat は質問に対してRAGパイプラインで回答する
func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "question is required"})
		return
	}

	answer, err := h.answerer.Ask(c.Request.Context(), req.Question, h.topK)
	if err != nil {
		h.logger.Error("質問応答に失敗しました", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to answer question"})
		return
	}

	c.JSON(http.StatusOK, answer)
}

// saveUpload はアップロードを一時ファイルに保存し、入力と後始末関数を返す
func (h *Handler) saveUpload(c *gin.Context, fileHeader *multipart.FileHeader) (ingestion.DocumentInput, func(), error) {
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(fileHeader.Filename))
	if err != nil {
		return ingestion.DocumentInput{}, nil, err
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ingestion.DocumentInput{}, nil, err
	}

	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		os.Remove(tmpPath)
		return ingestion.DocumentInput{}, nil, err
	}

	cleanup := func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("一時ファイルの削除に失敗しました", "path", tmpPath, "error", err)
		}
	}

	return ingestion.DocumentInput{
		FilePath:    tmpPath,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}, cleanup, nil
}

// statusForIngestError は取り込みエラーをHTTPステータスへ対応付ける
func statusForIngestError(err error) int {
	switch {
	case errors.Is(err, ingestion.ErrUnsupportedFormat), errors.Is(err, ingestion.ErrTooManyFiles):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
