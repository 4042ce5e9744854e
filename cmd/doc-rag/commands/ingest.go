package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-rag/internal/core/ingestion"
)

// IngestAction はファイルを取り込むコマンドのアクション
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	files := cmd.StringSlice("file")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("コレクションの初期化に失敗: %w", err)
	}

	inputs := make([]ingestion.DocumentInput, 0, len(files))
	for _, path := range files {
		inputs = append(inputs, ingestion.DocumentInput{
			FilePath:    path,
			Filename:    filepath.Base(path),
			ContentType: contentTypeFor(path),
		})
	}

	result, err := appCtx.Container.IngestionService.ProcessDocuments(ctx, inputs)
	if err != nil {
		return fmt.Errorf("取り込みに失敗: %w", err)
	}

	for _, doc := range result.Successful {
		fmt.Printf("OK   %s (%d chunks)\n", doc.Filename, doc.ChunksCreated)
	}
	for _, doc := range result.Failed {
		fmt.Printf("FAIL %s: %s\n", doc.Filename, doc.Reason)
	}
	fmt.Printf("合計 %d 件中 %d 件成功、%d 件失敗\n",
		result.Summary.TotalFiles, result.Summary.SuccessfulCount, result.Summary.FailedCount)

	return nil
}
