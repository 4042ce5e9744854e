package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// CollectionInitAction はベクトルコレクションを初期化するコマンドのアクション
func CollectionInitAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("コレクションの初期化に失敗: %w", err)
	}

	appCtx.Logger().Info("コレクションを初期化しました",
		"collection", appCtx.Config.Ingest.Collection,
		"dimension", appCtx.Config.Gemini.Dimension,
	)
	return nil
}

// CollectionDeleteAction は指定ファイル名に紐づくベクトルを削除するコマンドのアクション
func CollectionDeleteAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	filename := cmd.String("filename")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	deleted, err := appCtx.Container.Store.DeleteByFilename(ctx, filename)
	if err != nil {
		return fmt.Errorf("ベクトルの削除に失敗: %w", err)
	}

	appCtx.Logger().Info("ベクトルを削除しました",
		"filename", filename,
		"deleted", deleted,
	)
	fmt.Printf("%d 件のベクトルを削除しました: %s\n", deleted, filename)
	return nil
}
