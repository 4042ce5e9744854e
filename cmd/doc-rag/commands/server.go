package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	httpiface "github.com/jinford/doc-rag/internal/interface/http"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	addr := cmd.String("addr")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if addr == "" {
		addr = appCtx.Config.HTTP.Addr
	}

	// 起動時にコレクションを用意しておく
	if err := appCtx.Container.Store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("コレクションの初期化に失敗: %w", err)
	}

	handler := httpiface.NewHandler(
		appCtx.Container.IngestionService,
		appCtx.Container.AskService,
		appCtx.Config.Retrieve.TopK,
		appCtx.Logger(),
	)
	server := httpiface.NewServer(addr, handler, appCtx.Logger())

	return server.Run(ctx)
}
