package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/doc-rag/cmd/doc-rag/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "doc-rag",
		Usage: "ドキュメント取り込みと質問応答のためのRAGサービス",
		Commands: []*cli.Command{
			{
				Name:  "collection",
				Usage: "ベクトルコレクション管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "init",
						Usage: "コレクションを初期化（存在する場合は何もしない）",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.CollectionInitAction,
					},
					{
						Name:  "delete",
						Usage: "指定ファイル由来のベクトルを削除（再取り込みの前処理）",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "filename",
								Usage:    "削除対象のファイル名",
								Required: true,
							},
						},
						Action: commands.CollectionDeleteAction,
					},
				},
			},
			{
				Name:  "ingest",
				Usage: "ドキュメントを取り込んでインデックス化",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringSliceFlag{
						Name:     "file",
						Usage:    "取り込むファイルパス（複数指定可）",
						Required: true,
					},
				},
				Action: commands.IngestAction,
			},
			{
				Name:  "ask",
				Usage: "取り込み済みドキュメントに質問",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "question",
						Usage:    "質問文",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "検索するコンテキスト数（省略時は設定値）",
					},
				},
				Action: commands.AskAction,
			},
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:  "addr",
								Usage: "リッスンアドレス（省略時は環境変数またはデフォルトの:8000）",
							},
						},
						Action: commands.ServerStartAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
