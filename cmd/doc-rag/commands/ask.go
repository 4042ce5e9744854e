package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	question := cmd.String("question")
	topK := int(cmd.Int("top-k"))

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if topK <= 0 {
		topK = appCtx.Config.Retrieve.TopK
	}

	answer, err := appCtx.Container.AskService.Ask(ctx, question, topK)
	if err != nil {
		return fmt.Errorf("質問応答に失敗: %w", err)
	}

	fmt.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Printf("\n出典: %s\n", strings.Join(answer.Sources, ", "))
	}
	fmt.Printf("処理時間: %.2f秒\n", answer.ProcessingTime)

	return nil
}
