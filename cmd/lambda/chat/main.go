// Command chat is the Lex V2 code hook for text turns.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/app"
	"github.com/alokkulkarni/connect-relay/internal/config"
	"github.com/alokkulkarni/connect-relay/internal/logger"
	"github.com/alokkulkarni/connect-relay/internal/model/lex"
)

func main() {
	log := logger.NewLambda()
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	awsCfg, err := app.LoadAWS(ctx, cfg.AWS)
	if err != nil {
		log.Fatal("unable to load SDK config", zap.Error(err))
	}

	turns, err := app.NewTurnRouter(ctx, awsCfg, cfg, log)
	if err != nil {
		log.Fatal("failed to build turn router", zap.Error(err))
	}

	// 学习任务在返回后继续运行，实例被冻结时会在下一次唤醒后完成。
	lambda.Start(func(ctx context.Context, event lex.Event) (lex.Response, error) {
		return turns.Router.Route(ctx, event), nil
	})
}
