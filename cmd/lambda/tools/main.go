// Command tools serves the simulated banking tools.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/app"
	"github.com/alokkulkarni/connect-relay/internal/config"
	"github.com/alokkulkarni/connect-relay/internal/logger"
	"github.com/alokkulkarni/connect-relay/internal/model/tool"
)

func main() {
	log := logger.NewLambda()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	svc := app.NewTools(cfg, log)

	lambda.Start(func(ctx context.Context, event tool.Event) (tool.Response, error) {
		return svc.Invoke(ctx, event), nil
	})
}
