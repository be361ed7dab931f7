// Command voice handles one streamed audio turn from the contact flow.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/alokkulkarni/connect-relay/internal/app"
	"github.com/alokkulkarni/connect-relay/internal/config"
	"github.com/alokkulkarni/connect-relay/internal/logger"
	"github.com/alokkulkarni/connect-relay/internal/model/voice"
)

func main() {
	log := logger.NewLambda()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	awsCfg, err := app.LoadAWS(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatal("unable to load SDK config", zap.Error(err))
	}

	svc := app.NewVoice(awsCfg, cfg, log)

	lambda.Start(func(ctx context.Context, event voice.Event) (voice.Result, error) {
		return svc.Handle(ctx, event), nil
	})
}
