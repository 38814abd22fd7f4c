package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/config"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/dashboard"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/handler"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/publish"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/telemetry"
)

func main() {
	startTime := time.Now()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("cannot load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Error("cannot load aws config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	var sender publish.Sender
	if senders := publish.NewSenders(awsCfg, cfg); len(senders) > 0 {
		sender = senders
	}

	tp, err := telemetry.NewTracerProvider(ctx, lambdacontext.FunctionName)
	if err != nil {
		logger.Error("cannot initialize tracer provider", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("cannot shutdown tracer provider", slog.String("error", err.Error()))
		}
	}()

	logger.Info(
		"started alerts macro",
		slog.String("region", cfg.AWSRegion),
		slog.String("stage", cfg.Stage),
		slog.Bool("publishing", sender != nil),
		slog.Float64("initDurationSec", time.Since(startTime).Seconds()),
	)

	h := handler.NewMacroHandler(
		dashboard.NewRenderer(),
		sender,
		logger,
		handler.Defaults{Service: cfg.Service, Stage: cfg.Stage},
		cfg.PublishTimeout,
	)
	lambda.Start(
		otellambda.InstrumentHandler(
			h.HandleRequest,
			otellambda.WithTracerProvider(tp),
			otellambda.WithFlusher(tp)),
	)
}
