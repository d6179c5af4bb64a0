package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/charmbracelet/log"
	"github.com/cruxstack/disposable-email-checker-go/internal/checker"
	"github.com/cruxstack/disposable-email-checker-go/internal/config"
	"github.com/cruxstack/disposable-email-checker-go/internal/signup"
)

var (
	cfg     *config.Config
	handler *signup.Handler
)

func Handler(ctx context.Context, event events.CognitoEventUserPoolsPreSignup) (events.CognitoEventUserPoolsPreSignup, error) {
	if cfg.DebugMode {
		evtJson, err := json.Marshal(event)
		if err != nil {
			log.Error("issue marshalling event", "error", err)
		}
		log.Print(string(evtJson))
	}

	return handler.Handle(ctx, event)
}

func main() {
	var err error
	cfg, err = config.New()
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	log.SetLevel(log.Level(cfg.AppLogLevel))
	log.SetReportTimestamp(true)
	slog.SetDefault(slog.New(log.Default()))

	chk, err := checker.New(cfg)
	if err != nil {
		log.Fatal("failed to init checker", "error", err)
	}

	handler = &signup.Handler{
		Checker:       chk,
		RejectUnknown: cfg.AppRejectUnknown,
	}

	lambda.Start(Handler)
}
