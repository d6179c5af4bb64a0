package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-lambda-go/events"
	"github.com/charmbracelet/log"
	"github.com/cruxstack/disposable-email-checker-go/internal/checker"
	"github.com/cruxstack/disposable-email-checker-go/internal/config"
	"github.com/cruxstack/disposable-email-checker-go/internal/signup"
	"github.com/joho/godotenv"
)

var (
	dataPath   string
	policyPath string
)

func init() {
	flag.StringVar(&dataPath, "data", "", "path to JSON file with pre sign-up events")
	flag.StringVar(&policyPath, "policy", "", "override path to Rego verdict policy")
	flag.Parse()
}

func NewDebugConfig() (*config.Config, error) {
	envpath := filepath.Join("..", "..", ".env")
	if _, err := os.Stat(envpath); err == nil {
		_ = godotenv.Load(envpath)
	}

	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	cfg.DebugMode = true

	if policyPath != "" {
		cfg.AppVerdictPolicyPath = policyPath
	}

	if cfg.DebugDataPath == "" {
		cfg.DebugDataPath = filepath.Join("..", "..", "fixtures", "debug-data.json")
	}
	if dataPath != "" {
		cfg.DebugDataPath = dataPath
	}

	return cfg, cfg.Validate()
}

func main() {
	cfg, err := NewDebugConfig()
	if err != nil {
		log.Fatal("failed to load debug config", "error", err)
	}
	log.SetLevel(log.Level(cfg.AppLogLevel))
	slog.SetDefault(slog.New(log.Default()))

	chk, err := checker.New(cfg)
	if err != nil {
		log.Fatal("failed to init checker", "error", err)
	}
	h := &signup.Handler{Checker: chk, RejectUnknown: cfg.AppRejectUnknown}

	data, err := os.ReadFile(cfg.DebugDataPath)
	if err != nil {
		log.Fatal("failed to read data file", "path", cfg.DebugDataPath, "error", err)
	}

	evts := []events.CognitoEventUserPoolsPreSignup{}
	if err := json.Unmarshal(data, &evts); err != nil {
		log.Fatal("failed to parse event file", "error", err)
	}

	for i, e := range evts {
		if _, err := h.Handle(context.Background(), e); err != nil {
			log.Warn("sign-up rejected", "index", i, "email", e.Request.UserAttributes["email"], "reason", err)
			continue
		}
		log.Info("sign-up admitted", "index", i, "email", e.Request.UserAttributes["email"])
	}

	log.Info("debug run complete", "events", len(evts))
}
