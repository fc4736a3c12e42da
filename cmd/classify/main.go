package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/app"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/logger"
)

func main() {
	path := flag.String("file", "", "plain-text resume to classify (- for stdin)")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	log, err := logger.New(false, *debug)
	if err != nil {
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	var text []byte
	switch *path {
	case "":
		log.Error("classify.args", zap.String("usage", "classify -file resume.txt"))
		os.Exit(2)
	case "-":
		text, err = io.ReadAll(os.Stdin)
	default:
		text, err = os.ReadFile(*path)
	}
	if err != nil {
		log.Fatal("classify.read.failed", zap.Error(err))
	}

	_ = common.LoadDotEnv(".env")
	cfg, err := common.LoadConfig(viper.New(), os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("classify.config.failed", zap.Error(err))
	}
	if err := cfg.Analyst.Validate("analyst"); err != nil {
		log.Fatal("classify.config.invalid", zap.Error(err))
	}
	if err := cfg.Extractor.Validate("extractor"); err != nil {
		log.Fatal("classify.config.invalid", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	classifier, err := app.NewClassifier(ctx, cfg, log)
	if err != nil {
		log.Fatal("classify.setup.failed", zap.Error(err))
	}
	rec, err := classifier.Classify(ctx, string(text))
	if err != nil {
		log.Fatal("classify.failed", zap.Error(err))
	}

	out, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Println(string(out))
}
