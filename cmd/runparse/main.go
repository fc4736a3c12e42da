package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/app"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/logger"
)

// runparse sends one public document URL through the parser with the
// configured retry policy and prints the extracted text.
func main() {
	url := flag.String("url", "", "public URL of the resume")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	log, err := logger.New(false, *debug)
	if err != nil {
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if *url == "" {
		log.Error("runparse.args", zap.String("usage", "runparse -url https://host/bucket/folder/resume.pdf"))
		os.Exit(2)
	}

	_ = common.LoadDotEnv(".env")
	cfg, err := common.LoadConfig(viper.New(), os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("runparse.config.failed", zap.Error(err))
	}
	if err := cfg.Parser.Validate(); err != nil {
		log.Fatal("runparse.config.invalid", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	text := app.NewExtractor(cfg.Parser, log).Extract(ctx, *url)
	if text == "" {
		log.Error("runparse.empty", zap.String("url", *url))
		os.Exit(1)
	}
	log.Info("runparse.ok", zap.Int("chars", len(text)))
	fmt.Println(text)
}
