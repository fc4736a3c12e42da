package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/bulk-resumes/internal/app"
	"github.com/joseph-ayodele/bulk-resumes/internal/async"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/ingest"
	"github.com/joseph-ayodele/bulk-resumes/internal/logger"
	"github.com/joseph-ayodele/bulk-resumes/internal/repository"
	"github.com/joseph-ayodele/bulk-resumes/internal/server"
)

const healthInterval = 15 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

// run starts the daemon and blocks until it is signalled. It returns the
// process exit code so deferred cleanup always runs.
func run(args []string) int {
	fs := flag.NewFlagSet("resumesd", flag.ContinueOnError)
	configFile := fs.String("config", os.Getenv("CONFIG_FILE"), "config file")
	envFile := fs.String("env-file", ".env", "dotenv file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := common.LoadDotEnv(*envFile); err != nil {
		_, _ = os.Stderr.WriteString("load env: " + err.Error() + "\n")
		return 2
	}
	cfg, err := common.LoadConfig(viper.New(), *configFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("load config: " + err.Error() + "\n")
		return 2
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return 2
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Error("daemon.config.invalid", zap.Error(err))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.Database, false, log)
	if err != nil {
		log.Error("daemon.db.open_failed", zap.Error(err))
		return 1
	}
	defer store.Close()

	ping := func(ctx context.Context) error {
		return repository.HealthCheck(ctx, store.DB, 3*time.Second, log)
	}
	if err := ping(ctx); err != nil {
		log.Error("daemon.db.health_failed", zap.Error(err))
		return 1
	}

	processor, err := app.NewProcessor(ctx, cfg, store, log)
	if err != nil {
		log.Error("daemon.pipeline.setup_failed", zap.Error(err))
		return 1
	}
	queue := async.NewBatchQueue(processor, log,
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.RunTimeout),
	)

	// gRPC health for orchestrators
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error("daemon.grpc.listen_failed", zap.String("addr", cfg.Server.GRPCAddr), zap.Error(err))
		queue.Shutdown(ctx)
		return 1
	}
	go func() {
		log.Info("daemon.grpc.serving", zap.String("addr", cfg.Server.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("daemon.grpc.serve_failed", zap.Error(err))
			stop()
		}
	}()
	go watchHealth(ctx, hs, ping, log)

	api := server.NewServer(queue, store.Reports, ping, cfg.Server.MaxUploadMB, log)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("daemon.http.serving", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("daemon.http.serve_failed", zap.Error(err))
			stop()
		}
	}()

	code := 0
	if cfg.Server.InboxDir != "" {
		if err := watchInbox(ctx, cfg.Server.InboxDir, queue, log); err != nil {
			log.Error("daemon.inbox.failed", zap.String("dir", cfg.Server.InboxDir), zap.Error(err))
			code = 1
			stop()
		}
	}

	<-ctx.Done()
	log.Info("daemon.shutdown.start")
	hs.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("daemon.http.shutdown_failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	log.Info("daemon.shutdown.ok")
	return code
}

// watchHealth flips the gRPC serving status with the database's reachability.
func watchHealth(ctx context.Context, hs *health.Server, ping server.Pinger, log *zap.Logger) {
	t := time.NewTicker(healthInterval)
	defer t.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ok := ping(ctx) == nil
			if ok == serving {
				continue
			}
			serving = ok
			status := healthpb.HealthCheckResponse_SERVING
			if !ok {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			log.Warn("daemon.health.changed", zap.String("status", status.String()))
			hs.SetServingStatus("", status)
		}
	}
}

// watchInbox enqueues every archive dropped into dir, including ones already there.
func watchInbox(ctx context.Context, dir string, queue *async.BatchQueue, log *zap.Logger) error {
	paths, errs, err := ingest.WatchInbox(ctx, ingest.WatchConfig{Dir: dir, InitialScan: true, Debounce: 2 * time.Second}, log)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case p, ok := <-paths:
				if !ok {
					return
				}
				data, err := os.ReadFile(p)
				if err != nil {
					log.Error("daemon.inbox.read_failed", zap.String("path", p), zap.Error(err))
					continue
				}
				if _, err := queue.Enqueue(ctx, async.Job{Archive: filepath.Base(p), Data: data, Source: "inbox"}); err != nil {
					log.Error("daemon.inbox.enqueue_failed", zap.String("path", p), zap.Error(err))
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				log.Warn("daemon.inbox.watch_error", zap.Error(err))
			}
		}
	}()
	return nil
}
