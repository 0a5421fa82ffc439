package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"matchbook/api/grpcserver"
	"matchbook/api/wsfeed"
	"matchbook/domain/event"
	"matchbook/infra/config"
	"matchbook/infra/journal"
	"matchbook/infra/kafka"
	"matchbook/infra/logger"
	"matchbook/infra/metrics"
	"matchbook/infra/outbox"
	"matchbook/infra/storage"
	"matchbook/jobs/broadcaster"
	"matchbook/service"
	"matchbook/snapshot"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Journal ----------------

	j, err := journal.Open(journal.Config{
		Dir:         cfg.Journal.Dir,
		SegmentSize: cfg.Journal.SegmentSize,
	})
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer j.Close()

	// ---------------- Outbox ----------------

	ob, err := outbox.Open(cfg.Outbox.Dir)
	if err != nil {
		return err
	}
	defer ob.Close()

	// ---------------- Sinks ----------------

	m := metrics.New()
	sinks := []service.Sink{
		service.OutboxSink(ob),
		service.SinkFunc(func(e event.Event) error {
			m.Observe(e)
			return nil
		}),
	}

	if cfg.Storage.Path != "" {
		tape, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("trade tape: %w", err)
		}
		defer tape.Close()
		sinks = append(sinks, service.SinkFunc(tape.Record))
	}

	// ---------------- Service ----------------

	var svc *service.OrderService
	hub := wsfeed.NewHub(func() event.Event { return svc.Depth() }, log)
	sinks = append(sinks, hub)

	svc = service.New(service.Options{
		Symbol:    cfg.Instrument.Symbol,
		DepthSize: cfg.Instrument.DepthSize,
		Journal:   j,
		Sinks:     sinks,
		Observer:  m,
		Logger:    log,
	})

	lastSeq, err := svc.ResumeFrom(ctx, cfg.Journal.Dir)
	if err != nil {
		return err
	}
	lastEvent, err := ob.LastSeq()
	if err != nil {
		return fmt.Errorf("outbox: %w", err)
	}
	svc.Resume(0, 0, lastEvent)
	log.Info("engine ready", "symbol", cfg.Instrument.Symbol, "journal_seq", lastSeq, "event_seq", lastEvent)

	// ---------------- Background Jobs ----------------

	go hub.Run(ctx)
	svc.StartSnapshotJob(ctx, &snapshot.Writer{Dir: cfg.Snapshot.Dir}, cfg.Snapshot.Interval, cfg.Snapshot.TruncateJournal)

	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := kafka.New(cfg.Kafka)
		if err != nil {
			return err
		}
		bc := broadcaster.New(ob, pub, cfg.Kafka.Interval, m, log)
		bc.Start(ctx)
		defer func() {
			stop()
			_ = bc.Close()
		}()
	} else {
		log.Warn("no kafka brokers configured; outbox will accumulate")
	}

	// ---------------- HTTP ----------------

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/ws", hub)
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(log)))
	grpcserver.Register(grpcSrv, grpcserver.NewServer(svc, cfg))

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		grpcSrv.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info("matchbook running", "grpc", cfg.GRPC.Addr, "http", cfg.HTTP.Addr)
	return grpcSrv.Serve(lis)
}
