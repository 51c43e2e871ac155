package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"papertrade-api/internal/cli"
	"papertrade-api/internal/config"
	"papertrade-api/internal/svc"
)

const (
	schemaTimeout   = 15 * time.Second // Timeout for startup schema migration
	shutdownTimeout = 10 * time.Second // Grace period for in-flight cycles
)

var configFile = flag.String("f", "etc/papertrade.yaml", "path to application configuration")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[main] Failed to load config %s: %v", *configFile, err)
	}
	if err := cfg.SetUp(); err != nil {
		log.Fatalf("[main] Failed to set up service: %v", err)
	}
	defer logx.Close()

	cli.LogConfigSummary(cfg)

	svcCtx := svc.NewServiceContext(*cfg)
	if svcCtx.Manager == nil {
		logx.Error("no scheduler section configured, nothing to run")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if svcCtx.Store != nil {
		schemaCtx, cancel := context.WithTimeout(ctx, schemaTimeout)
		err := svcCtx.Store.EnsureSchema(schemaCtx)
		cancel()
		if err != nil {
			logx.Errorf("schema migration failed: %v", err)
			os.Exit(1)
		}
	}

	if err := svcCtx.Manager.RegisterConfiguredAgents(ctx); err != nil {
		logx.Errorf("agent registration failed: %v", err)
		os.Exit(1)
	}
	for _, agent := range svcCtx.Manager.ActiveAgents() {
		logx.Infof("agent %s active: pair=%s interval=%s balance=%.2f",
			agent.ID, agent.Pair, agent.Interval, agent.Ledger().Balance())
	}

	runErr := make(chan error, 1)
	go func() { runErr <- svcCtx.Manager.Run(ctx) }()

	logx.Info("papertrade agent daemon started")

	<-ctx.Done()
	logx.Info("shutdown signal received, waiting for in-flight cycles")

	done := make(chan struct{})
	go func() {
		svcCtx.Manager.Stop()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("all cycles stopped cleanly")
	case <-time.After(shutdownTimeout):
		logx.Error("shutdown timeout exceeded, forcing exit")
	}

	if err := <-runErr; err != nil && err != context.Canceled {
		logx.Errorf("scheduler loop exited with error: %v", err)
	}
	logx.Info("papertrade agent daemon stopped")
}
