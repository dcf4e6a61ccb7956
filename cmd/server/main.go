package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"rbstore/api/grpcserver"
	"rbstore/config"
	"rbstore/domain/rbtree"
	"rbstore/infra/kafka"
	"rbstore/infra/logging"
	"rbstore/infra/metrics"
	"rbstore/infra/outbox"
	"rbstore/infra/sequence"
	"rbstore/jobs/audit"
	"rbstore/jobs/broadcaster"
	"rbstore/service"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "path to YAML config")
		grpcAddr    = flag.String("grpc-addr", "", "gRPC listen address (overrides config)")
		metricsAddr = flag.String("metrics-addr", "", "metrics listen address (overrides config)")
	)
	flag.Parse()

	// ---------------- Config ----------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	if *grpcAddr != "" {
		cfg.GRPC.Addr = *grpcAddr
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		logrus.WithError(err).Fatal("logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Metrics ----------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// ---------------- Outbox ----------------

	var ob *outbox.Outbox
	seqGen := sequence.New(0)
	if cfg.Outbox.Enabled {
		ob, err = outbox.Open(outbox.Config{Dir: cfg.Outbox.Dir, NoSync: cfg.Outbox.NoSync})
		if err != nil {
			log.WithError(err).Fatal("outbox open failed")
		}
		defer ob.Close()

		last, err := ob.LastSeq()
		if err != nil {
			log.WithError(err).Fatal("outbox scan failed")
		}
		seqGen.Reset(last)
		log.WithField("last_seq", last).Info("outbox ready")
	}

	// ---------------- Domain ----------------

	tree, err := rbtree.New[int64](rbtree.WithMaxNodes(cfg.Tree.MaxNodes))
	if err != nil {
		log.WithError(err).Fatal("tree init failed")
	}
	svc := service.NewKeyService(tree, seqGen, ob, m, log)
	defer svc.Close()

	// ---------------- Background Jobs ----------------

	var wg sync.WaitGroup

	if cfg.Broadcast.Driver != "" {
		pub, err := kafka.NewPublisher(cfg.Broadcast.Driver, cfg.Broadcast.Brokers, cfg.Broadcast.Topic)
		if err != nil {
			log.WithError(err).Fatal("publisher init failed")
		}
		bc := broadcaster.New(ob, pub, broadcaster.Config{
			Interval:   time.Duration(cfg.Broadcast.Interval),
			MaxRetries: cfg.Broadcast.MaxRetries,
		}, m, log)
		defer bc.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			bc.Run(ctx)
		}()
	}

	if cfg.Audit.Cron != "" {
		aud, err := audit.New(cfg.Audit.Cron, svc, m, log)
		if err != nil {
			log.WithError(err).Fatal("audit init failed")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			aud.Run(ctx)
		}()
	}

	// ---------------- Metrics HTTP ----------------

	var httpSrv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		httpSrv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server exited")
			}
		}()
	}

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.WithError(err).Fatal("listen failed")
	}

	grpcSrv := grpc.NewServer()
	grpcserver.RegisterKeyStoreServer(grpcSrv, grpcserver.NewServer(svc, log))

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		grpcSrv.GracefulStop()
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}
	}()

	log.WithFields(logrus.Fields{
		"grpc":    cfg.GRPC.Addr,
		"metrics": cfg.Metrics.Addr,
		"outbox":  cfg.Outbox.Enabled,
	}).Info("rbstore running")

	if err := grpcSrv.Serve(lis); err != nil {
		log.WithError(err).Error("gRPC server exited")
	}
	stop()
	wg.Wait()
}
