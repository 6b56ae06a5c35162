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

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"rcud/api/grpcserver"
	"rcud/infra/config"
	"rcud/infra/kafka"
	"rcud/infra/logging"
	"rcud/infra/memory"
	"rcud/infra/store"
	"rcud/jobs/broadcaster"
	"rcud/service"
)

var _ broadcaster.Publisher = (*kafka.Producer)(nil)

func main() {
	configPath := flag.String("config", "rcud.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logging.L.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// ---------------- Config ----------------

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Log); err != nil {
		return err
	}
	log := logging.For("main")

	// ---------------- Memory ----------------

	domain := memory.NewDomain(memory.Config{
		Name:          "documents",
		ScanThreshold: cfg.Reclaim.ScanThreshold,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	domain.MustRegister(reg)

	// ---------------- Store ----------------

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	// ---------------- Service (restores latest) ----------------

	svc, err := service.New(st, service.Options{
		Domain:       domain,
		MaxIdleSlots: cfg.Reclaim.MaxIdleSlots,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	// ---------------- Background Jobs ----------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var jobs sync.WaitGroup
	defer jobs.Wait()
	defer stop()

	jobs.Add(2)
	go func() {
		defer jobs.Done()
		svc.RunReclaimer(ctx, cfg.Reclaim.Interval)
	}()
	go func() {
		defer jobs.Done()
		svc.RunCompaction(ctx, cfg.Compaction.Interval, cfg.Compaction.Keep)
	}()

	pub, err := newPublisher(cfg.Broker)
	if err != nil {
		return err
	}
	if pub != nil {
		bc := broadcaster.New(st, pub, broadcaster.Config{
			Interval:   cfg.Broker.Interval,
			MaxRetries: cfg.Broker.MaxRetries,
		})

		jobs.Add(1)
		go func() {
			defer jobs.Done()
			bc.Run(ctx)
			if err := bc.Close(); err != nil {
				log.Warn("publisher close", "err", err)
			}
		}()
	}

	// ---------------- Metrics ----------------

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server exited", "err", err)
			}
		}()
		defer metricsSrv.Close()
	}

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}

	grpcSrv := grpc.NewServer(
		grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(logging.For("grpc"))),
	)
	grpcserver.RegisterSnapshotsServer(grpcSrv, grpcserver.NewServer(svc))

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		grpcSrv.GracefulStop()
	}()

	log.Info("rcud running",
		"listen", cfg.Listen,
		"metrics", cfg.MetricsAddr,
		"data_dir", cfg.DataDir,
		"broker", cfg.Broker.Client,
		"version", svc.Version(),
	)
	return grpcSrv.Serve(lis)
}

func newPublisher(cfg config.BrokerConfig) (broadcaster.Publisher, error) {
	switch cfg.Client {
	case config.ClientSarama:
		return broadcaster.NewSaramaPublisher(cfg.Brokers, cfg.Topic, int(cfg.MaxRetries))
	case config.ClientKafkaGo:
		return kafka.NewProducer(cfg.Brokers, cfg.Topic, int(cfg.MaxRetries)), nil
	default:
		return nil, nil
	}
}
