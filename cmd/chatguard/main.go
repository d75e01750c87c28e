package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/chatguard/internal/adapters/store"
	"github.com/mikey/chatguard/internal/adapters/transport"
	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/di"
	"github.com/mikey/chatguard/internal/dispatch"
	"github.com/mikey/chatguard/internal/rules"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

var configFile = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(di.ConfigFile(*configFile))
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

type runParams struct {
	dig.In

	Config     *config.Config
	Logger     *zap.Logger
	Loop       *dispatch.Loop
	Hub        *transport.Hub
	Transport  transport.Transport
	Store      store.Store
	Classifier core.Classifier
	Engine     *rules.Engine
}

// run is the main application function that gets all dependencies injected
func run(p runParams) error {
	logger := p.Logger
	defer logger.Sync()

	p.Loop.Start()

	var metricsServer *http.Server
	if m := p.Config.GetMetrics(); m.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: m.ListenAddress, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		logger.Info("Serving metrics", zap.String("address", m.ListenAddress))
	}

	// Start the transport
	if err := p.Transport.Start(); err != nil {
		logger.Error("Failed to start transport", zap.Error(err))
		p.Loop.Stop()
		p.Store.Stop()
		return err
	}
	logger.Info("Chatguard started", zap.Int("rules", p.Engine.RuleCount()))

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Shutting down...")
	case <-p.Transport.Done():
		logger.Info("Transport closed, shutting down...")
	}

	// Stop the transport first so no frame reaches a stopped loop
	if err := p.Transport.Stop(); err != nil {
		logger.Error("Failed to stop transport", zap.Error(err))
	}
	p.Hub.CloseAll()
	p.Loop.Stop()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
		cancel()
	}

	// Close any resources that need closing
	if closer, ok := p.Classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}

	// Flush the moderation log
	p.Store.Stop()

	logger.Info("Shutdown complete")
	return nil
}
