package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fleetlab/corectl/pkg/api"
	"github.com/fleetlab/corectl/pkg/cloudadapter"
	"github.com/fleetlab/corectl/pkg/commands"
	"github.com/fleetlab/corectl/pkg/config"
	"github.com/fleetlab/corectl/pkg/events"
	"github.com/fleetlab/corectl/pkg/log"
	"github.com/fleetlab/corectl/pkg/mediator"
	"github.com/fleetlab/corectl/pkg/reconciler"
	"github.com/fleetlab/corectl/pkg/scheduler"
	"github.com/fleetlab/corectl/pkg/serviceadapter"
	"github.com/fleetlab/corectl/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control plane's API server and reconciliation scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg := config.Load()
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	cloud, err := cloudadapter.NewClient(ctx, cfg.CloudControlTimeout, cfg.CloudMetricsTimeout)
	if err != nil {
		return fmt.Errorf("init cloud adapter: %w", err)
	}
	services := serviceadapter.NewFactory(cfg.ServiceAPITimeout, cfg.ServiceSkipTLSVerify)

	broker := events.NewBroker(cfg.SubscriberQueue)
	registry := mediator.NewRegistry(cfg.ServiceAPITimeout)
	commands.Register(registry, commands.Deps{
		Store:    store,
		Cloud:    cloud,
		Services: services,
		Events:   broker,
		Locks:    storage.NewKeyedLock(),
		Config:   cfg,
	})

	throttle := scheduler.NewThrottle(cfg.WorkerRefreshThrottle)
	sched := scheduler.New(store, registry, cfg, throttle)
	runner := reconciler.NewRunner(sched.Jobs())
	runner.Start()
	defer runner.Stop()

	validator := api.NewStaticTokenValidator(cfg.APITokens)
	if len(cfg.APITokens) == 0 {
		logger.Warn().Msg("no API_TOKENS configured, every request will be rejected as unauthorized")
	}

	server := api.NewServer(registry, store, broker, throttle, validator)
	logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting corectl")
	return server.Run(ctx, cfg.HTTPAddr, cfg.ShutdownGrace)
}
