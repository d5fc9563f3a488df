package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/autoreply/internal/bus"
	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/channels/whatsapp"
	"github.com/nextlevelbuilder/autoreply/internal/config"
	"github.com/nextlevelbuilder/autoreply/internal/gateway"
	httpapi "github.com/nextlevelbuilder/autoreply/internal/http"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and event feed",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	setupLogging()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := initTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry disabled", "error", err)
	} else {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				slog.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	msgBus := bus.New()

	rt, err := buildRuntime(ctx, cfg, msgBus)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	token := cfg.Gateway.Token
	if token == "" {
		slog.Warn("security.no_gateway_token", "msg", "inbound webhook accepts unauthenticated requests")
	}
	limiter := channels.NewSenderRateLimiter(cfg.Gateway.RateLimitRPM, 5)

	server := gateway.NewServer(cfg, msgBus,
		httpapi.NewInboundHandler(rt.pipeline, token, limiter, cfg.Gateway.MaxBodyBytes))
	server.SetPersonasHandler(httpapi.NewPersonasHandler(rt.stores.Personas, rt.defaults, token))
	server.SetChannelInstancesHandler(httpapi.NewChannelInstancesHandler(rt.stores.Instances, token))

	if cfg.Bridge.Enabled {
		listener, err := whatsapp.NewListener(cfg.Bridge, rt.pipeline, limiter)
		if err != nil {
			slog.Warn("bridge disabled", "error", err)
		} else {
			listener.Start(ctx)
			defer listener.Stop()
		}
	}

	if err := server.Start(ctx); err != nil {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway stopped")
}
