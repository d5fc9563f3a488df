package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	goruntime "runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/config"
	"github.com/nextlevelbuilder/autoreply/internal/store"
	"github.com/nextlevelbuilder/autoreply/internal/store/pg"
	"github.com/nextlevelbuilder/autoreply/internal/upgrade"
	"github.com/nextlevelbuilder/autoreply/pkg/protocol"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, database and credentials",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("autoreply doctor")
	fmt.Printf("  Version:  %s (protocol %d)\n", Version, protocol.ProtocolVersion)
	fmt.Printf("  OS:       %s/%s\n", goruntime.GOOS, goruntime.GOARCH)
	fmt.Printf("  Go:       %s\n", goruntime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults + env)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	masked := cfg.MaskedCopy()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Println()
	fmt.Println("  Storage:")
	var stores *store.Stores
	if cfg.IsManagedMode() {
		fmt.Printf("    %-12s managed\n", "Mode:")
		db, err := pg.OpenDB(cfg.Database.PostgresDSN)
		if err != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
		} else {
			s, schemaErr := upgrade.CheckSchema(db)
			switch {
			case schemaErr != nil:
				fmt.Printf("    %-12s CHECK FAILED (%s)\n", "Schema:", schemaErr)
			case s.Compatible:
				fmt.Printf("    %-12s v%d (up to date)\n", "Schema:", s.CurrentVersion)
			default:
				fmt.Printf("    %-12s v%d (required v%d, run: autoreply migrate up)\n", "Schema:", s.CurrentVersion, s.RequiredVersion)
			}
			db.Close()
			stores, err = pg.NewPGStores(storeConfig(cfg))
			if err != nil {
				fmt.Printf("    %-12s %s\n", "Stores:", err)
			}
		}
	} else {
		fmt.Printf("    %-12s standalone\n", "Mode:")
		fmt.Printf("    %-12s %s\n", "Seed file:", orNone(cfg.Database.SeedFile))
		stores, _, err = buildStores(ctx, cfg, nil)
		if err != nil {
			fmt.Printf("    %-12s %s\n", "Stores:", err)
		}
	}
	if stores != nil {
		defer stores.Close()
		checkGlobalPersona(ctx, stores)
		checkInstances(ctx, stores)
	}

	fmt.Println()
	fmt.Println("  Provider:")
	fmt.Printf("    %-12s %s\n", "Name:", masked.Provider.Name)
	fmt.Printf("    %-12s %s\n", "Model:", masked.Provider.Model)
	checkSecret("API key:", cfg.Provider.APIKey)

	fmt.Println()
	fmt.Println("  Delivery:")
	fmt.Printf("    %-12s %s\n", "Base URL:", orNone(channels.NormalizeBaseURL(cfg.Delivery.BaseURL)))
	checkSecret("API key:", cfg.Delivery.APIKey)
	if !cfg.Delivery.Configured() {
		fmt.Printf("    %-12s replies will be logged as pending_manual_send\n", "Note:")
	}

	fmt.Println()
	fmt.Println("  Gateway:")
	fmt.Printf("    %-12s %s:%d\n", "Listen:", cfg.Gateway.Host, cfg.Gateway.Port)
	checkSecret("Token:", cfg.Gateway.Token)
	fmt.Println()
}

func checkGlobalPersona(ctx context.Context, s *store.Stores) {
	p, err := s.Personas.GetGlobal(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Printf("    %-12s MISSING (unrouted numbers will fail)\n", "Global:")
	case err != nil:
		fmt.Printf("    %-12s ERROR (%s)\n", "Global:", err)
	default:
		fmt.Printf("    %-12s %s\n", "Global:", p.Name)
	}
}

func checkInstances(ctx context.Context, s *store.Stores) {
	list, err := s.Instances.ListConnected(ctx)
	if err != nil {
		fmt.Printf("    %-12s ERROR (%s)\n", "Instances:", err)
		return
	}
	fmt.Printf("    %-12s %d connected\n", "Instances:", len(list))
}

func checkSecret(label, value string) {
	if value == "" {
		fmt.Printf("    %-12s NOT SET\n", label)
		return
	}
	fmt.Printf("    %-12s set\n", label)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
