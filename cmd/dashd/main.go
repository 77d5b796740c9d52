// dashd is the dashboard builder backend: a WebSocket chat server that
// relays dashboard-building conversations to an LLM and keeps per-session
// code workspaces on disk.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/liamhamilton123/dashboard-builder/internal/config"
	"github.com/liamhamilton123/dashboard-builder/internal/llm"
	"github.com/liamhamilton123/dashboard-builder/internal/logger"
	"github.com/liamhamilton123/dashboard-builder/internal/relay"
	"github.com/liamhamilton123/dashboard-builder/internal/server"
	"github.com/liamhamilton123/dashboard-builder/internal/session"
	"github.com/liamhamilton123/dashboard-builder/internal/store"
	"github.com/liamhamilton123/dashboard-builder/internal/workspace"
)

var version = "dev"

func main() {
	// A missing .env is fine; real deployments set env directly.
	godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "dashd",
		Short:        "dashboard builder backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "dashd.yaml", "config file path")

	root.AddCommand(serveCmd(), sweepCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if dummy, _ := cmd.Flags().GetBool("dummy"); dummy {
				cfg.LLM.Provider = "dummy"
			}

			if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			provider, err := llm.NewProvider(cfg.LLM.Provider, cfg.LLM.APIKey)
			if err != nil {
				return err
			}

			rl := relay.New(provider, cfg.LLM.Model, cfg.LLM.MaxTokens)
			if cfg.Store.Path != "" {
				st, err := store.Open(cfg.Store.Path)
				if err != nil {
					return fmt.Errorf("open transcript store: %w", err)
				}
				defer st.Close()
				rl.SetTranscript(st)
			}

			srv, err := server.New(server.Config{
				Addr:                 cfg.Server.Addr,
				CORSOrigin:           cfg.Server.CORSOrigin,
				Dev:                  cfg.Server.Dev,
				WatchWorkspaces:      cfg.Workspace.Watch,
				SessionMaxIdleHours:  cfg.Session.MaxIdleHours,
				WorkspaceMaxAgeHours: cfg.Workspace.MaxAgeHours,
			}, rl, session.NewRegistry(), workspace.NewStore(cfg.Workspace.BasePath))
			if err != nil {
				return err
			}

			logger.Info("starting dashd", "version", version, "provider", provider.Name(), "model", cfg.LLM.Model)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().Bool("dummy", false, "use the scripted provider instead of a real LLM")
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "delete expired workspaces and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			n, err := workspace.NewStore(cfg.Workspace.BasePath).SweepDisk(cfg.Workspace.MaxAgeHours)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d expired workspaces\n", n)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("dashd", version)
		},
	}
}
