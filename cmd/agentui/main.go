package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FILM6912/Agent-UI-sub001/internal/app"
	"github.com/FILM6912/Agent-UI-sub001/internal/export"
	"github.com/FILM6912/Agent-UI-sub001/internal/tui"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load()

	var (
		configPath string
		storeKind  string
		storeRoot  string
		language   string
		mock       bool
	)

	root := &cobra.Command{
		Use:     "agentui",
		Short:   "Agent-UI - terminal chat client for AI models",
		Long:    "Agent-UI is a terminal chat client with streaming responses, per-message version history for edits and regenerations, and local session storage.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, logClose, err := setup(configPath, storeKind, storeRoot, language)
			if err != nil {
				return err
			}
			defer logClose()

			store, err := app.OpenStore(cfg.Store, cfg.StoreRoot)
			if err != nil {
				return err
			}
			registry := app.NewSessionRegistry(store, logger)

			var provider app.Provider
			if mock {
				provider = &app.MockProvider{}
			} else {
				provider = app.NewAnthropicClient(cfg.APIKey, cfg.BaseURL, cfg.MaxTokens)
			}

			return tui.Run(registry, provider, logger, cfg)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&storeKind, "store", "", "persistence backend: file or sqlite")
	root.PersistentFlags().StringVar(&storeRoot, "store-root", "", "storage directory")
	root.PersistentFlags().StringVar(&language, "lang", "", "UI language for suggestion fallbacks: en or th")
	root.Flags().BoolVar(&mock, "mock", false, "use the offline mock provider")

	root.AddCommand(newSessionsCmd(&configPath, &storeKind, &storeRoot, &language))
	root.AddCommand(newExportCmd(&configPath, &storeKind, &storeRoot, &language))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSessionsCmd(configPath, storeKind, storeRoot, language *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, logClose, err := setup(*configPath, *storeKind, *storeRoot, *language)
			if err != nil {
				return err
			}
			defer logClose()

			store, err := app.OpenStore(cfg.Store, cfg.StoreRoot)
			if err != nil {
				return err
			}
			registry := app.NewSessionRegistry(store, logger)
			for _, sess := range registry.List() {
				fmt.Printf("%s  %-40s  %3d messages  %s\n",
					sess.ID, truncate(sess.Title, 40), len(sess.Messages),
					sess.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newExportCmd(configPath, storeKind, storeRoot, language *string) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Write a session transcript to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, logClose, err := setup(*configPath, *storeKind, *storeRoot, *language)
			if err != nil {
				return err
			}
			defer logClose()

			store, err := app.OpenStore(cfg.Store, cfg.StoreRoot)
			if err != nil {
				return err
			}
			registry := app.NewSessionRegistry(store, logger)
			sess, ok := registry.Get(args[0])
			if !ok {
				return fmt.Errorf("session not found: %s", args[0])
			}
			exporter, err := export.NewExporter(format)
			if err != nil {
				return err
			}
			return exporter.Export(&sess, os.Stdout)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, yaml, md")
	return cmd
}

func setup(configPath, storeKind, storeRoot, language string) (app.Config, *app.Logger, func(), error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return app.Config{}, nil, nil, err
	}
	if storeKind != "" {
		cfg.Store = storeKind
	}
	if storeRoot != "" {
		cfg.StoreRoot = storeRoot
	}
	if language != "" {
		cfg.Language = strings.ToLower(language)
	}

	root := cfg.StoreRoot
	if root == "" {
		root = app.DefaultStorageRoot()
	}
	cfg.StoreRoot = root

	logClose := func() {}
	logOut := os.Stderr
	if err := os.MkdirAll(root, 0o755); err == nil {
		if f, ferr := os.OpenFile(filepath.Join(root, "agentui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); ferr == nil {
			logOut = f
			logClose = func() { _ = f.Close() }
		}
	}
	return cfg, app.NewLogger(logOut), logClose, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
