package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"retiree-match/internal/logger"
	"retiree-match/internal/matching"
	"retiree-match/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const app = "retiree-match"

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           app,
		Short:         "retiree-match matches retired professionals with startup job postings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_FILE or config.yaml)")

	root.AddCommand(newServeCmd(), newRunOnceCmd(), newSeedCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the periodic scheduler and the event consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			deps, cleanup, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{Addr: cfg.Server.Addr, Handler: deps.handler}
			deps.logger.Info("listening", zap.String("addr", cfg.Server.Addr))
			return runServer(ctx, srv, deps.sched, cfg.Server.ShutdownTimeout, deps.workers...)
		},
	}
}

func newRunOnceCmd() *cobra.Command {
	var req matching.Request
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run a single matching batch and print its result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			res, err := runOnceManual(cmd.Context(), cfg, req, buildApp)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&req.JobPostingID, "posting", "", "limit the run to one job posting")
	cmd.Flags().StringVar(&req.CandidateID, "candidate", "", "limit the run to one candidate")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import reference data and fixtures from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			res, err := runSeed(cmd.Context(), cfg, file)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "seed file")
	return cmd
}

func runSeed(ctx context.Context, cfg AppConfig, file string) (storage.ImportResult, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return storage.ImportResult{}, fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	seed, err := storage.LoadSeed(file)
	if err != nil {
		return storage.ImportResult{}, err
	}
	store, err := storage.NewStore(cfg.Database)
	if err != nil {
		return storage.ImportResult{}, fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	res, err := store.Import(ctx, seed)
	if err != nil {
		return storage.ImportResult{}, fmt.Errorf("import %s: %w", file, err)
	}
	log.Info("seed imported", zap.String("file", file), zap.Any("result", res))
	return res, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
