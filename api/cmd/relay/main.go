package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"agri-relay/api/internal/app"
	"agri-relay/api/internal/config"
	"agri-relay/api/internal/handle"
	"agri-relay/api/internal/httpserver"
	"agri-relay/api/internal/logging"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "relay",
		Short:         "HTTP relay between the farmer chat widget and the chat, speech-to-text and text-to-speech providers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "optional config file (yaml, json, toml); env vars override it")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("relay")
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	h := handle.New(a.Advisor, cfg.RequestTimeout, cfg.MaxUploadBytes)
	router := httpserver.Router(h, a.Registry, cfg.CORSOrigins)

	return httpserver.Serve(ctx, ":"+cfg.Port, router, 15*time.Second)
}
