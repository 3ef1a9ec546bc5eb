// Package app wires configuration, engines, artifact storage and the advisor
// into one process-wide value shared by the HTTP service and the bot.
package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"agri-relay/api/internal/advisor"
	"agri-relay/api/internal/artifact"
	"agri-relay/api/internal/config"
	"agri-relay/api/internal/engine"
	"agri-relay/api/internal/metrics"
	"agri-relay/api/internal/prompt"
)

// StaleAfter is the age past which leftover artifacts are swept at startup.
const StaleAfter = 10 * time.Minute

type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Files    *artifact.Manager
	Prompts  prompt.Set
	Advisor  *advisor.Orchestrator

	engines *engine.Engines
}

// New builds the app from a validated config.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	files, err := artifact.New(cfg.ArtifactDir, m.ArtifactsLive)
	if err != nil {
		return nil, err
	}
	if n, err := files.Sweep(StaleAfter); err != nil {
		log.Warn().Err(err).Str("dir", files.Dir()).Msg("artifact sweep")
	} else if n > 0 {
		log.Info().Int("removed", n).Str("dir", files.Dir()).Msg("removed stale artifacts")
	}

	prompts, err := prompt.LoadSet(cfg.PromptDir)
	if err != nil {
		return nil, errors.Wrap(err, "load prompts")
	}

	engs, err := engine.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	adv, err := advisor.New(advisor.Deps{
		Chat:    engs.Chat,
		STT:     engs.STT,
		TTS:     engs.TTS,
		Files:   files,
		Metrics: m,
	}, advisor.Config{
		Prompts:     prompts,
		MaxTokens:   cfg.ChatMaxTokens,
		Temperature: cfg.ChatTemperature,
		Language:    cfg.STTLanguage,
		Voice:       cfg.TTSVoice,
	})
	if err != nil {
		engs.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Registry: reg,
		Metrics:  m,
		Files:    files,
		Prompts:  prompts,
		Advisor:  adv,
		engines:  engs,
	}, nil
}

func (a *App) Close() {
	a.engines.Close()
}
