package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"agri-relay/api/internal/app"
	"agri-relay/api/internal/config"
	"agri-relay/api/internal/httpserver"
	"agri-relay/api/internal/logging"
	"agri-relay/api/internal/telegram"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "bot",
		Short:         "Telegram front end of the agriculture advisor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "optional config file; env vars override it")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("bot")
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
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:     bot,
		Advisor: a.Advisor,
		Apology: a.Prompts.Apology,
		Timeout: cfg.RequestTimeout,
	}

	mux := chi.NewRouter()
	mux.Use(httpserver.AccessLog(log.Logger))
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	addr := "0.0.0.0:" + cfg.Port

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		return startWebhookMode(ctx, addr, bot, r, mux, webhookURL)
	}
	return startPollingMode(ctx, addr, bot, r, mux)
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, mux chi.Router, baseURL string) error {
	// secret webhook path derived from the token
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	mux.Post(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Warn().Err(err).Msg("bad webhook update")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		// Telegram retries slow webhooks, so the turn runs after we ack.
		go r.HandleUpdate(*upd)
		w.WriteHeader(http.StatusOK)
	})

	log.Info().Str("addr", addr).Str("path", path).Msg("webhook mode")
	return httpserver.Serve(ctx, addr, mux, 15*time.Second)
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, mux http.Handler) error {
	go func() {
		if err := httpserver.Serve(ctx, addr, mux, 5*time.Second); err != nil {
			log.Error().Err(err).Msg("health server")
		}
	}()

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn().Err(err).Msg("delete webhook")
	}
	log.Info().Str("bot", bot.Self.UserName).Int("workers", pollWorkers).Msg("polling mode")
	handle, wait := pool(pollWorkers, r.HandleUpdate)
	runPolling(ctx, bot, handle)
	wait()
	return nil
}

// pollWorkers bounds how many turns run at once in polling mode.
const pollWorkers = 8

// pool runs handle on at most limit goroutines. The returned dispatch blocks
// while all of them are busy; wait blocks until every dispatched update is done.
func pool(limit int, handle func(tgbotapi.Update)) (dispatch func(tgbotapi.Update), wait func()) {
	var g errgroup.Group
	g.SetLimit(limit)
	dispatch = func(u tgbotapi.Update) {
		g.Go(func() error {
			handle(u)
			return nil
		})
	}
	return dispatch, func() { _ = g.Wait() }
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return 2 * time.Second
		}
	}
	return 1 * time.Second
}

type updatesGetter interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

func runPolling(ctx context.Context, bot updatesGetter, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			log.Warn().Err(err).Dur("retry_in", d).Msg("polling error")
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

func shortHash(s string) string {
	// FNV-1a; stable per token, not a secret by itself
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	// 16-char hex
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
