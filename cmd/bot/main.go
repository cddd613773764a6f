package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bodyshape-coach/internal/advice"
	"bodyshape-coach/internal/analytics"
	"bodyshape-coach/internal/config"
	"bodyshape-coach/internal/conversation"
	"bodyshape-coach/internal/llm"
	"bodyshape-coach/internal/locale"
	"bodyshape-coach/internal/logger"
	"bodyshape-coach/internal/profile"
	"bodyshape-coach/internal/scheduler"
	"bodyshape-coach/internal/session"
	"bodyshape-coach/internal/storage"
	"bodyshape-coach/internal/telegram"
)

func main() {
	envErr := godotenv.Load(".env")

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Warnw(".env file not loaded", "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Errorw("bot stopped with error", "error", err)
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	cat, err := locale.Load(cfg.Locale)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := llm.NewFactory(cfg).CreateClient(cfg.LLMProvider)
	switch {
	case err == nil:
		log.Infow("advice backend ready", "provider", cfg.LLMProvider)
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warnw("advice backend not configured, answering from local templates only", "provider", cfg.LLMProvider)
		client = nil
	default:
		log.Warnw("advice backend unavailable, answering from local templates only", "provider", cfg.LLMProvider, "error", err)
		client = nil
	}

	var (
		rec       storage.Recorder = storage.Discard{}
		recording bool
	)
	if cfg.AdviceLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.AdviceLogPath)
		if err != nil {
			log.Warnw("advice log disabled", "path", cfg.AdviceLogPath, "error", err)
		} else {
			rec, recording = fr, true
		}
	}

	advisor := advice.NewResolver(cat, client, advice.Options{
		RatePerMinute: cfg.AdviceRatePerMinute,
		Burst:         cfg.AdviceRateBurst,
		Recorder:      rec,
		Log:           log.Named("advice"),
	})
	machine := conversation.NewMachine(store, profile.NewSequencer(cfg.ExtendedProfile), cat, advisor, conversation.Options{
		TTL: cfg.SessionTTL,
		Log: log.Named("conversation"),
	})

	sched := scheduler.New(log.Named("scheduler"))
	if err := sched.Add("session-sweep", cfg.SweepSchedule, scheduler.SweepJob(store, cfg.SessionTTL, nil, log.Named("sweep"))); err != nil {
		return err
	}
	if err := sched.Add("limiter-prune", cfg.SweepSchedule, advisor.PruneLimits); err != nil {
		return err
	}
	if recording && cfg.ReportSchedule != "" {
		if err := sched.Add("advice-report", cfg.ReportSchedule, analytics.ReportJob(rec, nil, log.Named("report"))); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	bot, err := telegram.New(cfg.TelegramBotToken, machine, log.Named("telegram"))
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	log.Infow("starting bot",
		"mode", cfg.Mode,
		"store", cfg.SessionStore,
		"extended_profile", cfg.ExtendedProfile,
		"locale", cat.Lang(),
	)
	if cfg.Mode == config.ModeWebhook {
		return bot.ServeWebhook(ctx, telegram.WebhookOptions{
			ListenAddr: cfg.WebhookListenAddr,
			Path:       cfg.WebhookPath,
			URL:        cfg.WebhookURL,
			Secret:     cfg.WebhookSecret,
		})
	}
	bot.Start(ctx)
	return nil
}

func openStore(cfg *config.Config) (session.Store, func(), error) {
	if cfg.SessionStore == config.StoreSQLite {
		st, err := session.OpenSQLite(cfg.SessionDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open session db: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	}
	return session.NewMemoryStore(), func() {}, nil
}
