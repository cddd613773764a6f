package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	secretHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxBodyBytes = 1 << 20
)

type WebhookOptions struct {
	ListenAddr string
	Path       string
	// URL is registered with Telegram when set.
	URL        string
	Secret     string
}

// Router serves Telegram updates on POST path and a health probe on
// GET /healthz. Well-formed requests to path are always answered with 200
// so Telegram does not redeliver them.
func (b *Bot) Router(path, secret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(b.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Post(path, b.webhookHandler(secret))
	return r
}

func (b *Bot) webhookHandler(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && r.Header.Get(secretHeader) != secret {
			b.log.Warnw("webhook secret mismatch", "remote", r.RemoteAddr)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&update); err != nil {
			b.log.Warnw("bad webhook payload dropped", "error", err)
			w.WriteHeader(http.StatusOK)
			return
		}

		// The update is processed to completion even if Telegram hangs up.
		b.safeHandle(context.WithoutCancel(r.Context()), update)
		w.WriteHeader(http.StatusOK)
	}
}

func (b *Bot) safeHandle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Errorw("panic while handling update", "update_id", update.UpdateID, "panic", rec)
		}
	}()
	b.HandleUpdate(ctx, update)
}

// RegisterWebhook points Telegram at url.
func (b *Bot) RegisterWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	resp, err := b.s.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("set webhook: %s", resp.Description)
	}
	b.log.Infow("webhook registered", "url", url)
	return nil
}

// ServeWebhook runs the HTTP server until ctx is cancelled.
func (b *Bot) ServeWebhook(ctx context.Context, opts WebhookOptions) error {
	if opts.URL != "" {
		if err := b.RegisterWebhook(opts.URL, opts.Secret); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           b.Router(opts.Path, opts.Secret),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		b.log.Infow("webhook server listening", "addr", opts.ListenAddr, "path", opts.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook shutdown: %w", err)
	}
	b.log.Info("webhook server stopped")
	return nil
}

func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"took", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
