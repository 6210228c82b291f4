// Package delivery forwards completed records to a webhook and/or a local CSV log.
package delivery

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashureev/daylog/internal/domain"
)

// maxDetail bounds the diagnostic text shown to users.
const maxDetail = 200

// Config selects the delivery targets. Empty values disable a target.
type Config struct {
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration
	FilePath       string
}

// Result reports the outcome of one delivery. Detail is user-facing and truncated.
type Result struct {
	OK         bool
	Detail     string
	WebhookErr error
	FileErr    error
}

// Dispatcher delivers records. It never retries and never deduplicates.
type Dispatcher struct {
	webhook *WebhookClient
	file    *FileLog
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher for the configured targets.
func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger}
	if cfg.WebhookURL != "" {
		timeout := cfg.WebhookTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		d.webhook = NewWebhookClient(cfg.WebhookURL, cfg.WebhookSecret, timeout)
	}
	if cfg.FilePath != "" {
		d.file = NewFileLog(cfg.FilePath)
	}
	return d
}

// Deliver sends rec to every configured target.
//
// With a webhook configured, OK reflects the webhook alone; a file failure is
// logged and mentioned in Detail but does not clear OK. With only a file, OK
// reflects the file write. With no targets, OK is true.
func (d *Dispatcher) Deliver(ctx context.Context, rec domain.DailyRecord) Result {
	var res Result
	var problems []string

	if d.webhook != nil {
		if err := d.webhook.Post(ctx, rec); err != nil {
			res.WebhookErr = err
			problems = append(problems, "webhook: "+err.Error())
			d.logger.Error("Webhook delivery failed", "user_id", rec.UserID, "key", rec.IdempotencyKey(), "error", err)
		} else {
			d.logger.Info("Webhook delivery succeeded", "user_id", rec.UserID, "key", rec.IdempotencyKey())
		}
	}

	if d.file != nil {
		if err := d.file.Append(rec); err != nil {
			res.FileErr = err
			problems = append(problems, "file: "+err.Error())
			d.logger.Error("File log append failed", "user_id", rec.UserID, "path", d.file.Path(), "error", err)
		} else {
			d.logger.Info("File log append succeeded", "user_id", rec.UserID, "path", d.file.Path())
		}
	}

	switch {
	case d.webhook != nil:
		res.OK = res.WebhookErr == nil
	case d.file != nil:
		res.OK = res.FileErr == nil
	default:
		res.OK = true
		d.logger.Warn("No delivery target configured", "user_id", rec.UserID)
	}

	res.Detail = short(strings.Join(problems, "; "))
	return res
}

func short(s string) string {
	if len(s) <= maxDetail {
		return s
	}
	cut := maxDetail
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
