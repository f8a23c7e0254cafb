// Package notify delivers the summary of a rotation run to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lucasew/snaprotate/internal/sanitize"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Report is everything a notifier is told about a finished run.
type Report struct {
	Instance   string    `json:"instance"`
	Policy     string    `json:"policy"`
	Status     Status    `json:"status"`
	Log        []string  `json:"log"`
	Error      string    `json:"error,omitempty"`
	Created    string    `json:"created,omitempty"`
	Deleted    []string  `json:"deleted,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Sanitized returns a copy with secrets redacted from every free-text field.
func (r Report) Sanitized() Report {
	out := r
	out.Log = sanitize.Lines(r.Log)
	out.Error = sanitize.Text(r.Error)
	return out
}

// Text renders the report as the plain message body sent to chat channels:
// the action log, one entry per line, followed by the failure if any.
func (r Report) Text() string {
	s := r.Sanitized()
	var b strings.Builder
	b.WriteString(strings.Join(s.Log, "\n"))
	if s.Status == StatusFailure {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "!!! FAILED: %s", s.Error)
	}
	return b.String()
}

// Markdown renders the report as a short markdown summary with the action
// log in a fenced block.
func (r Report) Markdown() string {
	icon := ":white_check_mark:"
	if r.Status == StatusFailure {
		icon = ":x:"
	}
	return fmt.Sprintf("%s snapshot rotation of `%s` (%s policy): **%s**\n\n```\n%s\n```\n",
		icon, r.Instance, r.Policy, r.Status, r.Text())
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, report Report) error
}

// Multi delivers to every notifier in order. All of them are attempted; the
// errors are joined.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, logger: logger}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return strings.Join(names, ",")
}

func (m *Multi) Len() int {
	return len(m.notifiers)
}

func (m *Multi) Notify(ctx context.Context, report Report) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, report); err != nil {
			m.logger.Error("notification failed", "notifier", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		m.logger.Info("notification delivered", "notifier", n.Name())
	}
	return errors.Join(errs...)
}
