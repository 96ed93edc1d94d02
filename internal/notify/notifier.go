package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intraday_trader/internal/helper"
	"intraday_trader/pkg/logger"

	"go.uber.org/zap"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindFail    Kind = "fail"
	KindError   Kind = "error"
)

func (k Kind) emoji() string {
	switch k {
	case KindSuccess:
		return "✅"
	case KindFail:
		return "❌"
	case KindError:
		return "⚠️"
	}
	return "ℹ️"
}

// Field is one row of event details. Order is preserved in every channel.
type Field struct {
	Key   string
	Value any
}

type Event struct {
	Kind    Kind
	Subject string
	Details []Field
	At      time.Time
}

// Text renders the event as a plain multi-line message.
func (e Event) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Kind.emoji(), e.Subject)
	for _, f := range e.Details {
		fmt.Fprintf(&b, "\n%s: %s", f.Key, FormatValue(f.Value))
	}
	return b.String()
}

func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return helper.FormatPrice(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Notifier is fire-and-forget: delivery errors are logged and never returned.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Stdout writes events to the service log.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Notify(_ context.Context, e Event) {
	fields := make([]zap.Field, 0, len(e.Details)+1)
	fields = append(fields, zap.String("kind", string(e.Kind)))
	for _, f := range e.Details {
		fields = append(fields, zap.Any(f.Key, f.Value))
	}
	logger.L().Info("[NOTIFY] "+e.Subject, fields...)
}

// Multi delivers to every channel in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		n.Notify(ctx, e)
	}
}
