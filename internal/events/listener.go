package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"parking-service/internal/metrics"
)

// GateEventNotice is the optional payload published by the gate backend
// when it stores a new event.
type GateEventNotice struct {
	SessionID string `json:"session_id"`
	Gate      string `json:"gate"`
}

// Listener turns new-event notifications into refresh requests.
type Listener struct {
	url     string
	subject string
	onEvent func()
	opts    []nats.Option
	log     zerolog.Logger
}

func NewListener(url, subject string, onEvent func(), log zerolog.Logger, opts ...nats.Option) *Listener {
	return &Listener{
		url:     url,
		subject: subject,
		onEvent: onEvent,
		opts:    opts,
		log:     log.With().Str("component", "nats_listener").Str("subject", subject).Logger(),
	}
}

// Serve subscribes until ctx is done. A connection failure is returned so
// the supervisor restarts the listener with backoff.
func (l *Listener) Serve(ctx context.Context) error {
	defaults := []nats.Option{
		nats.Name("parking-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	nc, err := nats.Connect(l.url, append(defaults, l.opts...)...)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(l.subject, func(msg *nats.Msg) {
		metrics.GateEventsReceived.Inc()
		var notice GateEventNotice
		if len(msg.Data) > 0 && json.Unmarshal(msg.Data, &notice) == nil {
			l.log.Debug().Str("session_id", notice.SessionID).Str("gate", notice.Gate).Msg("gate event notice")
		}
		l.onEvent()
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", l.subject, err)
	}
	if err := nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}
	l.log.Info().Msg("listening for gate events")

	<-ctx.Done()
	_ = sub.Unsubscribe()
	return ctx.Err()
}

func (l *Listener) String() string {
	return "nats-listener"
}
