// Package notify announces finished builds to external subscribers.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/mapbuilder/internal/build"
	"git.home.luguber.info/inful/mapbuilder/internal/config"
	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
)

const publishTimeout = 5 * time.Second

// BuildEvent is the message published for every finished build.
type BuildEvent struct {
	JobID          string    `json:"job_id"`
	Target         string    `json:"target"`
	Branch         string    `json:"branch"`
	Commit         string    `json:"commit,omitempty"`
	Changed        bool      `json:"changed"`
	Status         string    `json:"status"`
	Assets         int       `json:"assets"`
	Published      int       `json:"published"`
	RenderFailures []string  `json:"render_failures,omitempty"`
	Mismatch       bool      `json:"mismatch"`
	FailedStage    string    `json:"failed_stage,omitempty"`
	Error          string    `json:"error,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	FinishedAt     time.Time `json:"finished_at"`
}

// NewBuildEvent flattens a report into its wire form.
func NewBuildEvent(r *build.Report) BuildEvent {
	branch := r.Branch
	if branch == "" {
		branch = r.ResolvedBranch
	}
	return BuildEvent{
		JobID:          r.JobID,
		Target:         r.Target,
		Branch:         branch,
		Commit:         r.Commit,
		Changed:        r.Changed,
		Status:         string(r.Status),
		Assets:         r.Assets,
		Published:      r.Published,
		RenderFailures: r.RenderFailures,
		Mismatch:       r.Mismatch,
		FailedStage:    r.FailedStage,
		Error:          r.Error,
		DurationMS:     r.Duration().Milliseconds(),
		FinishedAt:     r.FinishedAt,
	}
}

// streamPublisher is the subset of jetstream.JetStream used here.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSNotifier publishes BuildEvents to a JetStream subject.
type NATSNotifier struct {
	conn    *nats.Conn
	js      streamPublisher
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier connects to cfg.NATSURL and, when cfg.Stream is set, makes sure a stream
// captures cfg.Subject.
func NewNATSNotifier(ctx context.Context, cfg config.NotifyConfig, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NATSURL == "" {
		return nil, errors.ConfigError("notify.nats_url is required").Build()
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name("mapbuilder"))
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", cfg.NATSURL).
			Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.NetworkError("failed to create JetStream context").WithCause(err).Build()
	}

	if cfg.Stream != "" {
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := js.CreateOrUpdateStream(sctx, jetstream.StreamConfig{
			Name:        cfg.Stream,
			Description: "Minimap build results",
			Subjects:    []string{cfg.Subject},
			MaxAge:      7 * 24 * time.Hour,
		}); err != nil {
			conn.Close()
			return nil, errors.NetworkError("failed to ensure JetStream stream").
				WithCause(err).
				WithContext("stream", cfg.Stream).
				Build()
		}
	}

	logger.Info("NATS notifier initialized",
		logfields.URL(cfg.NATSURL),
		slog.String("subject", cfg.Subject),
		slog.String("stream", cfg.Stream))

	return &NATSNotifier{conn: conn, js: js, subject: cfg.Subject, logger: logger}, nil
}

// BuildFinished publishes the report of a finished build.
func (n *NATSNotifier) BuildFinished(ctx context.Context, r *build.Report) error {
	data, err := json.Marshal(NewBuildEvent(r))
	if err != nil {
		return errors.InternalError("failed to marshal build event").WithCause(err).Build()
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if _, err := n.js.Publish(pctx, n.subject, data); err != nil {
		return errors.NetworkError("failed to publish build event").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	n.logger.Debug("Published build event", logfields.JobID(r.JobID), logfields.Target(r.Target))
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

// Nop discards notifications.
type Nop struct{}

func (Nop) BuildFinished(context.Context, *build.Report) error { return nil }
func (Nop) Close() error                                       { return nil }
