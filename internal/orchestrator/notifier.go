package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/benfi/label-automation/internal/entity"
)

// Notifier is the fire-and-forget progress channel consumed by the
// transport layer outside this core. Implementations must never block
// pipeline progress; failures are logged, not propagated.
type Notifier interface {
	JobCreated(ctx context.Context, job *entity.AutomationJob)
	JobUpdated(ctx context.Context, job *entity.AutomationJob)
	JobCompleted(ctx context.Context, job *entity.AutomationJob)
	JobFailed(ctx context.Context, job *entity.AutomationJob)
}

// NATSNotifier publishes job events as JSON on
// "<prefix>.created|updated|completed|failed".
type NATSNotifier struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

func NewNATSNotifier(nc *nats.Conn, prefix string, logger *slog.Logger) *NATSNotifier {
	if prefix == "" {
		prefix = "automation.jobs"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{nc: nc, prefix: prefix, logger: logger}
}

func (n *NATSNotifier) JobCreated(ctx context.Context, job *entity.AutomationJob) {
	n.publish(ctx, "created", job)
}

func (n *NATSNotifier) JobUpdated(ctx context.Context, job *entity.AutomationJob) {
	n.publish(ctx, "updated", job)
}

func (n *NATSNotifier) JobCompleted(ctx context.Context, job *entity.AutomationJob) {
	n.publish(ctx, "completed", job)
}

func (n *NATSNotifier) JobFailed(ctx context.Context, job *entity.AutomationJob) {
	n.publish(ctx, "failed", job)
}

func (n *NATSNotifier) publish(_ context.Context, event string, job *entity.AutomationJob) {
	data, err := json.Marshal(job)
	if err != nil {
		n.logger.Error("notify.marshal.failed", "event", event, "job_id", job.ID, "error", err)
		return
	}
	subject := n.prefix + "." + event
	if err := n.nc.Publish(subject, data); err != nil {
		n.logger.Warn("notify.publish.failed", "subject", subject, "job_id", job.ID, "error", err)
	}
}

// NopNotifier drops all events; used when no channel is configured.
type NopNotifier struct{}

func (NopNotifier) JobCreated(context.Context, *entity.AutomationJob)   {}
func (NopNotifier) JobUpdated(context.Context, *entity.AutomationJob)   {}
func (NopNotifier) JobCompleted(context.Context, *entity.AutomationJob) {}
func (NopNotifier) JobFailed(context.Context, *entity.AutomationJob)    {}
