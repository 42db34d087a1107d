package leave

import (
	"context"

	"go.uber.org/zap"
)

// =============================================================================
// NOTIFICATIONS - Side channel for transition events
// =============================================================================

// Notifier is told about every request transition after it has been applied.
// Notification failures never affect the transition outcome.
type Notifier interface {
	Notify(ctx context.Context, action AuditAction, r *LeaveRequest)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, AuditAction, *LeaveRequest) {}

// LogNotifier emits structured log lines for each transition. Stands in for
// a mail or messaging integration.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Notify(_ context.Context, action AuditAction, r *LeaveRequest) {
	if n.Logger == nil {
		return
	}
	n.Logger.Info("leave request notification",
		zap.String("action", string(action)),
		zap.String("request_id", string(r.ID)),
		zap.String("employee_id", string(r.EmployeeID)),
		zap.String("leave_type_id", string(r.LeaveTypeID)),
		zap.String("status", string(r.Status)),
		zap.String("start", r.StartDate.String()),
		zap.String("end", r.EndDate.String()),
	)
}
