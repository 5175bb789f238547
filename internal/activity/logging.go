package activity

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
)

// SafeLog logs through the activity logger. Outside an activity context
// (plain unit tests) the call is ignored.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError is SafeLog at error level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat records progress. Outside an activity context it is a no-op.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}

// HeartbeatTimeout returns the running activity's heartbeat timeout, or zero
// outside an activity context.
func HeartbeatTimeout(ctx context.Context) (timeout time.Duration) {
	defer func() {
		if recover() != nil {
			timeout = 0
		}
	}()
	return activity.GetInfo(ctx).HeartbeatTimeout
}
