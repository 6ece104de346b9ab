package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Sauravv193/event-collab-task-management/internal/metrics"
	"github.com/Sauravv193/event-collab-task-management/internal/telemetry"
)

// Capability is a named permission level requested against a resource.
type Capability string

const (
	// CapabilityAdmin is granted only to the resource creator.
	CapabilityAdmin Capability = "ADMIN"
	// CapabilityMember is granted to every member of the owning event.
	CapabilityMember Capability = "MEMBER"
)

// Resource type vocabulary, matched case-insensitively.
const (
	ResourceEvent = "Event"
	ResourceTask  = "Task"
)

// EventDirectory is the read-only event lookup the evaluator needs.
type EventDirectory interface {
	// CreatorID returns the numeric id of the event's creator.
	CreatorID(ctx context.Context, eventID int64) (int64, error)
	// IsMember reports membership via an existence query; the full member
	// set is never materialized.
	IsMember(ctx context.Context, eventID int64, username string) (bool, error)
}

// TaskDirectory resolves a task to its owning event.
type TaskDirectory interface {
	OwningEvent(ctx context.Context, taskID int64) (int64, error)
}

const lookupTimeout = 5 * time.Second

// Evaluator decides resource-scoped permissions. It is stateless and holds
// no cache: every check reflects the store's current membership state.
// All error paths deny; the evaluator never panics across its boundary.
type Evaluator struct {
	events EventDirectory
	tasks  TaskDirectory
	logger *zap.Logger
}

// NewEvaluator builds a permission evaluator over the given directories.
func NewEvaluator(events EventDirectory, tasks TaskDirectory, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{events: events, tasks: tasks, logger: logger}
}

// Check reports whether ident holds capability on the identified resource.
// Callers gate the protected operation on the returned bool.
func (e *Evaluator) Check(ctx context.Context, ident *Identity, resourceType string, resourceID int64, capability Capability) bool {
	if ident == nil {
		e.logger.Debug("permission denied: unauthenticated caller",
			zap.String("resource_type", resourceType),
			zap.Int64("resource_id", resourceID),
		)
		return false
	}

	ctx, span := telemetry.StartPermissionSpan(ctx, resourceType, resourceID, string(capability))
	defer span.End()

	// A slow store must not stall the gate indefinitely.
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var allowed bool
	switch {
	case strings.EqualFold(resourceType, ResourceEvent):
		allowed = e.checkEvent(ctx, ident, resourceID, capability)
	case strings.EqualFold(resourceType, ResourceTask):
		eventID, err := e.tasks.OwningEvent(ctx, resourceID)
		if err != nil {
			e.logger.Warn("task not found or has no owning event",
				zap.Int64("task_id", resourceID),
				zap.Error(err),
			)
			break
		}
		allowed = e.checkEvent(ctx, ident, eventID, capability)
	default:
		e.logger.Warn("unknown resource type", zap.String("resource_type", resourceType))
	}

	telemetry.RecordDecision(span, allowed)
	metrics.PermissionChecksTotal.WithLabelValues(string(capability), metrics.Decision(allowed)).Inc()
	return allowed
}

func (e *Evaluator) checkEvent(ctx context.Context, ident *Identity, eventID int64, capability Capability) bool {
	switch capability {
	case CapabilityAdmin:
		creatorID, err := e.events.CreatorID(ctx, eventID)
		if err != nil {
			e.logger.Error("admin check failed", zap.Int64("event_id", eventID), zap.Error(err))
			return false
		}
		// Compare numeric ids, never usernames: usernames are mutable.
		return creatorID == ident.ID
	case CapabilityMember:
		ok, err := e.events.IsMember(ctx, eventID, ident.Username)
		if err != nil {
			e.logger.Error("member check failed", zap.Int64("event_id", eventID), zap.Error(err))
			return false
		}
		return ok
	default:
		e.logger.Warn("unknown capability", zap.String("capability", string(capability)))
		return false
	}
}
