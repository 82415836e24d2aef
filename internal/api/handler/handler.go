package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/internal/booking/engine"
)

// ActorKey is the gin context key holding the acting domain.Actor
const ActorKey = "booking.actor"

// EventPublisher delivers committed lifecycle events
type EventPublisher interface {
	PublishEvents(ctx context.Context, events []domain.Event)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Engine      *engine.Engine
	Publisher   EventPublisher
	Health      HealthChecker
	ServiceName string
}

// JobHandler handles booking HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	engine    *engine.Engine
	publisher EventPublisher
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		engine:    deps.Engine,
		publisher: deps.Publisher,
	}
}
