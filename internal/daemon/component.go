package daemon

import (
	"context"
)

// HealthStatus is the lifecycle phase of the whole daemon.
type HealthStatus string

const (
	StatusStarting HealthStatus = "starting"
	StatusRunning  HealthStatus = "running"
	StatusStopping HealthStatus = "stopping"
	StatusStopped  HealthStatus = "stopped"
)

// ComponentHealth is one line of the `voxd health` report.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
}

// Component is a unit of the daemon lifecycle. Init runs in dependency
// order and may fail the whole startup. Stop runs in reverse order.
//
// Health may be called from inside the router loop and must not block on
// anything Stop holds.
type Component interface {
	Name() string
	Dependencies() []string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (*ComponentHealth, error)
}
