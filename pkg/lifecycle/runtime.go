package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

const tracerName = "github.com/vidhive/vidhive-server/pkg/lifecycle"

// Hook is a function called during a lifecycle transition. If a hook
// returns a non-nil error the transition aborts and the Runtime moves
// to [StateFailed]. Hooks execute outside the state mutex, so they may
// safely call read-only methods on the Runtime.
type Hook func(ctx context.Context) error

// StateChangeHandler is invoked on every state change with the
// previous and new state. Handlers execute synchronously under the
// state mutex during the transition; they must not call lifecycle
// methods on the same Runtime or block. A panicking handler is
// recovered and logged without preventing the change.
type StateChangeHandler func(old, new State)

// Dependency is an external system the server needs: the database,
// the object store, the cache. Its Check is consulted by
// [Runtime.Health] while the server is running.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// Info is a point-in-time snapshot of the process identity, state,
// and uptime, safe to serialize.
type Info struct {
	Name         string        `json:"name"`
	Version      string        `json:"version"`
	State        State         `json:"state"`
	Dependencies []string      `json:"dependencies,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
}

// Runtime drives the server process through its lifecycle. Construct
// one with [NewRuntime], register hooks and dependencies via options,
// then call Start and, on shutdown, Stop.
type Runtime struct {
	name    string
	version string

	mu            sync.RWMutex
	state         State
	startedAt     *time.Time
	onStart       Hook
	onStop        Hook
	deps          []Dependency
	stateHandlers []StateChangeHandler

	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures [NewRuntime].
type Option func(*Runtime)

// WithOnStart registers the hook executed between Starting and
// Running, typically dependency connects and bucket provisioning.
func WithOnStart(hook Hook) Option {
	return func(r *Runtime) { r.onStart = hook }
}

// WithOnStop registers the hook executed between Stopping and
// Stopped, typically draining the HTTP server and closing clients.
func WithOnStop(hook Hook) Option {
	return func(r *Runtime) { r.onStop = hook }
}

// WithDependency registers an external system whose health is folded
// into [Runtime.Health].
func WithDependency(dep Dependency) Option {
	return func(r *Runtime) { r.deps = append(r.deps, dep) }
}

// WithStateHandler registers a callback for every state change.
func WithStateHandler(handler StateChangeHandler) Option {
	return func(r *Runtime) { r.stateHandlers = append(r.stateHandlers, handler) }
}

// NewRuntime creates a Runtime in [StateUnknown].
func NewRuntime(name, version string, opts ...Option) *Runtime {
	r := &Runtime{
		name:    name,
		version: version,
		state:   StateUnknown,
		logger:  slog.Default().With("component", "lifecycle"),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Info returns a snapshot of the process identity, state, and uptime.
func (r *Runtime) Info() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := Info{
		Name:    r.name,
		Version: r.version,
		State:   r.state,
	}
	for _, dep := range r.deps {
		info.Dependencies = append(info.Dependencies, dep.Name)
	}
	if r.startedAt != nil && r.state == StateRunning {
		t := *r.startedAt
		info.StartedAt = &t
		info.Uptime = time.Since(t)
	}
	return info
}

// SetState transitions to the given state after validating against
// the state machine. Returns a [vherr.CodeConflict] error for an
// illegal transition. Exported so wiring code can force
// [StateFailed] when it detects an unrecoverable error.
func (r *Runtime) SetState(next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.state
	if !ValidTransition(old, next) {
		return vherr.Newf(vherr.CodeConflict,
			"lifecycle: invalid state transition from %q to %q", old, next)
	}
	r.state = next

	// Handlers run under the lock to guarantee ordering; a panic in
	// one must not corrupt the state machine.
	for _, h := range r.stateHandlers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("lifecycle: state change handler panicked",
						"panic", p,
						"old_state", string(old),
						"new_state", string(next),
					)
				}
			}()
			h(old, next)
		}()
	}
	return nil
}

// Start moves the Runtime through Starting to Running, executing the
// OnStart hook in between. A hook failure leaves the Runtime in
// [StateFailed]. Start may only be called from [StateUnknown],
// [StateStopped], or [StateFailed].
func (r *Runtime) Start(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "lifecycle.Start",
		trace.WithAttributes(attribute.String("process.name", r.name)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return vherr.Wrap(err, vherr.CodeTimeout,
			"lifecycle: start canceled before execution")
	}

	if err := r.SetState(StateStarting); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if r.onStart != nil {
		if err := r.onStart(ctx); err != nil {
			_ = r.SetState(StateFailed)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return vherr.Wrap(err, vherr.CodeInternal, "lifecycle: start hook failed")
		}
	}

	if err := r.SetState(StateRunning); err != nil {
		return err
	}

	now := time.Now()
	r.mu.Lock()
	r.startedAt = &now
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "process started", "name", r.name, "version", r.version)
	return nil
}

// Stop moves the Runtime through Stopping to Stopped, executing the
// OnStop hook in between. Stop may only be called from
// [StateStarting] or [StateRunning].
func (r *Runtime) Stop(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "lifecycle.Stop",
		trace.WithAttributes(attribute.String("process.name", r.name)))
	defer span.End()

	if err := r.SetState(StateStopping); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if r.onStop != nil {
		if err := r.onStop(ctx); err != nil {
			_ = r.SetState(StateFailed)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return vherr.Wrap(err, vherr.CodeInternal, "lifecycle: stop hook failed")
		}
	}

	if err := r.SetState(StateStopped); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "process stopped", "name", r.name)
	return nil
}

// Health reports nil while the process is Running and every
// registered dependency check passes. Outside Running it returns a
// [vherr.CodeUnavailable] error; a failing dependency returns that
// dependency's error wrapped with its name.
func (r *Runtime) Health(ctx context.Context) error {
	if state := r.State(); state != StateRunning {
		return vherr.Newf(vherr.CodeUnavailable,
			"lifecycle: process is not running, current state is %q", state)
	}

	r.mu.RLock()
	deps := make([]Dependency, len(r.deps))
	copy(deps, r.deps)
	r.mu.RUnlock()

	for _, dep := range deps {
		if dep.Check == nil {
			continue
		}
		if err := dep.Check(ctx); err != nil {
			return vherr.Wrapf(err, vherr.CodeUnavailableDependency,
				"lifecycle: dependency %q is unhealthy", dep.Name)
		}
	}
	return nil
}
