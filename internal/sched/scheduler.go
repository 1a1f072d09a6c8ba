// internal/sched/scheduler.go

package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"rtsched/internal/ctxlog"
	"rtsched/internal/graph"
	"rtsched/internal/model"
)

// Scheduler computes static schedules. It holds configuration only; every
// call builds its own graph, sequence and node bookkeeping, so one Scheduler
// may serve concurrent calls.
type Scheduler struct {
	cfg      Config
	logger   *slog.Logger // nil = take it from the context
	observer Observer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used instead of the one carried by the context.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithObserver receives every placement event.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithMode overrides the configured strictness.
func WithMode(m Mode) Option {
	return func(s *Scheduler) { s.cfg.Mode = m }
}

// New creates a Scheduler with the given configuration.
func New(cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{cfg: cfg.normalize()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// With returns a copy of s with opts applied, for per-call overrides.
func (s *Scheduler) With(opts ...Option) *Scheduler {
	c := *s
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Mode returns the strictness used by LDF and EDF operations.
func (s *Scheduler) Mode() Mode { return s.cfg.Mode }

// SingleNodeLDF schedules app serially on one node, latest deadline first.
func (s *Scheduler) SingleNodeLDF(ctx context.Context, app *model.Application) (*Result, error) {
	return s.Run(ctx, AlgLDFSingle, app, nil)
}

// SingleNodeEDF schedules app serially on one node, earliest deadline first.
func (s *Scheduler) SingleNodeEDF(ctx context.Context, app *model.Application) (*Result, error) {
	return s.Run(ctx, AlgEDFSingle, app, nil)
}

// MultiNodeLDF places app on the platform's nodes, latest deadline first.
func (s *Scheduler) MultiNodeLDF(ctx context.Context, app *model.Application, p *model.Platform) (*Result, error) {
	return s.Run(ctx, AlgLDFMulti, app, p)
}

// MultiNodeEDF places app on the platform's nodes, earliest deadline first.
func (s *Scheduler) MultiNodeEDF(ctx context.Context, app *model.Application, p *model.Platform) (*Result, error) {
	return s.Run(ctx, AlgEDFMulti, app, p)
}

// MultiNodeLL places app on the platform's nodes, least static laxity first.
// It is always strict: a cycle or a deadline miss fails the whole request.
func (s *Scheduler) MultiNodeLL(ctx context.Context, app *model.Application, p *model.Platform) (*Result, error) {
	return s.Run(ctx, AlgLLMulti, app, p)
}

// Run executes one algorithm. The platform is ignored by single-node
// algorithms and may be nil for them.
func (s *Scheduler) Run(ctx context.Context, alg Algorithm, app *model.Application, p *model.Platform) (*Result, error) {
	def, ok := algorithmDefs[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}

	logger := s.logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}
	logger = logger.With("algorithm", def.name)

	mode := s.cfg.Mode
	if def.strict {
		mode = Strict
	}

	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", def.name, err)
	}
	g, err := graph.Build(app.Tasks, app.Messages)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.name, err)
	}
	logger.Debug("Graph built.", "tasks", g.TaskCount(), "edges", len(app.Messages), "mode", mode)

	cycles := CycleDrop
	switch {
	case mode == Strict:
		cycles = CycleFail
	case def.multi:
		cycles = CycleFixUp
	}

	order, err := Sequence(g, def.policy.rank(g), cycles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.name, err)
	}
	if len(order) < g.TaskCount() {
		logger.Warn("Cycle left tasks unsequenced.", "sequenced", len(order), "tasks", g.TaskCount(), "policy", cycles)
	}

	var alloc allocator
	if def.multi {
		m, err := newMultiNode(p, s.cfg.NodeType)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.name, err)
		}
		alloc = m
	} else {
		alloc = &singleNode{id: model.NodeID(s.cfg.SingleNodeID)}
	}

	pl := &placement{
		name:     def.name,
		graph:    g,
		alloc:    alloc,
		mode:     mode,
		orphans:  s.cfg.Orphans,
		observer: s.observer,
		logger:   logger,
	}
	entries, dropped, err := pl.place(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.name, err)
	}

	// tasks the sequencer could not order are dropped as well
	if len(order) < g.TaskCount() {
		sequenced := make(map[model.TaskID]bool, len(order))
		for _, id := range order {
			sequenced[id] = true
		}
		for _, id := range g.Order {
			if !sequenced[id] {
				dropped = append(dropped, id)
				pl.emit(StatusEvent{Kind: StatusDrop, TaskID: id, Reason: "unsequenced"})
			}
		}
	}

	logger.Info("Schedule computed.", "scheduled", len(entries), "dropped", len(dropped))
	return Report(def.name, entries, dropped), nil
}

// Outcome is the result of one algorithm in RunAll.
type Outcome struct {
	Algorithm Algorithm
	Result    *Result
	Err       error
}

// RunAll runs every algorithm concurrently on the same input and returns the
// outcomes in Algorithms order. A failing algorithm does not stop the others;
// only context cancellation does, and is returned as the error.
func (s *Scheduler) RunAll(ctx context.Context, app *model.Application, p *model.Platform) ([]Outcome, error) {
	outcomes := make([]Outcome, len(Algorithms))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, alg := range Algorithms {
		i, alg := i, alg
		eg.Go(func() error {
			res, err := s.Run(ctx, alg, app, p)
			outcomes[i] = Outcome{Algorithm: alg, Result: res, Err: err}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// placement is the per-call bookkeeping of the node allocator.
type placement struct {
	name     string
	graph    *graph.Graph
	alloc    allocator
	mode     Mode
	orphans  OrphanPolicy
	observer Observer
	logger   *slog.Logger
}

func (pl *placement) emit(ev StatusEvent) {
	if pl.observer == nil {
		return
	}
	ev.Algorithm = pl.name
	pl.observer.Observe(ev)
}

// place walks the sequence once, placing each task at the earliest time its
// chosen node is free and its predecessors are done.
func (pl *placement) place(ctx context.Context, order []model.TaskID) ([]Entry, []model.TaskID, error) {
	entries := make([]Entry, 0, len(order))
	var dropped []model.TaskID
	finish := make(map[model.TaskID]model.Time, len(order))

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		t := pl.graph.Tasks[id]
		pl.emit(StatusEvent{Kind: StatusEnqueue, TaskID: id})

		ready, orphan, ok := pl.readyTime(id, finish)
		if !ok {
			pl.logger.Warn("Task dropped: predecessor not scheduled.", "task", id, "predecessor", orphan)
			pl.emit(StatusEvent{Kind: StatusDrop, TaskID: id, Reason: "predecessor not scheduled"})
			dropped = append(dropped, id)
			continue
		}

		node, free := pl.alloc.pick()
		start := max(ready, free)
		end := start + t.WCET

		if end > t.Deadline {
			if pl.mode == Strict {
				return nil, nil, &DeadlineMissError{TaskID: id, NodeID: node, Start: start, End: end, Deadline: t.Deadline}
			}
			pl.logger.Warn("Task dropped: deadline miss.", "task", id, "node", node, "end", end, "deadline", t.Deadline)
			pl.emit(StatusEvent{Kind: StatusDrop, TaskID: id, NodeID: node, Time: end, Reason: "deadline miss"})
			dropped = append(dropped, id)
			continue
		}

		pl.alloc.commit(node, end)
		finish[id] = end
		entries = append(entries, Entry{
			TaskID:    id,
			NodeID:    node,
			StartTime: start,
			EndTime:   end,
			Deadline:  t.Deadline,
		})
		pl.logger.Debug("Task placed.", "task", id, "node", node, "start", start, "end", end)
		pl.emit(StatusEvent{Kind: StatusDispatch, TaskID: id, NodeID: node, Time: start})
		pl.emit(StatusEvent{Kind: StatusFinish, TaskID: id, NodeID: node, Time: end})
	}
	return entries, dropped, nil
}

// readyTime is the latest end among the scheduled predecessors of id. With
// OrphanSkip an unscheduled predecessor makes the task ineligible and is
// returned as orphan with ok=false; with OrphanRelease it counts as done at 0.
func (pl *placement) readyTime(id model.TaskID, finish map[model.TaskID]model.Time) (ready model.Time, orphan model.TaskID, ok bool) {
	for _, pred := range pl.graph.Predecessors(id) {
		end, done := finish[pred]
		if !done {
			if pl.orphans == OrphanSkip {
				return 0, pred, false
			}
			continue
		}
		ready = max(ready, end)
	}
	return ready, 0, true
}
