package runner

import (
	"context"
	"fmt"

	"github.com/hugolhafner/lakecommit/committer"
	"github.com/hugolhafner/lakecommit/operator"
	"github.com/hugolhafner/lakecommit/state"
)

type eventKind int

const (
	eventCommittable eventKind = iota
	eventWatermark
)

// Event is one intake item for the runner: either a committable or a
// watermark observation.
type Event[C any] struct {
	kind        eventKind
	committable C
	watermark   int64
}

func CommittableEvent[C any](input C) Event[C] {
	return Event[C]{kind: eventCommittable, committable: input}
}

func WatermarkEvent[C any](timestamp int64) Event[C] {
	return Event[C]{kind: eventWatermark, watermark: timestamp}
}

// Runner is an embedded single-threaded host for a commit operator, for
// pipelines that do not run under a framework with its own checkpoint
// protocol. It drives intake from an event channel, cuts checkpoint
// boundaries when the trigger fires and confirms each checkpoint as soon
// as its snapshot is durably persisted.
type Runner[C, G any] struct {
	op     *operator.Operator[C, G]
	config Config[C]

	nextCheckpoint int64
}

func New[C, G any](
	factory committer.Factory[C, G], states state.Manager[G], opts ...Option[C],
) *Runner[C, G] {
	config := defaultConfig[C]()
	for _, opt := range opts {
		opt(&config)
	}

	op := operator.New(
		factory, states,
		operator.WithCheckpointing[C](config.CheckpointingEnabled),
		operator.WithInitialCommitUser[C](config.InitialCommitUser),
		operator.WithCollector(config.Collector),
		operator.WithLogger[C](config.Logger),
	)

	return &Runner[C, G]{
		op:             op,
		config:         config,
		nextCheckpoint: 1,
	}
}

// Run processes events until the channel is closed or the context is
// cancelled. A closed channel means end of input: remaining committables
// are flushed before Run returns. Run owns the operator lifecycle.
func (r *Runner[C, G]) Run(ctx context.Context, events <-chan Event[C]) (err error) {
	if err := r.op.Open(ctx); err != nil {
		return fmt.Errorf("open operator: %w", err)
	}

	defer func() {
		if closeErr := r.op.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close operator: %w", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return r.finish(ctx)
			}

			switch ev.kind {
			case eventCommittable:
				if err := r.op.ProcessElement(ctx, ev.committable); err != nil {
					return err
				}

				// The boundary is cut synchronously, before the next event
				// is consumed, so committables tagged for the next
				// checkpoint are never grouped into the current one.
				r.config.Trigger.RecordProcessed(1)
				if r.config.CheckpointingEnabled && r.triggered() {
					if err := r.checkpoint(ctx); err != nil {
						return err
					}
				}
			case eventWatermark:
				r.op.ProcessWatermark(ev.watermark)
			}
		}
	}
}

func (r *Runner[C, G]) triggered() bool {
	select {
	case <-r.config.Trigger.C():
		return true
	default:
		return false
	}
}

// checkpoint snapshots pending state and, since Persist returning is the
// durability boundary here, immediately confirms the checkpoint.
func (r *Runner[C, G]) checkpoint(ctx context.Context) error {
	id := r.nextCheckpoint
	r.nextCheckpoint++

	if err := r.op.SnapshotState(ctx, id); err != nil {
		return err
	}

	return r.op.NotifyCheckpointComplete(ctx, id)
}

func (r *Runner[C, G]) finish(ctx context.Context) error {
	if err := r.op.EndInput(ctx); err != nil {
		return err
	}

	if !r.config.CheckpointingEnabled {
		// EndInput already committed everything.
		return nil
	}

	// One final checkpoint flushes whatever EndInput left outstanding.
	return r.checkpoint(ctx)
}

// CommitUser exposes the operator's commit user, valid once Run has opened
// the operator.
func (r *Runner[C, G]) CommitUser() string {
	return r.op.CommitUser()
}
