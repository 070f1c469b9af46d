package operator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"slices"

	"github.com/hugolhafner/lakecommit/committer"
	"github.com/hugolhafner/lakecommit/logger"
	"github.com/hugolhafner/lakecommit/state"
)

// Collector receives every committable the operator forwards downstream.
type Collector[C any] func(ctx context.Context, input C) error

type Config[C any] struct {
	// CheckpointingEnabled selects how end-of-input is flushed. When true,
	// EndInput only marks the flag and the remaining committables are
	// flushed by the next NotifyCheckpointComplete. When false no
	// confirmation will ever arrive, so EndInput commits everything
	// directly.
	CheckpointingEnabled bool

	// InitialCommitUser is used only on the first run. After that the
	// commit user is recovered from state and this value is ignored.
	InitialCommitUser string

	Collector Collector[C]
	Logger    logger.Logger
}

type Option[C any] func(*Config[C])

func WithCheckpointing[C any](enabled bool) Option[C] {
	return func(cfg *Config[C]) {
		cfg.CheckpointingEnabled = enabled
	}
}

func WithInitialCommitUser[C any](user string) Option[C] {
	return func(cfg *Config[C]) {
		cfg.InitialCommitUser = user
	}
}

func WithCollector[C any](c Collector[C]) Option[C] {
	return func(cfg *Config[C]) {
		cfg.Collector = c
	}
}

func WithLogger[C any](l logger.Logger) Option[C] {
	return func(cfg *Config[C]) {
		cfg.Logger = l.With("component", "commit-operator")
	}
}

// Operator coordinates checkpoint-aligned commits: it buffers committables,
// groups them by checkpoint on snapshot, and commits each checkpoint's
// global committable to the external system once the host confirms the
// checkpoint durable. Parallelism of this operator is always 1: one commit
// user and one ordered checkpoint map must not be contended.
type Operator[C, G any] struct {
	cfg     Config[C]
	factory committer.Factory[C, G]
	states  state.Manager[G]

	// inputs records all committables received since the last grouping.
	inputs []C

	// perCheckpoint groups global committables by checkpoint id. Keys are
	// unique; reinsertion is a consistency violation.
	perCheckpoint map[int64]G

	committer  committer.Committer[C, G]
	commitUser string
	watermark  int64
	endOfInput bool

	logger logger.Logger
}

func New[C, G any](
	factory committer.Factory[C, G], states state.Manager[G], opts ...Option[C],
) *Operator[C, G] {
	cfg := Config[C]{
		CheckpointingEnabled: true,
		Logger:               logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Operator[C, G]{
		cfg:           cfg,
		factory:       factory,
		states:        states,
		perCheckpoint: make(map[int64]G),
		logger:        cfg.Logger,
	}
}

// Open restores or creates the commit user, builds the committer bound to
// it and re-commits any global committables that were persisted but never
// confirmed applied before a restart. Must be called once, before any
// committable is processed.
func (o *Operator[C, G]) Open(ctx context.Context) error {
	o.watermark = math.MinInt64
	o.endOfInput = false

	initial := o.cfg.InitialCommitUser
	if initial == "" {
		initial = newCommitUser()
	}

	// The commit user must be consistent across restarts: a recovered
	// value always wins over the configured one.
	user, err := o.states.RestoreCommitUser(ctx, initial)
	if err != nil {
		return fmt.Errorf("restore commit user: %w", err)
	}
	o.commitUser = user

	c, err := o.factory(user)
	if err != nil {
		return fmt.Errorf("create committer: %w", err)
	}
	o.committer = c

	restored, err := o.states.Restore(ctx, c)
	if err != nil {
		return fmt.Errorf("restore committables: %w", err)
	}

	o.logger.Info(
		"commit operator opened",
		"commitUser", user,
		"restoredCommittables", len(restored),
	)

	return nil
}

// CommitUser returns the commit user this operator runs as. Valid after
// Open.
func (o *Operator[C, G]) CommitUser() string {
	return o.commitUser
}

// ProcessWatermark tracks the latest event-time watermark. The
// end-of-stream sentinel of a bounded input is ignored.
func (o *Operator[C, G]) ProcessWatermark(timestamp int64) {
	if timestamp != math.MaxInt64 {
		o.watermark = timestamp
	}
}

// ProcessElement forwards the committable downstream unchanged and records
// it until the next grouping. This stage never drops or reorders records.
func (o *Operator[C, G]) ProcessElement(ctx context.Context, input C) error {
	if o.cfg.Collector != nil {
		if err := o.cfg.Collector(ctx, input); err != nil {
			return fmt.Errorf("forward committable: %w", err)
		}
	}

	o.inputs = append(o.inputs, input)
	return nil
}

// SnapshotState drains the pending committables into per-checkpoint global
// committables and persists everything still awaiting confirmation as this
// snapshot's durable record.
func (o *Operator[C, G]) SnapshotState(ctx context.Context, checkpointID int64) error {
	if err := o.pollInputs(); err != nil {
		return err
	}

	if err := o.states.Persist(ctx, o.pending()); err != nil {
		return fmt.Errorf("persist committables for checkpoint %d: %w", checkpointID, err)
	}

	o.logger.Debug(
		"snapshotted pending committables",
		"checkpoint", checkpointID,
		"pending", len(o.perCheckpoint),
	)

	return nil
}

// NotifyCheckpointComplete commits every checkpoint up to and including the
// confirmed one. Confirmations may arrive late and out of order; a later
// confirmation subsumes any earlier checkpoint that was never individually
// confirmed. After end of input no further checkpoints will ever complete,
// so a single confirmation flushes everything outstanding.
func (o *Operator[C, G]) NotifyCheckpointComplete(ctx context.Context, checkpointID int64) error {
	horizon := checkpointID
	if o.endOfInput {
		horizon = math.MaxInt64
	}

	return o.commitUpTo(ctx, horizon)
}

// EndInput marks the input as exhausted. With checkpointing enabled the
// remaining committables are flushed by a later NotifyCheckpointComplete;
// without it, no confirmation will ever arrive, so everything is grouped
// and committed immediately.
func (o *Operator[C, G]) EndInput(ctx context.Context) error {
	o.endOfInput = true
	if o.cfg.CheckpointingEnabled {
		return nil
	}

	if err := o.pollInputs(); err != nil {
		return err
	}

	return o.commitUpTo(ctx, math.MaxInt64)
}

// Close clears in-memory state and releases the committer. Safe to call
// even if Open never succeeded, and independent of the fate of any
// outstanding committables.
func (o *Operator[C, G]) Close() error {
	clear(o.perCheckpoint)
	o.inputs = nil

	if o.committer == nil {
		return nil
	}

	c := o.committer
	o.committer = nil
	return c.Close()
}

// pollInputs drains the input buffer into the per-checkpoint map. The
// buffer is fully drained in one pass, so no committable is ever split
// across two groupings, and it is cleared only once every group combined.
func (o *Operator[C, G]) pollInputs() error {
	grouped, err := o.committer.GroupByCheckpoint(o.inputs)
	if err != nil {
		return fmt.Errorf("group committables: %w", err)
	}

	checkpoints := make([]int64, 0, len(grouped))
	for cp := range grouped {
		checkpoints = append(checkpoints, cp)
	}
	slices.Sort(checkpoints)

	for _, cp := range checkpoints {
		if _, exists := o.perCheckpoint[cp]; exists {
			return &DuplicateCheckpointError{CheckpointID: cp}
		}

		global, err := o.committer.Combine(cp, o.watermark, grouped[cp])
		if err != nil {
			return fmt.Errorf("combine committables for checkpoint %d: %w", cp, err)
		}

		o.perCheckpoint[cp] = global
	}

	o.inputs = o.inputs[:0]
	return nil
}

// pending returns the not-yet-committed global committables in ascending
// checkpoint order.
func (o *Operator[C, G]) pending() []G {
	checkpoints := o.sortedCheckpoints()
	committables := make([]G, 0, len(checkpoints))
	for _, cp := range checkpoints {
		committables = append(committables, o.perCheckpoint[cp])
	}

	return committables
}

func (o *Operator[C, G]) sortedCheckpoints() []int64 {
	checkpoints := make([]int64, 0, len(o.perCheckpoint))
	for cp := range o.perCheckpoint {
		checkpoints = append(checkpoints, cp)
	}
	slices.Sort(checkpoints)
	return checkpoints
}

func (o *Operator[C, G]) commitUpTo(ctx context.Context, checkpointID int64) error {
	var ready []int64
	for _, cp := range o.sortedCheckpoints() {
		if cp > checkpointID {
			break
		}
		ready = append(ready, cp)
	}

	committables := make([]G, 0, len(ready))
	for _, cp := range ready {
		committables = append(committables, o.perCheckpoint[cp])
	}

	if err := o.committer.Commit(ctx, committables); err != nil {
		return fmt.Errorf("commit up to checkpoint %d: %w", checkpointID, err)
	}

	for _, cp := range ready {
		delete(o.perCheckpoint, cp)
	}

	if len(ready) > 0 {
		o.logger.Info(
			"committed checkpoints",
			"from", ready[0],
			"to", ready[len(ready)-1],
			"count", len(ready),
		)
	}

	return nil
}

func newCommitUser() string {
	buf := make([]byte, 16)
	// rand.Read never fails on supported platforms
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
