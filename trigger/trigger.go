package trigger

import (
	"time"
)

// Trigger decides when the embedded runner should cut a checkpoint
// boundary. C fires (non-blocking, coalesced) when a boundary is due.
type Trigger interface {
	C() chan struct{}
	RecordProcessed(count int)
	Close()
}

var _ Trigger = (*Periodic)(nil)

type PeriodicConfig struct {
	MaxInterval time.Duration
	MaxCount    int
}

type PeriodicOption func(*PeriodicConfig)

func WithMaxInterval(d time.Duration) PeriodicOption {
	return func(cfg *PeriodicConfig) {
		cfg.MaxInterval = d
	}
}

func WithMaxCount(c int) PeriodicOption {
	return func(cfg *PeriodicConfig) {
		cfg.MaxCount = c
	}
}

// Periodic fires when enough committables arrived or enough time passed
// since the last checkpoint, whichever comes first.
type Periodic struct {
	c              PeriodicConfig
	count          int
	lastCheckpoint time.Time
	channel        chan struct{}
}

func NewPeriodic(opts ...PeriodicOption) *Periodic {
	cfg := PeriodicConfig{
		MaxInterval: 10 * time.Second,
		MaxCount:    1000,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Periodic{
		c:              cfg,
		count:          0,
		lastCheckpoint: time.Now(),
		channel:        make(chan struct{}, 1),
	}
}

func (p *Periodic) RecordProcessed(count int) {
	p.count += count
	if p.count > 0 && (p.count >= p.c.MaxCount || time.Since(p.lastCheckpoint) >= p.c.MaxInterval) {
		select {
		case p.channel <- struct{}{}:
		default:
		}

		p.count = 0
		p.lastCheckpoint = time.Now()
	}
}

func (p *Periodic) C() chan struct{} {
	return p.channel
}

func (p *Periodic) Close() {
	close(p.channel)
}
