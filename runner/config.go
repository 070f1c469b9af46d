package runner

import (
	"github.com/hugolhafner/lakecommit/logger"
	"github.com/hugolhafner/lakecommit/operator"
	"github.com/hugolhafner/lakecommit/trigger"
)

type Config[C any] struct {
	CheckpointingEnabled bool
	InitialCommitUser    string
	Collector            operator.Collector[C]
	Trigger              trigger.Trigger
	Logger               logger.Logger
}

func defaultConfig[C any]() Config[C] {
	return Config[C]{
		CheckpointingEnabled: true,
		Trigger:              trigger.NewPeriodic(),
		Logger:               logger.NewNoopLogger(),
	}
}

type Option[C any] func(*Config[C])

func WithCheckpointing[C any](enabled bool) Option[C] {
	return func(c *Config[C]) {
		c.CheckpointingEnabled = enabled
	}
}

func WithInitialCommitUser[C any](user string) Option[C] {
	return func(c *Config[C]) {
		c.InitialCommitUser = user
	}
}

func WithCollector[C any](collector operator.Collector[C]) Option[C] {
	return func(c *Config[C]) {
		c.Collector = collector
	}
}

func WithTrigger[C any](t trigger.Trigger) Option[C] {
	return func(c *Config[C]) {
		if t != nil {
			c.Trigger = t
		}
	}
}

func WithLogger[C any](l logger.Logger) Option[C] {
	return func(c *Config[C]) {
		c.Logger = l
	}
}
