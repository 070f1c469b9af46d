package kafkasink

import (
	"context"
	"fmt"

	"github.com/hugolhafner/lakecommit/logger"
	"github.com/hugolhafner/lakecommit/manifest"
	"github.com/hugolhafner/lakecommit/serde"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ manifest.Sink = (*Sink[manifest.ManifestCommittable])(nil)

type Config struct {
	BootstrapServers []string
	ClientID         string

	Logger logger.Logger
}

func defaultConfig() Config {
	return Config{
		BootstrapServers: []string{"localhost:9092"},
		ClientID:         "lakecommit-sink",
		Logger:           logger.NewNoopLogger(),
	}
}

type Option func(*Config)

func WithBootstrapServers(servers []string) Option {
	return func(cfg *Config) {
		cfg.BootstrapServers = servers
	}
}

func WithClientID(id string) Option {
	return func(cfg *Config) {
		cfg.ClientID = id
	}
}

func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = l.With("client", "kafkasink")
	}
}

// Sink publishes each committed global committable to a commit-log topic,
// one record per committable, in commit order. It is an example adapter
// for the external-sink side of the commit operator; downstream consumers
// of the commit log deduplicate by record key, which is why the key must
// be stable across re-commits of the same committable.
type Sink[G any] struct {
	client     *kgo.Client
	topic      string
	serialiser serde.Serialiser[G]
	key        func(committable G) []byte

	logger logger.Logger
}

func New[G any](
	topic string, serialiser serde.Serialiser[G], key func(committable G) []byte, opts ...Option,
) (*Sink[G], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.BootstrapServers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kgo client: %w", err)
	}

	return &Sink[G]{
		client:     client,
		topic:      topic,
		serialiser: serialiser,
		key:        key,
		logger:     cfg.Logger,
	}, nil
}

// Commit publishes the committable and waits for the broker ack.
func (s *Sink[G]) Commit(ctx context.Context, committable G) error {
	value, err := s.serialiser.Serialise(s.topic, committable)
	if err != nil {
		return fmt.Errorf("serialise committable: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Value: value,
	}
	if s.key != nil {
		record.Key = s.key(committable)
	}

	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce commit record: %w", err)
	}

	s.logger.Debug("published commit record", "topic", s.topic, "key", string(record.Key))
	return nil
}

func (s *Sink[G]) Close() error {
	s.client.Close()
	return nil
}
