package rebuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Event tells the loop that the underlying schema may have changed.
type Event struct {
	// Reason describes the change, e.g. the etcd key or the pub/sub payload.
	Reason string

	// Revision is the etcd revision of the change, or 0.
	Revision int64
}

// Trigger produces rebuild events until ctx is cancelled.
type Trigger interface {
	Events(ctx context.Context) (<-chan Event, error)
}

// ChanTrigger adapts a channel to the Trigger interface. Closing the channel
// stops the loop.
type ChanTrigger chan Event

// Events implements Trigger.
func (c ChanTrigger) Events(context.Context) (<-chan Event, error) {
	return c, nil
}

// EtcdOptions configures an EtcdTrigger.
type EtcdOptions struct {
	// Endpoints is the list of etcd endpoints.
	// Format: ["host1:2379", "host2:2379"]
	Endpoints []string

	// Key is watched as a prefix. Any put or delete under it is an event.
	// Default: /nodeid/schema
	Key string

	// DialTimeout bounds connection establishment.
	// Default: 5s
	DialTimeout time.Duration

	// TLS enables client certificate authentication.
	TLS *TLSOptions

	// Logger receives watch failures.
	// Default: slog.Default()
	Logger *slog.Logger
}

// EtcdTrigger emits an event for every change under a watched etcd prefix.
type EtcdTrigger struct {
	client *clientv3.Client
	key    string
	owned  bool
	logger *slog.Logger
}

// NewEtcdTrigger connects to etcd and verifies connectivity.
func NewEtcdTrigger(opts EtcdOptions) (*EtcdTrigger, error) {
	if len(opts.Endpoints) == 0 {
		return nil, errors.New("etcd endpoints cannot be empty")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}

	clientCfg := clientv3.Config{
		Endpoints:   opts.Endpoints,
		DialTimeout: opts.DialTimeout,
	}

	tlsConfig, err := clientTLSConfig(opts.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	clientCfg.TLS = tlsConfig

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()

	if _, err := cli.Get(ctx, "health-check"); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	t := NewEtcdTriggerFromClient(cli, opts.Key).WithLogger(opts.Logger)
	t.owned = true
	return t, nil
}

// NewEtcdTriggerFromClient watches key with an existing client. Close does
// not close a client passed in this way.
func NewEtcdTriggerFromClient(client *clientv3.Client, key string) *EtcdTrigger {
	if key == "" {
		key = "/nodeid/schema"
	}
	return &EtcdTrigger{client: client, key: key, logger: slog.Default()}
}

// WithLogger sets the logger that receives watch failures. A nil logger
// keeps the current one.
func (t *EtcdTrigger) WithLogger(logger *slog.Logger) *EtcdTrigger {
	if logger != nil {
		t.logger = logger
	}
	return t
}

// Events implements Trigger. The channel closes when ctx is cancelled or the
// watch fails; a failure is logged at Warn since no further rebuilds follow.
func (t *EtcdTrigger) Events(ctx context.Context) (<-chan Event, error) {
	watchChan := t.client.Watch(ctx, t.key, clientv3.WithPrefix())
	ch := make(chan Event, 1)
	go t.forward(ctx, watchChan, ch)
	return ch, nil
}

func (t *EtcdTrigger) forward(ctx context.Context, watchChan clientv3.WatchChan, ch chan<- Event) {
	defer close(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-watchChan:
			if !ok {
				if ctx.Err() == nil {
					t.logger.Warn("etcd watch closed, schema rebuilds stopped", "key", t.key)
				}
				return
			}
			if err := resp.Err(); err != nil {
				t.logger.Warn("etcd watch failed, schema rebuilds stopped",
					"key", t.key,
					"error", err)
				return
			}
			for _, ev := range resp.Events {
				event := Event{
					Reason:   fmt.Sprintf("%s %s", ev.Type, ev.Kv.Key),
					Revision: resp.Header.Revision,
				}
				select {
				case ch <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Close releases the etcd client if the trigger created it.
func (t *EtcdTrigger) Close() error {
	if !t.owned {
		return nil
	}
	return t.client.Close()
}

// RedisTrigger emits an event for every message on a Redis pub/sub channel.
type RedisTrigger struct {
	client  *redis.Client
	channel string
}

// NewRedisTrigger subscribes to channel on client when Events is called.
func NewRedisTrigger(client *redis.Client, channel string) *RedisTrigger {
	return &RedisTrigger{client: client, channel: channel}
}

// Events implements Trigger.
func (t *RedisTrigger) Events(ctx context.Context) (<-chan Event, error) {
	pubsub := t.client.Subscribe(ctx, t.channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", t.channel, err)
	}

	ch := make(chan Event, 1)

	go func() {
		defer close(ch)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case ch <- Event{Reason: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
