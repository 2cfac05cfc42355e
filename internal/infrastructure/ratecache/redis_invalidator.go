package ratecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/erp/flattax/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCloseTimeout = 5 * time.Second
	pingTimeout         = 5 * time.Second
)

// ErrAlreadySubscribed is returned by Subscribe while a subscription runs.
var ErrAlreadySubscribed = errors.New("subscription already running")

// RedisInvalidator broadcasts rate table changes over Redis Pub/Sub so every
// instance swaps to the same table.
type RedisInvalidator struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger

	mu        sync.Mutex
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	isRunning bool
}

// Option configures a RedisInvalidator
type Option func(*RedisInvalidator)

// WithChannel sets the Pub/Sub channel name
func WithChannel(channel string) Option {
	return func(i *RedisInvalidator) {
		if channel != "" {
			i.channel = channel
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(i *RedisInvalidator) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewRedisInvalidator connects to Redis and checks the connection.
func NewRedisInvalidator(ctx context.Context, cfg config.RedisConfig, opts ...Option) (*RedisInvalidator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	i := NewRedisInvalidatorWithClient(client, append([]Option{WithChannel(cfg.Channel)}, opts...)...)
	i.ownsClient = true
	return i, nil
}

// NewRedisInvalidatorWithClient uses an existing client. The caller keeps
// ownership of the client.
func NewRedisInvalidatorWithClient(client *redis.Client, opts ...Option) *RedisInvalidator {
	i := &RedisInvalidator{
		client:  client,
		channel: DefaultChannel,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Channel returns the Pub/Sub channel name.
func (i *RedisInvalidator) Channel() string {
	return i.channel
}

// Publish sends msg to all subscribers
func (i *RedisInvalidator) Publish(ctx context.Context, msg RatesUpdateMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("failed to publish rates update",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}
	i.logger.Debug("published rates update",
		zap.String("channel", i.channel),
		zap.Int("rates", len(msg.Rates)))
	return nil
}

// PublishTable announces table as the new rate table.
func (i *RedisInvalidator) PublishTable(ctx context.Context, table *taxes.RateTable) error {
	return i.Publish(ctx, NewRatesUpdateMessage(table))
}

// Subscribe listens for updates and calls callback for each one, in order.
// It blocks until ctx is done or Close is called.
func (i *RedisInvalidator) Subscribe(ctx context.Context, callback func(RatesUpdateMessage)) error {
	subCtx, cancel := context.WithCancel(ctx)
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		cancel()
		return ErrAlreadySubscribed
	}
	i.isRunning = true
	i.cancelFn = cancel
	i.doneCh = make(chan struct{})
	done := i.doneCh
	i.mu.Unlock()

	defer func() {
		cancel()
		i.mu.Lock()
		i.isRunning = false
		i.cancelFn = nil
		i.mu.Unlock()
		close(done)
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	i.logger.Info("subscribed to rates channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("rates subscription stopped")
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("rates channel closed")
				return nil
			}
			update, err := decodeMessage(msg.Payload)
			if err != nil {
				i.logger.Error("dropping undecodable rates update",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			i.dispatch(callback, update)
		}
	}
}

func decodeMessage(payload string) (RatesUpdateMessage, error) {
	var m RatesUpdateMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return RatesUpdateMessage{}, err
	}
	return m, nil
}

func (i *RedisInvalidator) dispatch(callback func(RatesUpdateMessage), m RatesUpdateMessage) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("panic in rates update callback", zap.Any("panic", r))
		}
	}()
	callback(m)
}

// Close stops a running subscription and closes the client if it was created here.
func (i *RedisInvalidator) Close() error {
	i.mu.Lock()
	cancelFn, done := i.cancelFn, i.doneCh
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-done:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("timeout waiting for rates subscription to stop")
		}
	}
	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}
