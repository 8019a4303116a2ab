package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/DocRev-Intelligence/internal/application/events"
	"github.com/turtacn/DocRev-Intelligence/internal/config"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
	ErrConsumerClosed = errors.New(errors.ErrCodeMessageConsume, "consumer closed")
)

// RetryConfig controls redelivery of failed messages.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

// ConsumerConfig configures a consumer group member.
type ConsumerConfig struct {
	Brokers           []string
	GroupID           string
	ClientID          string
	TopicPrefix       string
	AutoOffsetReset   string // earliest, latest
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	MaxWait           time.Duration
	FetchMinBytes     int
	FetchMaxBytes     int
	Security          SecurityConfig
	Retry             RetryConfig
}

// ConsumerConfigFrom maps the application Kafka section.
func ConsumerConfigFrom(k config.KafkaConfig) ConsumerConfig {
	dlq := k.DeadLetterTopic
	if dlq == "" {
		dlq = TopicName(k.TopicPrefix, events.TopicDeadLetter)
	}
	return ConsumerConfig{
		Brokers:         k.Brokers,
		GroupID:         k.GroupID,
		ClientID:        k.ClientID,
		TopicPrefix:     k.TopicPrefix,
		AutoOffsetReset: k.AutoOffsetReset,
		Retry: RetryConfig{
			MaxRetries:      k.MaxRetries,
			RetryBackoff:    k.RetryBackoff,
			DeadLetterTopic: dlq,
		},
	}
}

// ConsumerMetrics counts consumer outcomes.
type ConsumerMetrics struct {
	MessagesConsumed     atomic.Int64
	MessagesProcessed    atomic.Int64
	MessagesFailed       atomic.Int64
	MessagesRetried      atomic.Int64
	MessagesDeadLettered atomic.Int64
	Lag                  atomic.Int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// deadLetterSender is the part of Producer the consumer needs.
type deadLetterSender interface {
	Send(ctx context.Context, msg *OutboundMessage) error
	Close() error
}

// Consumer dispatches messages to per-topic handlers and commits each offset
// once its message is handled or dead-lettered.
type Consumer struct {
	reader ReaderInterface
	config ConsumerConfig
	logger logging.Logger

	handlers map[string]Handler
	mu       sync.RWMutex

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	deadLetter deadLetterSender
	metrics    *ConsumerMetrics
}

// NewConsumer builds a group reader over the prefixed topics and a producer
// for the dead-letter topic.
func NewConsumer(cfg ConsumerConfig, topics []string, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "at least one topic required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 3 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 500 * time.Millisecond
	}
	if cfg.FetchMinBytes == 0 {
		cfg.FetchMinBytes = 1
	}
	if cfg.FetchMaxBytes == 0 {
		cfg.FetchMaxBytes = 10 << 20
	}

	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	mech, err := cfg.Security.mechanism()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to create SASL mechanism")
	}

	groupTopics := make([]string, len(topics))
	for i, t := range topics {
		groupTopics[i] = TopicName(cfg.TopicPrefix, t)
	}
	readerCfg := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       groupTopics,
		MinBytes:          cfg.FetchMinBytes,
		MaxBytes:          cfg.FetchMaxBytes,
		MaxWait:           cfg.MaxWait,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StartOffset:       kafka.FirstOffset,
		Dialer: &kafka.Dialer{
			ClientID:      cfg.ClientID,
			Timeout:       10 * time.Second,
			DualStack:     true,
			TLS:           tlsCfg,
			SASLMechanism: mech,
		},
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	var dlq deadLetterSender
	if cfg.Retry.DeadLetterTopic != "" {
		p, err := NewProducer(ProducerConfig{
			Brokers:  cfg.Brokers,
			ClientID: cfg.ClientID,
			Acks:     "all",
			Security: cfg.Security,
		}, logger)
		if err != nil {
			return nil, err
		}
		dlq = p
	}
	return newConsumer(kafka.NewReader(readerCfg), dlq, cfg, logger), nil
}

func newConsumer(r ReaderInterface, dlq deadLetterSender, cfg ConsumerConfig, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consumer{
		reader:     r,
		config:     cfg,
		logger:     logger,
		handlers:   make(map[string]Handler),
		deadLetter: dlq,
		metrics:    &ConsumerMetrics{},
	}
}

// Subscribe routes messages of an event topic to handler.
func (c *Consumer) Subscribe(topic string, handler Handler) {
	name := TopicName(c.config.TopicPrefix, topic)
	c.mu.Lock()
	c.handlers[name] = handler
	c.mu.Unlock()
	c.logger.Info("subscribed to topic", logging.String("topic", name))
}

// Start launches the fetch loop.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)
	c.logger.Info("kafka consumer started", logging.String("group", c.config.GroupID))
	return nil
}

// Run consumes until ctx is done, then closes the consumer.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return c.Close()
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.metrics.MessagesConsumed.Add(1)
		if m.HighWaterMark > 0 {
			c.metrics.Lag.Store(m.HighWaterMark - m.Offset - 1)
		}

		msg := &Message{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Key:       m.Key,
			Value:     m.Value,
			Timestamp: m.Time,
			Headers:   make(map[string]string, len(m.Headers)),
		}
		for _, h := range m.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}

		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()

		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
		} else if err := c.processMessage(ctx, msg, handler); err != nil {
			// Cancelled mid-retry: leave the offset uncommitted for redelivery.
			return
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit failed",
				logging.String("topic", m.Topic),
				logging.Int64("offset", m.Offset),
				logging.Err(err))
		}
	}
}

// processMessage runs handler with exponential backoff.  A message that still
// fails, or is invalid, goes to the dead-letter topic.  The only error it
// returns is context cancellation.
func (c *Consumer) processMessage(ctx context.Context, msg *Message, handler Handler) error {
	err := handler(ctx, msg)
	if err == nil {
		c.metrics.MessagesProcessed.Add(1)
		return nil
	}

	maxRetries := c.config.Retry.MaxRetries
	backoff := c.config.Retry.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBackoff := c.config.Retry.MaxRetryBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	for i := 0; i < maxRetries && !errors.IsCode(err, errors.ErrCodeMessageInvalid); i++ {
		c.metrics.MessagesRetried.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if err = handler(ctx, msg); err == nil {
			c.metrics.MessagesProcessed.Add(1)
			return nil
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	c.metrics.MessagesFailed.Add(1)
	c.logger.Error("message processing failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))
	c.sendDeadLetter(ctx, msg, err)
	return nil
}

func (c *Consumer) sendDeadLetter(ctx context.Context, msg *Message, cause error) {
	if c.deadLetter == nil || c.config.Retry.DeadLetterTopic == "" {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["original_topic"] = msg.Topic
	headers["error_message"] = cause.Error()

	err := c.deadLetter.Send(ctx, &OutboundMessage{
		Topic:   c.config.Retry.DeadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		c.logger.Error("dead-letter publish failed", logging.Err(err))
		return
	}
	c.metrics.MessagesDeadLettered.Add(1)
}

// Processed reports handled messages.
func (c *Consumer) Processed() int64 { return c.metrics.MessagesProcessed.Load() }

// DeadLettered reports messages sent to the dead-letter topic.
func (c *Consumer) DeadLettered() int64 { return c.metrics.MessagesDeadLettered.Load() }

// Close stops the loop and releases the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	if c.deadLetter != nil {
		_ = c.deadLetter.Close()
	}
	c.logger.Info("kafka consumer closed",
		logging.Int64("consumed", c.metrics.MessagesConsumed.Load()),
		logging.Int64("dead_lettered", c.metrics.MessagesDeadLettered.Load()))
	return err
}

// ValidateConsumerConfig checks the required settings.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "group id required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "invalid auto offset reset").WithDetail(cfg.AutoOffsetReset)
	}
	if cfg.Security.SASLEnabled && (cfg.Security.SASLUsername == "" || cfg.Security.SASLPassword == "") {
		return errors.New(errors.ErrCodeValidation, "SASL credentials required")
	}
	if cfg.Retry.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
