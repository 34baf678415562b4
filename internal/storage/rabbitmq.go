package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/manasdutta04/matchwise/internal/config"
	"github.com/manasdutta04/matchwise/internal/logger"
)

// CVIngestedEvent announces that a CV passed dedupe and extraction and
// its profile is persisted.
type CVIngestedEvent struct {
	SourceID   string    `json:"source_id"`
	RawTextMD5 string    `json:"raw_text_md5"`
	ObjectPath string    `json:"object_path"`
	IngestedAt time.Time `json:"ingested_at"`
}

// MatchNeededEvent requests a match run for one job. The in-process
// consumer picks it up from the match-needed queue.
type MatchNeededEvent struct {
	JobID       string    `json:"job_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// MatchCompletedEvent announces that a job's candidate pool was re-scored.
type MatchCompletedEvent struct {
	JobID       string    `json:"job_id"`
	Candidates  int       `json:"candidates"`
	Shortlisted int       `json:"shortlisted"`
	CompletedAt time.Time `json:"completed_at"`
}

// RabbitMQ publishes screening pipeline events so downstream consumers
// (notification senders, analytics) can react without polling the
// database.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
	cfg     *config.RabbitMQConfig
}

func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rabbitmq config must not be nil")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq url must not be empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	mq := &RabbitMQ{conn: conn, channel: channel, cfg: cfg}
	if err := mq.ensureTopology(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Logger.Info().Str("exchange", cfg.ScreeningExchange).Msg("rabbitmq connected")
	return mq, nil
}

// ensureTopology declares the screening exchange and its queues. All
// declarations are idempotent on the broker side.
func (r *RabbitMQ) ensureTopology() error {
	if err := r.channel.ExchangeDeclare(r.cfg.ScreeningExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange %s: %w", r.cfg.ScreeningExchange, err)
	}
	bindings := []struct {
		queue string
		key   string
	}{
		{r.cfg.CVIngestedQueue, r.cfg.CVIngestedKey},
		{r.cfg.MatchNeededQueue, r.cfg.MatchNeededKey},
	}
	for _, b := range bindings {
		if b.queue == "" {
			continue
		}
		if _, err := r.channel.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declaring queue %s: %w", b.queue, err)
		}
		if err := r.channel.QueueBind(b.queue, b.key, r.cfg.ScreeningExchange, false, nil); err != nil {
			return fmt.Errorf("binding queue %s: %w", b.queue, err)
		}
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

func (r *RabbitMQ) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	timeout := time.Duration(r.cfg.PublishTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pubCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	err = r.channel.PublishWithContext(pubCtx, r.cfg.ScreeningExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", routingKey, err)
	}
	return nil
}

// PublishCVIngested emits the event for one accepted CV.
func (r *RabbitMQ) PublishCVIngested(ctx context.Context, event CVIngestedEvent) error {
	return r.publishJSON(ctx, r.cfg.CVIngestedKey, event)
}

// PublishMatchNeeded requests an asynchronous match run.
func (r *RabbitMQ) PublishMatchNeeded(ctx context.Context, event MatchNeededEvent) error {
	return r.publishJSON(ctx, r.cfg.MatchNeededKey, event)
}

// PublishMatchCompleted emits the summary of one finished match run.
func (r *RabbitMQ) PublishMatchCompleted(ctx context.Context, event MatchCompletedEvent) error {
	return r.publishJSON(ctx, r.cfg.MatchCompletedKey, event)
}

// MatchNeededQueue names the queue the match-needed consumer reads.
func (r *RabbitMQ) MatchNeededQueue() string {
	return r.cfg.MatchNeededQueue
}

// Consume delivers messages from a queue to handler. A handler error
// nacks the message back onto the queue; success acks it. Consume blocks
// until ctx is cancelled or the channel closes.
func (r *RabbitMQ) Consume(ctx context.Context, queue string, handler func(ctx context.Context, body []byte) error) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening consumer channel: %w", err)
	}
	defer ch.Close()

	prefetch := r.cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = 8
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("setting qos: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("starting consumer on %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("consumer channel for %s closed", queue)
			}
			if err := handler(ctx, d.Body); err != nil {
				logger.Logger.Warn().Err(err).Str("queue", queue).Msg("message handling failed, requeueing")
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
