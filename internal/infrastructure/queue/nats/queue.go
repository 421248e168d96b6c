package nats

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/resume-fraud-screener/internal/infrastructure/resilience"
)

const workerQueueGroup = "fraud-workers"

// ResumeUploadedEvent is the message body published on the upload subject.
type ResumeUploadedEvent struct {
	ResumeID    string    `json:"resume_id"`
	PublishedAt time.Time `json:"published_at"`
}

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	onLag    func(time.Duration)
	now      func() time.Time
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	// FailFast makes the first connect fail instead of retrying in the background.
	FailFast           bool
	ResilienceExecutor *resilience.Executor
	// LagObserver receives the delay between publish and delivery of each event.
	LagObserver func(time.Duration)
}

func (o Options) natsOptions() []nats.Option {
	connectTimeout := cmp.Or(max(o.ConnectTimeout, 0), 2*time.Second)
	reconnectWait := cmp.Or(max(o.ReconnectWait, 0), 2*time.Second)
	maxReconnects := cmp.Or(max(o.MaxReconnects, 0), 60)

	return []nats.Option{
		nats.Name("resume-fraud-screener"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(!o.FailFast),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("nats_async_error", "subject", subject, "error", err)
		}),
	}
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	conn, err := nats.Connect(url, options.natsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		onLag:    options.LagObserver,
		now:      time.Now,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishResumeUploaded(ctx context.Context, resumeID string) error {
	payload, err := encodeEvent(ResumeUploadedEvent{ResumeID: resumeID, PublishedAt: q.now().UTC()})
	if err != nil {
		return err
	}

	msg := &nats.Msg{Subject: q.subject, Data: payload, Header: nats.Header{}}
	msg.Header.Set("Content-Type", "application/json")
	call := func(_ context.Context) error {
		if err := q.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if err := q.executor.Do(ctx, "nats.publish", call, classifyNATSError); err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

func (q *Queue) SubscribeResumeUploaded(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		q.deliver(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// deliver decodes one message and runs the handler. Handler errors are logged;
// core NATS has no redelivery so the resume stays in its failed state.
func (q *Queue) deliver(ctx context.Context, data []byte, handler func(context.Context, string) error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}

	event, err := decodeEvent(data)
	if err != nil {
		slog.Error("queue_message_invalid", "subject", q.subject, "error", err)
		return
	}
	if q.onLag != nil && !event.PublishedAt.IsZero() {
		q.onLag(q.now().Sub(event.PublishedAt))
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := handler(handlerCtx, event.ResumeID); err != nil {
		slog.Error("worker_handler_failed", "resume_id", event.ResumeID, "error", err)
	}
}

func encodeEvent(event ResumeUploadedEvent) ([]byte, error) {
	if strings.TrimSpace(event.ResumeID) == "" {
		return nil, errors.New("encode upload event: resume id is empty")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode upload event: %w", err)
	}
	return payload, nil
}

// decodeEvent also accepts a bare resume id so events published by older
// producers keep working.
func decodeEvent(data []byte) (ResumeUploadedEvent, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return ResumeUploadedEvent{}, errors.New("empty message")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return ResumeUploadedEvent{ResumeID: trimmed}, nil
	}

	var event ResumeUploadedEvent
	if err := json.Unmarshal([]byte(trimmed), &event); err != nil {
		return ResumeUploadedEvent{}, fmt.Errorf("decode upload event: %w", err)
	}
	if strings.TrimSpace(event.ResumeID) == "" {
		return ResumeUploadedEvent{}, errors.New("decode upload event: resume_id is empty")
	}
	return event, nil
}
