package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/catman-audit/internal/infrastructure/resilience"
)

const defaultDrainTimeout = 30 * time.Second

type Queue struct {
	conn         *nats.Conn
	subject      string
	executor     *resilience.Executor
	drainTimeout time.Duration
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	ClientName           string
	// DrainTimeout bounds how long shutdown waits for buffered report
	// requests to be handled.
	DrainTimeout time.Duration
}

func (o Options) clientName() string {
	if o.ClientName == "" {
		return "catman-audit"
	}
	return o.ClientName
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name(options.clientName()),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	drainTimeout := options.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = defaultDrainTimeout
	}
	return &Queue{
		conn:         conn,
		subject:      subject,
		executor:     options.ResilienceExecutor,
		drainTimeout: drainTimeout,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// PublishReportRequested asks a worker to render and mail the report of an
// audit. The payload is the bare audit id.
func (q *Queue) PublishReportRequested(ctx context.Context, auditID string) error {
	if auditID == "" {
		return fmt.Errorf("nats publish: empty audit id")
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(auditID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded("publish report request", err)
	}
	return nil
}

// SubscribeReportRequested consumes requests in the "workers" queue group
// until ctx is done. It then drains: requests already delivered to this
// worker are still handled, with a context that outlives ctx, and the call
// returns once they finish or the drain timeout expires.
func (q *Queue) SubscribeReportRequested(ctx context.Context, handler func(context.Context, string) error) error {
	handlerBase := context.WithoutCancel(ctx)
	var inFlight sync.WaitGroup

	sub, err := q.conn.QueueSubscribe(q.subject, "workers", func(msg *nats.Msg) {
		inFlight.Add(1)
		defer inFlight.Done()

		auditID := string(msg.Data)
		if err := handler(handlerBase, auditID); err != nil {
			slog.Error("report_request_failed", "audit_id", auditID, "error", err)
		}
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
	if err := waitDrained(sub, &inFlight, q.drainTimeout); err != nil {
		return err
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// waitDrained blocks until a draining subscription has delivered its
// buffered messages and every running handler has returned.
func waitDrained(sub *nats.Subscription, inFlight *sync.WaitGroup, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for sub.IsValid() {
		if time.Now().After(deadline) {
			return fmt.Errorf("nats drain: timed out after %s", timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(time.Until(deadline)):
		return fmt.Errorf("nats drain: handlers still running after %s", timeout)
	}
}
