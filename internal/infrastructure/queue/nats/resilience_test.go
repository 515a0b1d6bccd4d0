package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/catman-audit/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		retry  bool
		record bool
	}{
		{"no servers", fmt.Errorf("nats publish: %w", nats.ErrNoServers), true, true},
		{"timeout", nats.ErrTimeout, true, true},
		{"canceled", context.Canceled, false, false},
		{"reconnecting", fmt.Errorf("nats publish: %w", nats.ErrConnectionReconnecting), true, true},
		{"bad subject", nats.ErrBadSubject, false, false},
		{"max payload", nats.ErrMaxPayload, false, false},
		{"unknown", errors.New("authorization violation"), false, true},
	}
	for _, tc := range cases {
		got := classifyNATSError(tc.err)
		if got.Retryable != tc.retry || got.RecordFailure != tc.record {
			t.Fatalf("%s: got %+v", tc.name, got)
		}
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded("publish report request", nats.ErrConnectionClosed); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	permanent := errors.New("permission denied")
	if err := wrapTemporaryIfNeeded("publish report request", permanent); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be temporary")
	}
	if wrapTemporaryIfNeeded("publish report request", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestPublishRejectsEmptyID(t *testing.T) {
	q := &Queue{subject: "reports.requested"}
	if err := q.PublishReportRequested(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
