package bootstrap

import (
	"testing"
	"time"

	"github.com/kirillkom/catman-audit/internal/config"
)

func TestResilienceConfigSetsDependencyPolicies(t *testing.T) {
	cfg := config.Config{
		ResilienceRetryMaxAttempts:    3,
		ResilienceRetryInitialBackoff: 100 * time.Millisecond,
		ResilienceRetryMaxBackoff:     400 * time.Millisecond,
		ResilienceBreakerEnabled:      true,
		SMTPRetryMaxAttempts:          4,
		SMTPRetryInitialBackoff:       time.Second,
		CloudinaryRetryMaxAttempts:    2,
	}

	out := resilienceConfig(cfg)
	if out.RetryMaxAttempts != 3 || !out.BreakerEnabled {
		t.Fatalf("unexpected defaults %+v", out)
	}
	smtp := out.Dependencies["smtp"]
	if smtp.MaxAttempts != 4 || smtp.InitialBackoff != time.Second || smtp.MaxBackoff != 4*time.Second {
		t.Fatalf("unexpected smtp policy %+v", smtp)
	}
	if got := out.Dependencies["cloudinary"].MaxAttempts; got != 2 {
		t.Fatalf("expected 2 cloudinary attempts, got %d", got)
	}
	if _, ok := out.Dependencies["postgres"]; ok {
		t.Fatalf("postgres must use the default policy")
	}
}
