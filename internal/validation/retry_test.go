package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/guardloop/internal/finding"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	inner := Func(func(context.Context, string, string) (finding.ValidationResult, error) {
		calls++
		if calls < 3 {
			return finding.ValidationResult{}, errors.New("throttled")
		}
		return finding.ValidationResult{Output: finding.OutputValid}, nil
	})

	v := WithRetry(inner, 3, time.Millisecond)
	result, err := v.Validate(context.Background(), "p", "r")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Output != finding.OutputValid {
		t.Errorf("Output = %s, want VALID", result.Output)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	calls := 0
	sentinel := errors.New("down")
	inner := Func(func(context.Context, string, string) (finding.ValidationResult, error) {
		calls++
		return finding.ValidationResult{}, sentinel
	})

	v := WithRetry(inner, 3, time.Millisecond)
	if _, err := v.Validate(context.Background(), "p", "r"); !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want wrapped sentinel", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_NoRetryOnSuccess(t *testing.T) {
	calls := 0
	inner := Func(func(context.Context, string, string) (finding.ValidationResult, error) {
		calls++
		return finding.ValidationResult{Output: finding.OutputValid}, nil
	})
	v := WithRetry(inner, 5, time.Minute)
	if _, err := v.Validate(context.Background(), "p", "r"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetry_ContextCancellation(t *testing.T) {
	inner := Func(func(context.Context, string, string) (finding.ValidationResult, error) {
		return finding.ValidationResult{}, errors.New("down")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := WithRetry(inner, 3, time.Hour)
	if _, err := v.Validate(ctx, "p", "r"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
