package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyByMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"status 429", errors.New("request failed with status 429"), KindQuotaExceeded},
		{"quota word", errors.New("You exceeded your current quota"), KindQuotaExceeded},
		{"rate limit", errors.New("Rate limit reached for gpt-4o"), KindQuotaExceeded},
		{"status 401", errors.New("request failed with status 401"), KindAuthError},
		{"api key", errors.New("Incorrect API key provided"), KindAuthError},
		{"invalid_api_key code", errors.New("error code: invalid_api_key"), KindAuthError},
		{"bad image", errors.New("Invalid image data"), KindMediaError},
		{"bad base64", errors.New("invalid base64 in input audio"), KindMediaError},
		{"unknown", errors.New("connection reset by peer"), KindTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := Classify(tc.err)
			if f.Kind != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.err, f.Kind, tc.want)
			}
			if f.Message == "" {
				t.Fatalf("message must carry the provider text")
			}
		})
	}
}

func TestClassifyDeadline(t *testing.T) {
	err := fmt.Errorf("responses api: %w", context.DeadlineExceeded)
	f := Classify(err)
	if f.Kind != KindTransient {
		t.Fatalf("deadline must classify as transient, got %s", f.Kind)
	}
}

func TestClassifyKeepsExistingFailure(t *testing.T) {
	orig := &Failure{Kind: KindAuthError, Message: "нет ключа"}
	wrapped := fmt.Errorf("analyze image: %w", orig)
	if f := Classify(wrapped); f != orig {
		t.Fatalf("expected the original *Failure back, got %#v", f)
	}
}

func TestHintPerKind(t *testing.T) {
	hints := map[Kind]bool{}
	for _, k := range []Kind{KindQuotaExceeded, KindAuthError, KindMediaError, KindTransient} {
		f := &Failure{Kind: k, Message: "x"}
		if f.Hint() == "" {
			t.Fatalf("empty hint for %s", k)
		}
		hints[k] = true
	}
	if len(hints) != 4 {
		t.Fatalf("expected all four kinds exercised")
	}
}
