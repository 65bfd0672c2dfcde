package ai

import (
	"context"
	"testing"
)

func TestStubAnswersEveryModality(t *testing.T) {
	s := NewStub()
	ctx := context.Background()

	for name, call := range map[string]func() (string, error){
		"text":       func() (string, error) { return s.AnalyzeText(ctx, "вопрос", "") },
		"audio":      func() (string, error) { return s.AnalyzeAudio(ctx, []byte{1}, "audio/wav", "") },
		"multimodal": func() (string, error) { return s.AnalyzeMultimodal(ctx, "вопрос", nil, nil, "") },
	} {
		out, err := call()
		if err != nil {
			t.Fatalf("%s: stub must never fail: %v", name, err)
		}
		if out != s.Response {
			t.Fatalf("%s: stub must return its fixed response, got %q", name, out)
		}
	}
	if err := s.SelfTest(ctx); err != nil {
		t.Fatalf("stub self-test must pass: %v", err)
	}
}
