package ai

import (
	"strings"
	"testing"
	"time"

	imgsvc "OverlayAssistant/internal/service/image"

	"go.uber.org/zap"
)

func newTestGateway() *OpenAIGateway {
	return &OpenAIGateway{
		model:      "gpt-4o",
		audioModel: "gpt-4o-audio-preview",
		timeout:    time.Minute,
		logger:     zap.NewNop().Sugar(),
	}
}

func TestMultimodalPartsTextOnly(t *testing.T) {
	g := newTestGateway()
	parts, model := g.multimodalParts("что на экране?", nil, nil, "")
	if len(parts) != 1 {
		t.Fatalf("absent modalities must not produce parts, got %d", len(parts))
	}
	if parts[0].OfText == nil {
		t.Fatalf("first part must be the text")
	}
	if model != g.model {
		t.Fatalf("text-only request must use the base model, got %s", model)
	}
}

func TestMultimodalPartsWithFrame(t *testing.T) {
	g := newTestGateway()
	frame := imgsvc.Frame{Data: []byte{0xFF, 0xD8, 0xFF}, Mime: "image/jpeg"}
	parts, model := g.multimodalParts("опиши", &frame, nil, "")
	if len(parts) != 2 {
		t.Fatalf("expected text+image, got %d parts", len(parts))
	}
	if parts[1].OfImageURL == nil {
		t.Fatalf("second part must be the image")
	}
	if !strings.HasPrefix(parts[1].OfImageURL.ImageURL.URL, "data:image/jpeg;base64,") {
		t.Fatalf("image must travel as a base64 data url, got %q", parts[1].OfImageURL.ImageURL.URL)
	}
	if model != g.model {
		t.Fatalf("image does not switch the model, got %s", model)
	}
}

func TestMultimodalPartsWithAudio(t *testing.T) {
	g := newTestGateway()
	parts, model := g.multimodalParts("что звучит?", nil, []byte{1, 2, 3}, "audio/wav")
	if len(parts) != 2 {
		t.Fatalf("expected text+audio, got %d parts", len(parts))
	}
	if parts[1].OfInputAudio == nil {
		t.Fatalf("second part must be the audio")
	}
	if parts[1].OfInputAudio.InputAudio.Format != "wav" {
		t.Fatalf("wav mime must map to wav format, got %q", parts[1].OfInputAudio.InputAudio.Format)
	}
	if model != g.audioModel {
		t.Fatalf("audio must switch to the audio model, got %s", model)
	}
}

func TestMultimodalPartsAllModalities(t *testing.T) {
	g := newTestGateway()
	frame := imgsvc.Frame{Data: []byte{0xFF, 0xD8, 0xFF}, Mime: "image/jpeg"}
	parts, model := g.multimodalParts("сопоставь экран и звук", &frame, []byte{1}, "audio/mpeg")
	if len(parts) != 3 {
		t.Fatalf("expected text+image+audio, got %d parts", len(parts))
	}
	if parts[0].OfText == nil || parts[1].OfImageURL == nil || parts[2].OfInputAudio == nil {
		t.Fatalf("parts must follow text, image, audio order")
	}
	if parts[2].OfInputAudio.InputAudio.Format != "mp3" {
		t.Fatalf("mpeg mime must map to mp3 format")
	}
	if model != g.audioModel {
		t.Fatalf("audio present, must use the audio model")
	}
}
