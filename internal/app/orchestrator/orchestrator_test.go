package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"OverlayAssistant/internal/ai"
	"OverlayAssistant/internal/config"
	"OverlayAssistant/internal/service/capture"
	imgsvc "OverlayAssistant/internal/service/image"
	"OverlayAssistant/internal/service/record"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

// --- фейки ---

type countingGuard struct {
	mu       sync.Mutex
	hides    int
	restores int
}

func (g *countingGuard) Hide() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hides++
}

func (g *countingGuard) Restore() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restores++
}

type fakeBackend struct {
	bounds image.Rectangle
	fail   bool
}

func (b *fakeBackend) NumActiveDisplays() int                { return 1 }
func (b *fakeBackend) GetDisplayBounds(int) image.Rectangle  { return b.bounds }
func (b *fakeBackend) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	if b.fail {
		return nil, errors.New("display lost")
	}
	return image.NewRGBA(r), nil
}

// fakeGateway запоминает последний полученный кадр и аудио.
type fakeGateway struct {
	answer    string
	err       error
	lastFrame imgsvc.Frame
	lastAudio []byte
	lastMime  string

	lastText    string
	lastMMFrame *imgsvc.Frame
	lastMMAudio []byte
}

func (g *fakeGateway) AnalyzeText(_ context.Context, _ string, _ string) (string, error) {
	return g.answer, g.err
}

func (g *fakeGateway) AnalyzeImage(_ context.Context, frame imgsvc.Frame, _ string) (string, error) {
	g.lastFrame = frame
	return g.answer, g.err
}

func (g *fakeGateway) AnalyzeAudio(_ context.Context, data []byte, mime string, _ string) (string, error) {
	g.lastAudio = data
	g.lastMime = mime
	return g.answer, g.err
}

func (g *fakeGateway) AnalyzeMultimodal(_ context.Context, text string, frame *imgsvc.Frame, data []byte, _ string) (string, error) {
	g.lastText = text
	g.lastMMFrame = frame
	g.lastMMAudio = data
	return g.answer, g.err
}

func (g *fakeGateway) SelfTest(context.Context) error { return g.err }

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *fakeNotifier) Done(_ context.Context, _ string, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, body)
}

type fakeTranscriber struct{ text string }

func (t *fakeTranscriber) Transcribe(context.Context, string) string { return t.text }

// wavRunner пишет валидный WAV, чтобы сессия записи прошла проверку.
type wavRunner struct{}

type noopProc struct{}

func (noopProc) Stop(context.Context) error { return nil }

func (wavRunner) Start(_ context.Context, _ string, _ int, outPath string) (record.Process, error) {
	f, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           make([]int, 8192),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, err
	}
	return noopProc{}, enc.Close()
}

func testOrchestrator(t *testing.T, backend capture.Backend, gw ai.Gateway) (*Orchestrator, *countingGuard, *fakeNotifier) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	cfg := config.Defaults()
	cfg.ClipboardAnswers = false
	cfg.ToggleDebounce = 50 * time.Millisecond
	cfg.StopSettle = time.Millisecond

	norm := imgsvc.NewNormalizer(80, cfg.AIMaxDim, logger)
	capSvc := capture.NewWithBackend(norm, 0, cfg.MaxWidth, cfg.MaxHeight, logger, backend)
	rec := record.NewSession(wavRunner{}, cfg.AudioDevice, cfg.AudioSampleRate, t.TempDir(), cfg.StopSettle, logger)

	guard := &countingGuard{}
	notif := &fakeNotifier{}
	o := New(cfg, guard, capSvc, norm, gw, rec, &fakeTranscriber{text: "текст записи"}, notif, logger)
	return o, guard, notif
}

// --- сценарии ---

func TestAnalyzeScreenSendsNormalizedFrame(t *testing.T) {
	backend := &fakeBackend{bounds: image.Rect(0, 0, 3840, 2160)}
	gw := &fakeGateway{answer: "на экране редактор кода"}
	o, guard, notif := testOrchestrator(t, backend, gw)

	answer, err := o.AnalyzeScreen(context.Background(), "")
	if err != nil {
		t.Fatalf("AnalyzeScreen failed: %v", err)
	}
	if answer != gw.answer {
		t.Fatalf("unexpected answer: %q", answer)
	}

	// 4K-кадр обязан прийти к провайдеру ужатым до рабочего лимита
	img, err := jpeg.Decode(bytes.NewReader(gw.lastFrame.Data))
	if err != nil {
		t.Fatalf("gateway received non-jpeg frame: %v", err)
	}
	b := img.Bounds()
	if b.Dx() > 1920 || b.Dy() > 1080 {
		t.Fatalf("frame sent to provider is %dx%d, exceeds 1920x1080", b.Dx(), b.Dy())
	}

	if guard.hides != 1 || guard.restores != 1 {
		t.Fatalf("guard hide/restore = %d/%d, want 1/1", guard.hides, guard.restores)
	}
	if len(notif.calls) != 1 {
		t.Fatalf("expected one notification, got %d", len(notif.calls))
	}
}

func TestAnalyzeScreenRestoresOnCaptureFailure(t *testing.T) {
	backend := &fakeBackend{bounds: image.Rect(0, 0, 1920, 1080), fail: true}
	o, guard, _ := testOrchestrator(t, backend, &fakeGateway{})

	if _, err := o.AnalyzeScreen(context.Background(), ""); err == nil {
		t.Fatalf("expected capture error")
	}
	if guard.restores != 1 {
		t.Fatalf("overlay must be restored after a failed capture, restores=%d", guard.restores)
	}
}

func TestAnalyzeRegionRestoresOnInvalidRegion(t *testing.T) {
	backend := &fakeBackend{bounds: image.Rect(0, 0, 1920, 1080)}
	o, guard, _ := testOrchestrator(t, backend, &fakeGateway{})

	_, err := o.AnalyzeRegion(context.Background(), image.Rect(5000, 5000, 6000, 6000), "")
	if !errors.Is(err, capture.ErrInvalidRegion) {
		t.Fatalf("expected ErrInvalidRegion, got %v", err)
	}
	if guard.restores != 1 {
		t.Fatalf("overlay must be restored, restores=%d", guard.restores)
	}
}

func TestAskWithScreenAttachesFrameOnly(t *testing.T) {
	backend := &fakeBackend{bounds: image.Rect(0, 0, 3840, 2160)}
	gw := &fakeGateway{answer: "на экране таблица"}
	o, guard, _ := testOrchestrator(t, backend, gw)

	answer, err := o.AskWithScreen(context.Background(), "что это за таблица?")
	if err != nil {
		t.Fatalf("AskWithScreen failed: %v", err)
	}
	if answer != gw.answer {
		t.Fatalf("unexpected answer: %q", answer)
	}
	if gw.lastText != "что это за таблица?" {
		t.Fatalf("question must pass through verbatim, got %q", gw.lastText)
	}
	if gw.lastMMFrame == nil {
		t.Fatalf("screen frame must be attached to the question")
	}
	if len(gw.lastMMAudio) != 0 {
		t.Fatalf("no audio was recorded, none must be attached")
	}

	img, err := jpeg.Decode(bytes.NewReader(gw.lastMMFrame.Data))
	if err != nil {
		t.Fatalf("attached frame must be a jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() > 2048 || b.Dy() > 2048 {
		t.Fatalf("attached frame is %dx%d, exceeds the provider cap", b.Dx(), b.Dy())
	}
	if guard.hides != 1 || guard.restores != 1 {
		t.Fatalf("guard hide/restore = %d/%d, want 1/1", guard.hides, guard.restores)
	}
}

func TestCaptureAllHidesOverlay(t *testing.T) {
	backend := &fakeBackend{bounds: image.Rect(0, 0, 1920, 1080)}
	o, guard, _ := testOrchestrator(t, backend, &fakeGateway{})

	frames, err := o.CaptureAll(context.Background())
	if err != nil {
		t.Fatalf("CaptureAll failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame per display, got %d", len(frames))
	}
	if guard.hides != 1 || guard.restores != 1 {
		t.Fatalf("guard hide/restore = %d/%d, want 1/1", guard.hides, guard.restores)
	}
}

func TestStopAndAnalyzeSendsWavBytes(t *testing.T) {
	gw := &fakeGateway{answer: "в аудио играет музыка"}
	o, _, _ := testOrchestrator(t, &fakeBackend{bounds: image.Rect(0, 0, 100, 100)}, gw)

	h, err := o.StartRecording(context.Background())
	if err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	answer, err := o.StopAndAnalyze(context.Background(), "")
	if err != nil {
		t.Fatalf("StopAndAnalyze failed: %v", err)
	}
	if answer != gw.answer {
		t.Fatalf("unexpected answer: %q", answer)
	}
	if gw.lastMime != "audio/wav" || len(gw.lastAudio) == 0 {
		t.Fatalf("gateway must receive wav bytes, mime=%q len=%d", gw.lastMime, len(gw.lastAudio))
	}
	// Временный файл подчищен
	if _, err := os.Stat(h.OutputPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("recording file must be removed after analysis")
	}
}

func TestToggleRecordingDebounce(t *testing.T) {
	o, _, _ := testOrchestrator(t, &fakeBackend{bounds: image.Rect(0, 0, 100, 100)}, &fakeGateway{answer: "ok"})

	if _, err := o.ToggleRecording(context.Background()); err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if st := o.rec.State(); st != record.StateRecording {
		t.Fatalf("first toggle must start recording, state=%s", st)
	}

	// Мгновенный повтор попадает в зазор и ничего не меняет
	if _, err := o.ToggleRecording(context.Background()); err != nil {
		t.Fatalf("debounced toggle must be a no-op, got %v", err)
	}
	if st := o.rec.State(); st != record.StateRecording {
		t.Fatalf("debounced toggle must keep recording, state=%s", st)
	}

	time.Sleep(60 * time.Millisecond)
	answer, err := o.ToggleRecording(context.Background())
	if err != nil {
		t.Fatalf("stop toggle failed: %v", err)
	}
	if answer == "" {
		t.Fatalf("stop toggle must return the analysis answer")
	}
	if st := o.rec.State(); st != record.StateIdle {
		t.Fatalf("after stop and cleanup state must be idle, got %s", st)
	}
}

func TestUserMessageMapsFailures(t *testing.T) {
	msg := UserMessage(&ai.Failure{Kind: ai.KindQuotaExceeded, Message: "429 too many requests"})
	if !strings.Contains(msg, "квота") {
		t.Fatalf("quota failure must carry the quota hint, got %q", msg)
	}
	if got := UserMessage(record.ErrNotRecording); !strings.Contains(got, "Запись не идёт") {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != "boom" {
		t.Fatalf("unknown errors pass through, got %q", got)
	}
}
