package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"OverlayAssistant/internal/ai"
	"OverlayAssistant/internal/config"
	"OverlayAssistant/internal/service/capture"
	imgsvc "OverlayAssistant/internal/service/image"
	"OverlayAssistant/internal/service/overlay"
	"OverlayAssistant/internal/service/record"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// Transcriber вторичный путь к тексту записи; ошибок не возвращает.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) string
}

// Notifier обратная связь пользователю о готовом результате.
type Notifier interface {
	Done(ctx context.Context, title string, body string)
}

// Orchestrator связывает захват, запись, нормализацию и AI-шлюз в сценарии,
// которые дергает слой хоткеев/UI. Владеет единственной сессией записи и
// гардом видимости оверлея; действия пользователя сериализуются здесь же.
type Orchestrator struct {
	cfg    *config.Config
	guard  overlay.Guard
	cap    *capture.Service
	norm   *imgsvc.Normalizer
	gw     ai.Gateway
	rec    *record.Session
	stt    Transcriber
	notif  Notifier
	logger *zap.SugaredLogger

	mu         sync.Mutex
	lastToggle time.Time
}

func New(
	cfg *config.Config,
	guard overlay.Guard,
	capSvc *capture.Service,
	norm *imgsvc.Normalizer,
	gw ai.Gateway,
	rec *record.Session,
	stt Transcriber,
	notif Notifier,
	logger *zap.SugaredLogger,
) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		guard:  guard,
		cap:    capSvc,
		norm:   norm,
		gw:     gw,
		rec:    rec,
		stt:    stt,
		notif:  notif,
		logger: logger,
	}
}

// AnalyzeScreen прячет оверлей, снимает полный экран, оптимизирует кадр и
// отправляет его на анализ. Видимость восстанавливается на любом исходе.
func (o *Orchestrator) AnalyzeScreen(ctx context.Context, prompt string) (string, error) {
	var frame imgsvc.Frame
	err := overlay.WithHidden(o.guard, func() error {
		f, cerr := o.cap.FullScreen(ctx)
		if cerr != nil {
			return cerr
		}
		frame = f
		return nil
	})
	if err != nil {
		return "", err
	}
	return o.analyzeFrame(ctx, frame, prompt)
}

// AnalyzeRegion то же, но для прямоугольника экрана.
func (o *Orchestrator) AnalyzeRegion(ctx context.Context, rect image.Rectangle, prompt string) (string, error) {
	var frame imgsvc.Frame
	err := overlay.WithHidden(o.guard, func() error {
		f, cerr := o.cap.Region(ctx, rect)
		if cerr != nil {
			return cerr
		}
		frame = f
		return nil
	})
	if err != nil {
		return "", err
	}
	return o.analyzeFrame(ctx, frame, prompt)
}

// CaptureAll снимает все дисплеи (частичный результат допустим).
func (o *Orchestrator) CaptureAll(ctx context.Context) ([]imgsvc.Frame, error) {
	var frames []imgsvc.Frame
	err := overlay.WithHidden(o.guard, func() error {
		fs, cerr := o.cap.AllDisplays(ctx)
		if cerr != nil {
			return cerr
		}
		frames = fs
		return nil
	})
	return frames, err
}

// ListDisplays снимок списка дисплеев для UI.
func (o *Orchestrator) ListDisplays() []capture.DisplayInfo { return o.cap.ListDisplays() }

// AskText текстовый запрос с фиксированным контекстом ассистента.
func (o *Orchestrator) AskText(ctx context.Context, text string) (string, error) {
	answer, err := o.gw.AnalyzeText(ctx, text, o.cfg.AssistantContext)
	if err != nil {
		return "", err
	}
	o.deliver(ctx, answer)
	return answer, nil
}

// AskWithScreen задаёт текстовый вопрос вместе со свежим снимком экрана:
// кадр уходит второй модальностью к тому же запросу. Аудио здесь нет и не
// подкладывается.
func (o *Orchestrator) AskWithScreen(ctx context.Context, text string) (string, error) {
	var frame imgsvc.Frame
	err := overlay.WithHidden(o.guard, func() error {
		f, cerr := o.cap.FullScreen(ctx)
		if cerr != nil {
			return cerr
		}
		frame = f
		return nil
	})
	if err != nil {
		return "", err
	}

	frame = o.norm.OptimizeForAI(frame)
	answer, err := o.gw.AnalyzeMultimodal(ctx, text, &frame, nil, "")
	if err != nil {
		return "", err
	}
	o.deliver(ctx, answer)
	return answer, nil
}

// StartRecording запускает запись системного звука.
func (o *Orchestrator) StartRecording(ctx context.Context) (record.Handle, error) {
	return o.rec.Start(ctx)
}

// StopAndAnalyze останавливает запись и отправляет аудио на анализ.
// Файл записи удаляется после использования (best-effort).
func (o *Orchestrator) StopAndAnalyze(ctx context.Context, prompt string) (string, error) {
	path, err := o.rec.Stop(ctx)
	if err != nil {
		return "", err
	}
	defer o.rec.Cleanup(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read recording: %w", err)
	}
	answer, err := o.gw.AnalyzeAudio(ctx, data, "audio/wav", prompt)
	if err != nil {
		return "", err
	}
	o.deliver(ctx, answer)
	return answer, nil
}

// StopAndTranscribe останавливает запись и прогоняет её через внешний
// транскрибатор; при его сбое вернётся фиксированная строка-заглушка.
func (o *Orchestrator) StopAndTranscribe(ctx context.Context) (string, error) {
	path, err := o.rec.Stop(ctx)
	if err != nil {
		return "", err
	}
	defer o.rec.Cleanup(path)

	text := o.stt.Transcribe(ctx, path)
	o.deliver(ctx, text)
	return text, nil
}

// ToggleRecording переключает запись по хоткею. Быстрые повторные нажатия
// (меньше настроенного зазора) игнорируются: процессу захвата нужно время на
// устройство. Возвращает пустую строку при старте и ответ ИИ при остановке.
func (o *Orchestrator) ToggleRecording(ctx context.Context) (string, error) {
	o.mu.Lock()
	if since := time.Since(o.lastToggle); since < o.cfg.ToggleDebounce {
		o.mu.Unlock()
		o.logger.Debugw("Переключение записи проигнорировано (дребезг)", "sinceLast", since.String())
		return "", nil
	}
	o.lastToggle = time.Now()
	o.mu.Unlock()

	if o.rec.State() == record.StateRecording {
		return o.StopAndAnalyze(ctx, "")
	}
	_, err := o.rec.Start(ctx)
	return "", err
}

// SelfTest диагностический запрос к провайдеру.
func (o *Orchestrator) SelfTest(ctx context.Context) error { return o.gw.SelfTest(ctx) }

func (o *Orchestrator) analyzeFrame(ctx context.Context, frame imgsvc.Frame, prompt string) (string, error) {
	frame = o.norm.OptimizeForAI(frame)
	answer, err := o.gw.AnalyzeImage(ctx, frame, prompt)
	if err != nil {
		return "", err
	}
	o.deliver(ctx, answer)
	return answer, nil
}

// deliver доносит ответ до пользователя: буфер обмена и уведомление.
// Оба канала best-effort.
func (o *Orchestrator) deliver(ctx context.Context, answer string) {
	if answer == "" {
		return
	}
	if o.cfg.ClipboardAnswers {
		if err := clipboard.WriteAll(answer); err != nil {
			o.logger.Warnw("Не удалось скопировать ответ в буфер обмена", "error", err)
		}
	}
	if o.notif != nil {
		o.notif.Done(ctx, "Ассистент", answer)
	}
}

// UserMessage превращает ошибку сценария в текст для пользователя:
// классифицированные ошибки провайдера получают подсказку по исправлению,
// ошибки ввода и окружения отдаются как есть.
func UserMessage(err error) string {
	var f *ai.Failure
	if errors.As(err, &f) {
		return f.Message + "\n" + f.Hint()
	}
	switch {
	case errors.Is(err, record.ErrAlreadyRecording):
		return "Запись уже идёт — остановите текущую"
	case errors.Is(err, record.ErrNotRecording):
		return "Запись не идёт — нечего останавливать"
	case errors.Is(err, record.ErrRecordingEmpty):
		return "Запись не содержит звука — проверьте виртуальный аудио кабель"
	case errors.Is(err, capture.ErrCaptureUnavailable):
		return "Захват экрана недоступен — проверьте права на запись экрана"
	case errors.Is(err, capture.ErrInvalidRegion):
		return "Выбранный регион вне экрана"
	default:
		return err.Error()
	}
}
