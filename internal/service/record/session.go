package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRecording запись уже идёт; вторая параллельная не допускается.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording запись не идёт, останавливать нечего.
	ErrNotRecording = errors.New("no recording in progress")
	// ErrRecordingEmpty процесс завершился, но полезных аудиоданных нет.
	ErrRecordingEmpty = errors.New("recording produced no audio data")
)

// State состояние сессии записи.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle идентифицирует активную запись.
type Handle struct {
	SessionID  string
	OutputPath string
	StartedAt  time.Time
}

// Session — единственный на всю систему слот записи системного звука.
// Start/Stop атомарны относительно друг друга (мьютекс); больше одного
// активного процесса захвата быть не может.
//
// Дребезг быстрых переключений (минимум 500 мс между ними) гасит вызывающий
// слой хоткеев: процессу нужно время на захват устройства.
type Session struct {
	runner     Runner
	device     string
	sampleRate int
	tempDir    string
	settle     time.Duration
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	state  State
	handle Handle
	proc   Process
}

// NewSession создаёт сессию в состоянии Idle.
func NewSession(runner Runner, device string, sampleRate int, tempDir string, settle time.Duration, logger *zap.SugaredLogger) *Session {
	if settle <= 0 {
		settle = time.Second
	}
	return &Session{
		runner:     runner,
		device:     device,
		sampleRate: sampleRate,
		tempDir:    tempDir,
		settle:     settle,
		logger:     logger,
		state:      StateIdle,
	}
}

// State возвращает текущее состояние.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start запускает процесс захвата звука с виртуального входа и переводит
// сессию в Recording. Пока идёт запись, повторный Start — ErrAlreadyRecording.
func (s *Session) Start(ctx context.Context) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRecording, StateStopping:
		return Handle{}, ErrAlreadyRecording
	}

	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		s.state = StateFailed
		return Handle{}, fmt.Errorf("create temp dir: %w", err)
	}

	id := uuid.NewString()
	short := strings.ReplaceAll(id, "-", "")[:8]
	name := fmt.Sprintf("record_%s_%s.wav", time.Now().Format("2006-01-02_15-04-05-000"), short)
	outPath := filepath.Join(s.tempDir, name)

	proc, err := s.runner.Start(ctx, s.device, s.sampleRate, outPath)
	if err != nil {
		s.state = StateFailed
		return Handle{}, fmt.Errorf("start audio capture: %w", err)
	}

	s.proc = proc
	s.handle = Handle{SessionID: id, OutputPath: outPath, StartedAt: time.Now()}
	s.state = StateRecording
	s.logger.Infow("Запись начата", "sessionId", id, "path", outPath, "device", s.device)
	return s.handle, nil
}

// Stop мягко останавливает процесс, выжидает паузу на сброс буферов и
// убеждается, что в файле есть аудиоданные. Пустой или заголовочный файл —
// состояние Failed и ErrRecordingEmpty.
func (s *Session) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		st := s.state
		s.mu.Unlock()
		return "", fmt.Errorf("%w (state=%s)", ErrNotRecording, st)
	}
	s.state = StateStopping
	proc := s.proc
	handle := s.handle
	s.mu.Unlock()

	stopErr := proc.Stop(ctx)
	if stopErr != nil {
		// Процесс мог умереть сам; решает проверка файла
		s.logger.Warnw("Остановка процесса записи завершилась с ошибкой", "sessionId", handle.SessionID, "error", stopErr)
	}

	// Буферизованные записи долетают до диска не сразу (~1с эмпирически)
	if err := s.wait(ctx, s.settle); err != nil {
		s.fail()
		return "", err
	}

	if err := validateWAV(handle.OutputPath); err != nil {
		s.fail()
		s.logger.Errorw("Запись не содержит аудиоданных", "sessionId", handle.SessionID, "path", handle.OutputPath, "error", err)
		return "", fmt.Errorf("%w: %v", ErrRecordingEmpty, err)
	}

	s.mu.Lock()
	s.state = StateFinished
	s.proc = nil
	s.mu.Unlock()
	s.logger.Infow("Запись завершена", "sessionId", handle.SessionID, "path", handle.OutputPath, "duration", time.Since(handle.StartedAt).String())
	return handle.OutputPath, nil
}

// Cleanup best-effort удаляет файл записи и освобождает слот (Idle).
// Ошибки удаления логируются и не возвращаются.
func (s *Session) Cleanup(path string) {
	if path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warnw("Не удалось удалить файл записи", "path", path, "error", err)
		}
	}
	s.mu.Lock()
	if s.state == StateFinished || s.state == StateFailed {
		s.state = StateIdle
		s.handle = Handle{}
	}
	s.mu.Unlock()
}

func (s *Session) fail() {
	s.mu.Lock()
	s.state = StateFailed
	s.proc = nil
	s.mu.Unlock()
}

// wait спит d с учётом отмены контекста.
func (s *Session) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}

// validateWAV проверяет, что файл существует, не пустой и содержит PCM-данные
// за пределами заголовка: WAV из одного 44-байтового заголовка считается пустым.
func validateWAV(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output file missing: %w", err)
	}
	if fi.Size() == 0 {
		return errors.New("output file is zero-length")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if !d.IsValidFile() {
		return errors.New("output is not a valid wav file")
	}
	dur, err := d.Duration()
	if err != nil || dur <= 0 {
		return errors.New("wav contains no pcm frames")
	}
	return nil
}
