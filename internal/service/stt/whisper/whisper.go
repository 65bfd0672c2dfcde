package whisper

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FallbackText возвращается вместо транскрипта при любом сбое внешнего
// инструмента: путь транскрибации вторичный и не должен ронять вызывающего.
const FallbackText = "(транскрибация недоступна)"

// Transcriber вызывает внешний whisper CLI для готовой записи.
// Инструмент кладёт рядом текстовый файл-спутник; мы его читаем и удаляем.
type Transcriber struct {
	bin    string
	model  string
	logger *zap.SugaredLogger

	// run вынесен в поле, чтобы тесты подменяли запуск процесса
	run func(ctx context.Context, name string, args ...string) error
}

// New создаёт адаптер. model — размер модели (tiny|base|small|medium).
func New(bin string, model string, logger *zap.SugaredLogger) *Transcriber {
	t := &Transcriber{bin: bin, model: model, logger: logger}
	t.run = t.execRun
	return t
}

// Transcribe возвращает текст записи или FallbackText. Ошибок наружу нет.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) string {
	outDir := filepath.Dir(audioPath)
	err := t.run(ctx, t.bin,
		audioPath,
		"--model", t.model,
		"--output_format", "txt",
		"--output_dir", outDir,
	)
	if err != nil {
		t.logger.Warnw("Внешний транскрибатор завершился с ошибкой", "bin", t.bin, "error", err)
		return FallbackText
	}

	sidecar := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".txt"
	b, err := os.ReadFile(sidecar)
	if err != nil {
		t.logger.Warnw("Файл-спутник транскрипта не найден", "path", sidecar, "error", err)
		return FallbackText
	}
	if rmErr := os.Remove(sidecar); rmErr != nil {
		t.logger.Warnw("Не удалось удалить файл-спутник", "path", sidecar, "error", rmErr)
	}

	text := strings.TrimSpace(string(b))
	if text == "" {
		return FallbackText
	}
	return text
}

func (t *Transcriber) execRun(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			t.logger.Debugw("whisper stderr", "output", s)
		}
		return err
	}
	return nil
}
