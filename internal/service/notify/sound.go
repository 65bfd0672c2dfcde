package notify

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier инкапсулирует обратную связь пользователю о готовом результате:
// короткий звук и десктоп-уведомление. Всё best-effort — сбой уведомления
// никогда не ломает основную операцию.
type Notifier struct {
	logger    *zap.SugaredLogger
	soundPath string
	toast     bool
	ply       Player
}

// New создаёт нотификатор. Если путь пуст, используется дефолт
// sound/notification.mp3 (сначала рядом с бинарём, затем от рабочей директории).
func New(logger *zap.SugaredLogger, soundPath string, toast bool) *Notifier {
	if strings.TrimSpace(soundPath) == "" {
		def := filepath.Join("sound", "notification.mp3")
		// Путь по умолчанию: рядом с бинарём
		if exe, err := os.Executable(); err == nil {
			cand := filepath.Join(filepath.Dir(exe), def)
			if _, statErr := os.Stat(cand); statErr == nil {
				def = cand
			}
		}
		soundPath = def
	}
	return &Notifier{logger: logger, soundPath: soundPath, toast: toast, ply: NewPlayer()}
}

// Done сигнализирует о завершённой операции: звук + toast с началом ответа.
func (n *Notifier) Done(ctx context.Context, title string, body string) {
	n.playSound(ctx)
	if !n.toast {
		return
	}
	if len([]rune(body)) > 120 {
		body = string([]rune(body)[:120]) + "…"
	}
	if err := beeep.Notify(title, body, ""); err != nil {
		n.logger.Warnw("Не удалось показать десктоп-уведомление", "error", err)
	}
}

func (n *Notifier) playSound(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	f, err := os.Open(n.soundPath)
	if err != nil {
		n.logger.Debugw("Звук уведомления недоступен", "path", n.soundPath, "error", err)
		return
	}
	defer f.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(n.soundPath), "."))
	if ext == "" {
		ext = "mp3"
	}
	if err := n.ply.Play(ext, f); err != nil {
		n.logger.Warnw("Не удалось проиграть звук уведомления", "path", n.soundPath, "error", err)
	}
}
