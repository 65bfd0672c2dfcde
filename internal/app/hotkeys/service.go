package hotkeys

import (
	"context"
	"time"
)

// Action действие, привязанное к глобальному хоткею.
type Action int

const (
	ActionScreenshot Action = iota + 1 // Ctrl+Shift+S — снимок и анализ экрана
	ActionToggleRecording              // Ctrl+Shift+R — старт/стоп записи звука
	ActionAskClipboard                 // Ctrl+Enter — вопрос из буфера обмена
)

// Event событие хоткея.
type Event struct {
	Action Action
	At     time.Time
}

// Service минимальный интерфейс слоя хоткеев.
type Service interface {
	Run(ctx context.Context) error
	Events() <-chan Event
}

// Config параметры слоя хоткеев.
type Config struct {
	// Минимальный зазор между событиями одного действия. Дребезг гасится
	// здесь, до оркестратора: сессия записи этого не делает по контракту.
	Debounce time.Duration
}

// New создаёт сервис с координатором и платформенным источником событий (Windows).
func New(cfg Config) Service {
	return &coordinator{
		cfg:   cfg,
		rawIn: make(chan Event, 64),
		out:   make(chan Event, 64),
		seen:  make(map[Action]time.Time),
	}
}
