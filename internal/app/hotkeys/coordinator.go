package hotkeys

import (
	"context"
	"time"
)

type coordinator struct {
	cfg Config

	// входящие от платформенного слушателя
	rawIn chan Event

	// исходящие для потребителей
	out chan Event

	// последнее пропущенное событие по каждому действию
	seen map[Action]time.Time
}

func (c *coordinator) Events() <-chan Event { return c.out }

func (c *coordinator) Run(ctx context.Context) error {
	if c.cfg.Debounce <= 0 {
		c.cfg.Debounce = 500 * time.Millisecond
	}

	// стартуем платформенный слушатель (Windows)
	wl, err := newWinListener()
	if err != nil {
		return err
	}
	go wl.run(ctx, c.rawIn)

	defer close(c.out)

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case ev := <-c.rawIn:
			// Гасим дребезг: события одного действия чаще Debounce не пропускаем
			if last, ok := c.seen[ev.Action]; ok && ev.At.Sub(last) < c.cfg.Debounce {
				continue
			}
			c.seen[ev.Action] = ev.At
			c.safeSend(ev)
		}
	}
}

func (c *coordinator) safeSend(ev Event) {
	select {
	case c.out <- ev:
	default:
		// в случае переполнения — дроп, чтобы не блокировать
	}
}

// Реализация под Windows в файле windows_listener_windows.go
type winListener interface {
	run(ctx context.Context, out chan<- Event)
}
