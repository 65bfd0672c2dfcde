//go:build windows

package main

import (
	"OverlayAssistant/internal/service/overlay"

	"github.com/lxn/win"
	"go.uber.org/zap"
)

// newGuard регистрирует консольное окно как поверхность оверлея: на время
// захвата оно прячется и исключается из чужих снимков экрана.
func newGuard(logger *zap.SugaredLogger) overlay.Guard {
	g := overlay.NewWindowGuard(logger)
	if hwnd := win.GetConsoleWindow(); hwnd != 0 {
		g.Register(uintptr(hwnd))
	}
	return g
}
