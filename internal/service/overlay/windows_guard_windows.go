//go:build windows

package overlay

import (
	"sync"
	"syscall"

	"github.com/lxn/win"
	"go.uber.org/zap"
)

// Обёртки для функций, которых может не быть в lxn/win
var (
	user32                       = syscall.NewLazyDLL("user32.dll")
	procSetWindowDisplayAffinity = user32.NewProc("SetWindowDisplayAffinity")
)

// WDA_EXCLUDEFROMCAPTURE окно не попадает в чужие снимки экрана (Win10 2004+)
const wdaExcludeFromCapture = 0x00000011

// WindowGuard прячет и восстанавливает зарегистрированные окна оверлея.
// Окна регистрирует UI-слой при создании.
type WindowGuard struct {
	logger *zap.SugaredLogger

	mu    sync.Mutex
	hwnds []win.HWND
}

func NewWindowGuard(logger *zap.SugaredLogger) *WindowGuard {
	return &WindowGuard{logger: logger}
}

// Register добавляет окно под управление и сразу включает content protection:
// защищённое окно не видно в снимках других приложений.
func (g *WindowGuard) Register(hwnd uintptr) {
	h := win.HWND(hwnd)
	g.mu.Lock()
	g.hwnds = append(g.hwnds, h)
	g.mu.Unlock()

	if !setDisplayAffinity(h, wdaExcludeFromCapture) {
		g.logger.Warnw("Не удалось включить content protection для окна", "hwnd", hwnd)
	}
}

func (g *WindowGuard) Hide() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, h := range g.hwnds {
		win.ShowWindow(h, win.SW_HIDE)
	}
}

func (g *WindowGuard) Restore() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, h := range g.hwnds {
		win.ShowWindow(h, win.SW_SHOWNOACTIVATE)
	}
}

func setDisplayAffinity(hwnd win.HWND, affinity uint32) bool {
	if procSetWindowDisplayAffinity.Find() != nil {
		return false
	}
	r, _, _ := procSetWindowDisplayAffinity.Call(uintptr(hwnd), uintptr(affinity))
	return r != 0
}
