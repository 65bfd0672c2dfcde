//go:build windows

package hotkeys

import (
	"context"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
)

// Обёртки для функций, которых может не быть в lxn/win
var (
	user32               = syscall.NewLazyDLL("user32.dll")
	procRegisterHotKey   = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey = user32.NewProc("UnregisterHotKey")
)

const (
	modControl = 0x0002
	modShift   = 0x0004

	vkReturn = 0x0D
	vkR      = 0x52
	vkS      = 0x53
)

// hotkeyID → действие
var bindings = map[int32]struct {
	modifiers uint32
	vk        uint32
	action    Action
}{
	1: {modControl | modShift, vkS, ActionScreenshot},
	2: {modControl | modShift, vkR, ActionToggleRecording},
	3: {modControl, vkReturn, ActionAskClipboard},
}

type winImpl struct{}

func newWinListener() (winListener, error) { return &winImpl{}, nil }

func (w *winImpl) run(ctx context.Context, out chan<- Event) {
	// UI/WinAPI должен жить в закрепленном системном потоке
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	className := syscall.StringToUTF16Ptr("OverlayHotkeyWindowClass")

	var wc win.WNDCLASSEX
	wc.CbSize = uint32(unsafe.Sizeof(wc))
	wc.LpfnWndProc = syscall.NewCallback(func(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
		switch msg {
		case win.WM_HOTKEY:
			if b, ok := bindings[int32(wParam)]; ok {
				select {
				case out <- Event{Action: b.action, At: time.Now()}:
				default:
				}
			}
			return 0
		case win.WM_DESTROY:
			win.PostQuitMessage(0)
			return 0
		}
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	})
	wc.HInstance = win.GetModuleHandle(nil)
	wc.HCursor = win.LoadCursor(0, win.MAKEINTRESOURCE(uintptr(win.IDC_ARROW)))
	wc.LpszClassName = className
	if win.RegisterClassEx(&wc) == 0 {
		// возможно, уже зарегистрирован — пробуем продолжить
	}

	// Создаём скрытое окно для приёма WM_HOTKEY
	hwnd := win.CreateWindowEx(
		0,
		className,
		syscall.StringToUTF16Ptr("OverlayHotkeyWindow"),
		0,
		0, 0, 0, 0,
		0,
		0,
		wc.HInstance,
		nil,
	)
	if hwnd == 0 {
		return
	}

	for id, b := range bindings {
		_ = registerHotKey(hwnd, id, b.modifiers, b.vk)
	}

	// Цикл сообщений до отмены контекста: WM_CLOSE -> WM_DESTROY -> WM_QUIT
	go func() {
		<-ctx.Done()
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	}()

	msg := new(win.MSG)
	for {
		r := win.GetMessage(msg, 0, 0, 0)
		if r == 0 || r == -1 { // WM_QUIT или ошибка
			break
		}
		win.TranslateMessage(msg)
		win.DispatchMessage(msg)
	}

	for id := range bindings {
		_ = unregisterHotKey(hwnd, id)
	}
	win.DestroyWindow(hwnd)
}

func registerHotKey(hwnd win.HWND, id int32, modifiers uint32, vk uint32) bool {
	if procRegisterHotKey.Find() != nil {
		return false
	}
	r, _, _ := procRegisterHotKey.Call(uintptr(hwnd), uintptr(id), uintptr(modifiers), uintptr(vk))
	return r != 0
}

func unregisterHotKey(hwnd win.HWND, id int32) bool {
	if procUnregisterHotKey.Find() != nil {
		return false
	}
	r, _, _ := procUnregisterHotKey.Call(uintptr(hwnd), uintptr(id))
	return r != 0
}
