//go:build !windows

package hotkeys

import "errors"

func newWinListener() (winListener, error) {
	return nil, errors.New("hotkeys: windows listener unavailable on this platform")
}
