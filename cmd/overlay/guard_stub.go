//go:build !windows

package main

import (
	"OverlayAssistant/internal/service/overlay"

	"go.uber.org/zap"
)

func newGuard(_ *zap.SugaredLogger) overlay.Guard { return overlay.Noop{} }
