package ai

import (
	"context"

	imgsvc "OverlayAssistant/internal/service/image"
)

// Stub заглушка, которая не делает реальных запросов; используется в
// оффлайн-режиме, когда ключ провайдера не задан.
type Stub struct {
	Response string
}

var _ Gateway = (*Stub)(nil)

func NewStub() *Stub { return &Stub{Response: "запрос получен"} }

func (s *Stub) AnalyzeText(_ context.Context, _ string, _ string) (string, error) {
	return s.Response, nil
}

func (s *Stub) AnalyzeImage(_ context.Context, _ imgsvc.Frame, _ string) (string, error) {
	return s.Response, nil
}

func (s *Stub) AnalyzeAudio(_ context.Context, _ []byte, _ string, _ string) (string, error) {
	return s.Response, nil
}

func (s *Stub) AnalyzeMultimodal(_ context.Context, _ string, _ *imgsvc.Frame, _ []byte, _ string) (string, error) {
	return s.Response, nil
}

func (s *Stub) SelfTest(_ context.Context) error { return nil }
