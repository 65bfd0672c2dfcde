package ai

import (
	"context"

	imgsvc "OverlayAssistant/internal/service/image"
)

// Gateway типизированный фасад над внешним AI-провайдером. Все реализации
// должны быть взаимозаменяемыми. Отсутствующие модальности не отправляются —
// ни пустыми, ни заглушками.
type Gateway interface {
	AnalyzeText(ctx context.Context, text string, contextText string) (string, error)
	AnalyzeImage(ctx context.Context, frame imgsvc.Frame, prompt string) (string, error)
	AnalyzeAudio(ctx context.Context, audio []byte, mimeType string, prompt string) (string, error)
	AnalyzeMultimodal(ctx context.Context, text string, frame *imgsvc.Frame, audio []byte, audioMime string) (string, error)
	// SelfTest один фиксированный запрос для диагностики связи; в основном
	// пути запросов не участвует.
	SelfTest(ctx context.Context) error
}
