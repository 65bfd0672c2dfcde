package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"OverlayAssistant/internal/config"
	imgsvc "OverlayAssistant/internal/service/image"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"go.uber.org/zap"
)

// OpenAIGateway реализует Gateway поверх OpenAI: текст и картинки через
// Responses API, запросы с аудио — через Chat Completions (Responses аудио
// на входе не принимает). Контракт один, API-поверхности две.
type OpenAIGateway struct {
	client     *openai.Client
	model      openai.ChatModel
	audioModel openai.ChatModel
	timeout    time.Duration
	logger     *zap.SugaredLogger
}

var _ Gateway = (*OpenAIGateway)(nil)

func NewOpenAIGateway(client *openai.Client, cfg *config.Config, logger *zap.SugaredLogger) *OpenAIGateway {
	return &OpenAIGateway{
		client:     client,
		model:      openai.ChatModel(cfg.AIModel),
		audioModel: openai.ChatModel(cfg.AIAudioModel),
		timeout:    cfg.AIRequestTimeout,
		logger:     logger,
	}
}

// AnalyzeText отправляет единый промпт: контекстный блок + текст пользователя.
func (g *OpenAIGateway) AnalyzeText(ctx context.Context, text string, contextText string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						{
							OfInputText: &responses.ResponseInputTextParam{
								Text: textPrompt(contextText, text),
							},
						},
					},
					responses.EasyInputMessageRoleUser,
				),
			},
		},
	})
	if err != nil {
		return "", Classify(err)
	}
	return resp.OutputText(), nil
}

// AnalyzeImage отправляет кадр (base64 data URL) с промптом; без промпта —
// дефолтный структурированный запрос описания.
func (g *OpenAIGateway) AnalyzeImage(ctx context.Context, frame imgsvc.Frame, prompt string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						{
							OfInputText: &responses.ResponseInputTextParam{
								Text: imagePrompt(prompt),
							},
						},
						{
							OfInputImage: &responses.ResponseInputImageParam{
								Detail:   responses.ResponseInputImageDetailAuto,
								ImageURL: openai.String(dataURL(frame.Mime, frame.Data)),
							},
						},
					},
					responses.EasyInputMessageRoleUser,
				),
			},
		},
	})
	if err != nil {
		return "", Classify(err)
	}
	return resp.OutputText(), nil
}

// AnalyzeAudio отправляет аудио с промптом; без промпта — дефолтная
// классификация по категориям.
func (g *OpenAIGateway) AnalyzeAudio(ctx context.Context, audio []byte, mimeType string, prompt string) (string, error) {
	if len(audio) == 0 {
		return "", &Failure{Kind: KindMediaError, Message: "invalid audio: empty payload"}
	}
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(audioPrompt(prompt)),
		audioPart(audio, mimeType),
	}
	return g.complete(ctx, g.audioModel, parts)
}

// AnalyzeMultimodal прикрепляет к тексту те модальности, что переданы.
// Отсутствующие не подменяются заглушками. При наличии аудио используется
// аудио-модель.
func (g *OpenAIGateway) AnalyzeMultimodal(ctx context.Context, text string, frame *imgsvc.Frame, audio []byte, audioMime string) (string, error) {
	parts, model := g.multimodalParts(text, frame, audio, audioMime)
	return g.complete(ctx, model, parts)
}

// multimodalParts собирает части запроса из переданных модальностей: часть
// появляется только для фактически переданной модальности. Наличие аудио
// переключает запрос на аудио-модель.
func (g *OpenAIGateway) multimodalParts(text string, frame *imgsvc.Frame, audio []byte, audioMime string) ([]openai.ChatCompletionContentPartUnionParam, openai.ChatModel) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(text),
	}
	model := g.model
	if frame != nil {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL(frame.Mime, frame.Data),
		}))
	}
	if len(audio) > 0 {
		parts = append(parts, audioPart(audio, audioMime))
		model = g.audioModel
	}
	return parts, model
}

// SelfTest один фиксированный запрос для проверки связи с провайдером.
func (g *OpenAIGateway) SelfTest(ctx context.Context) error {
	out, err := g.AnalyzeText(ctx, selfTestPrompt, "")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return &Failure{Kind: KindTransient, Message: "self-test returned empty response"}
	}
	return nil
}

func (g *OpenAIGateway) complete(ctx context.Context, model openai.ChatModel, parts []openai.ChatCompletionContentPartUnionParam) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return "", Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Failure{Kind: KindTransient, Message: "provider returned no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(ctx, g.timeout, errors.New("ai request timeout"))
}

func dataURL(mime string, data []byte) string {
	if mime == "" {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}

func audioPart(audio []byte, mimeType string) openai.ChatCompletionContentPartUnionParam {
	return openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
		Data:   base64.StdEncoding.EncodeToString(audio),
		Format: audioFormat(mimeType),
	})
}

// audioFormat переводит MIME-тип в формат, понятный провайдеру.
func audioFormat(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	default:
		return "wav"
	}
}
