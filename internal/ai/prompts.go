package ai

import "strings"

// Шаблоны промптов живут здесь: вызывающие слои передают только
// пользовательский текст, остальное собирает шлюз.

const defaultImagePrompt = `Опиши скриншот структурированно:
1. Что происходит на экране (основное содержимое).
2. Заметные элементы интерфейса.
3. Читаемый текст, если он есть.
4. Какие действия можно предложить пользователю.`

const defaultAudioPrompt = `Определи категорию аудио (музыка / речь / встреча / игра / фоновый шум) и опиши содержимое. Если есть речь — перескажи её суть.`

const selfTestPrompt = "Ответь одним словом: pong"

// imagePrompt возвращает пользовательский промпт как есть, либо дефолтный
// структурированный запрос описания.
func imagePrompt(custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return defaultImagePrompt
}

func audioPrompt(custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return defaultAudioPrompt
}

// textPrompt собирает единый промпт: опциональный контекстный блок + текст.
func textPrompt(contextText string, text string) string {
	c := strings.TrimSpace(contextText)
	if c == "" {
		return text
	}
	var b strings.Builder
	b.WriteString(c)
	b.WriteString("\n\n")
	b.WriteString(text)
	return b.String()
}
