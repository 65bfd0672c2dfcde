package ai

import (
	"context"
	"errors"
	"strings"
)

// Kind категория ошибки провайдера.
type Kind int

const (
	KindQuotaExceeded Kind = iota + 1
	KindAuthError
	KindMediaError
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindAuthError:
		return "auth_error"
	case KindMediaError:
		return "media_error"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Failure типизированная ошибка провайдера с подсказкой по исправлению.
// Классификация по тексту сообщения заведомо неточная: неверная категория
// не фатальна, сообщение всё равно доходит до пользователя, меняется лишь
// подсказка. Структурные коды провайдера были бы надёжнее; пока не используем.
type Failure struct {
	Kind    Kind
	Message string
}

func (f *Failure) Error() string { return f.Message }

// Hint подсказка пользователю по исправлению.
func (f *Failure) Hint() string {
	switch f.Kind {
	case KindQuotaExceeded:
		return "Превышена квота API — проверьте тариф и лимиты ключа"
	case KindAuthError:
		return "Ошибка авторизации — проверьте OPENAI_API_KEY"
	case KindMediaError:
		return "Провайдер не принял медиафайл — проверьте формат и размер"
	default:
		return "Временный сбой — повторите запрос"
	}
}

// predicate упорядоченный список проверок; первая сработавшая определяет Kind.
type predicate struct {
	kind  Kind
	marks []string
}

var classifiers = []predicate{
	{KindQuotaExceeded, []string{"429", "quota", "rate limit", "too many requests"}},
	{KindAuthError, []string{"401", "api key", "unauthorized", "invalid_api_key", "authentication"}},
	{KindMediaError, []string{"unsupported format", "invalid image", "invalid audio", "could not process the image", "invalid base64"}},
}

// Classify превращает ошибку провайдера в *Failure. Всё, что не распознано,
// считается временным сбоем (catch-all).
func Classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindTransient, Message: "запрос к провайдеру не уложился в таймаут: " + msg}
	}

	lower := strings.ToLower(msg)
	for _, p := range classifiers {
		for _, m := range p.marks {
			if strings.Contains(lower, m) {
				return &Failure{Kind: p.kind, Message: msg}
			}
		}
	}
	return &Failure{Kind: KindTransient, Message: msg}
}
