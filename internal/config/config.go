package config

import (
	"flag"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` //Режим дебага

	// AI
	AIModel          string        `env:"AI_MODEL"`           // Модель для текста и картинок
	AIAudioModel     string        `env:"AI_AUDIO_MODEL"`     // Модель с поддержкой аудио на входе
	AIRequestTimeout time.Duration `env:"AI_REQUEST_TIMEOUT"` // Таймаут одного запроса к провайдеру
	AssistantContext string        `env:"ASSISTANT_CONTEXT"`  // Фиксированный системный блок для текстовых запросов
	ClipboardAnswers bool          `env:"CLIPBOARD_ANSWERS"`  // Копировать ответ ИИ в буфер обмена
	NotifyOnAnswer   bool          `env:"NOTIFY_ON_ANSWER"`   // Десктоп-уведомление при готовом ответе

	// Захват экрана
	CaptureQuality float64 `env:"CAPTURE_QUALITY"` // Качество JPEG 0..1
	CaptureFormat  string  `env:"CAPTURE_FORMAT"`  // Формат кадра; поддерживается только jpeg
	CaptureDisplay int     `env:"CAPTURE_DISPLAY"` // Индекс дисплея для полноэкранного захвата
	MaxWidth       int     `env:"MAX_WIDTH"`       // Потолок ширины обычного кадра
	MaxHeight      int     `env:"MAX_HEIGHT"`      // Потолок высоты обычного кадра
	AIMaxDim       int     `env:"AI_MAX_DIM"`      // Потолок большей стороны для AI-оптимизированных кадров

	// Запись системного звука
	AudioDevice     string        `env:"AUDIO_DEVICE"`      // Имя виртуального входа (VB-Cable)
	AudioSampleRate int           `env:"AUDIO_SAMPLE_RATE"` // Частота дискретизации записи
	StopSettle      time.Duration `env:"STOP_SETTLE"`       // Пауза после остановки процесса для сброса буферов
	ToggleDebounce  time.Duration `env:"TOGGLE_DEBOUNCE"`   // Минимальный зазор между переключениями записи

	// Транскрибация (whisper CLI)
	WhisperBin   string `env:"WHISPER_BIN"`   // Путь/имя бинаря whisper
	WhisperModel string `env:"WHISPER_MODEL"` // Размер модели: tiny|base|small|medium

	// Хозяйство
	TempDir               string        `env:"TEMP_DIR"`                // Папка для временных кадров и записей
	TempTTL               time.Duration `env:"TEMP_TTL"`                // Время жизни временных файлов
	NotificationSoundPath string        `env:"NOTIFICATION_SOUND_PATH"` // Путь к звуковому файлу уведомления
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:        false,
		AIModel:          "gpt-4o",
		AIAudioModel:     "gpt-4o-audio-preview",
		AIRequestTimeout: 60 * time.Second,
		AssistantContext: "Ты ассистент поверх экрана: отвечай кратко и по делу",
		ClipboardAnswers: true,
		NotifyOnAnswer:   true,

		CaptureQuality: 0.8,
		CaptureFormat:  "jpeg",
		CaptureDisplay: 0,
		MaxWidth:       1920,
		MaxHeight:      1080,
		AIMaxDim:       2048,

		AudioDevice:     "CABLE Output (VB-Audio Virtual Cable)",
		AudioSampleRate: 44100,
		StopSettle:      time.Second,
		ToggleDebounce:  500 * time.Millisecond,

		WhisperBin:   "whisper",
		WhisperModel: "small",

		TempDir:               "temp",
		TempTTL:               10 * time.Minute,
		NotificationSoundPath: "sound/notification.mp3",
	}
}

// NewConfig загружает конфигурацию приложения.
func NewConfig() *Config {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	_ = env.Parse(cfg)

	flag.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага для отображения доп инфы")
	flag.StringVar(&cfg.AIModel, "ai-model", cfg.AIModel, "модель ИИ для текста и изображений")
	flag.StringVar(&cfg.AIAudioModel, "ai-audio-model", cfg.AIAudioModel, "модель ИИ с поддержкой аудио на входе")
	flag.DurationVar(&cfg.AIRequestTimeout, "ai-request-timeout", cfg.AIRequestTimeout, "таймаут одного запроса к провайдеру, напр. 60s")
	flag.StringVar(&cfg.AssistantContext, "assistant-context", cfg.AssistantContext, "фиксированный системный блок для текстовых запросов")
	flag.BoolVar(&cfg.ClipboardAnswers, "clipboard-answers", cfg.ClipboardAnswers, "копировать ответ ИИ в буфер обмена")
	flag.BoolVar(&cfg.NotifyOnAnswer, "notify-on-answer", cfg.NotifyOnAnswer, "показывать десктоп-уведомление при готовом ответе")
	flag.Float64Var(&cfg.CaptureQuality, "capture-quality", cfg.CaptureQuality, "качество JPEG от 0 до 1")
	flag.StringVar(&cfg.CaptureFormat, "capture-format", cfg.CaptureFormat, "формат кадра (поддерживается jpeg)")
	flag.IntVar(&cfg.CaptureDisplay, "capture-display", cfg.CaptureDisplay, "индекс дисплея для полноэкранного захвата")
	flag.IntVar(&cfg.MaxWidth, "max-width", cfg.MaxWidth, "потолок ширины обычного кадра")
	flag.IntVar(&cfg.MaxHeight, "max-height", cfg.MaxHeight, "потолок высоты обычного кадра")
	flag.IntVar(&cfg.AIMaxDim, "ai-max-dim", cfg.AIMaxDim, "потолок большей стороны AI-оптимизированного кадра")
	flag.StringVar(&cfg.AudioDevice, "audio-device", cfg.AudioDevice, "имя виртуального аудио входа (VB-Cable)")
	flag.IntVar(&cfg.AudioSampleRate, "audio-sample-rate", cfg.AudioSampleRate, "частота дискретизации записи")
	flag.DurationVar(&cfg.StopSettle, "stop-settle", cfg.StopSettle, "пауза после остановки записи для сброса буферов, напр. 1s")
	flag.DurationVar(&cfg.ToggleDebounce, "toggle-debounce", cfg.ToggleDebounce, "минимальный зазор между переключениями записи, напр. 500ms")
	flag.StringVar(&cfg.WhisperBin, "whisper-bin", cfg.WhisperBin, "путь к бинарю whisper")
	flag.StringVar(&cfg.WhisperModel, "whisper-model", cfg.WhisperModel, "размер модели whisper: tiny|base|small|medium")
	flag.StringVar(&cfg.TempDir, "temp-dir", cfg.TempDir, "папка для временных кадров и записей")
	flag.DurationVar(&cfg.TempTTL, "temp-ttl", cfg.TempTTL, "время жизни временных файлов, напр. 10m")
	flag.StringVar(&cfg.NotificationSoundPath, "notification-sound-path", cfg.NotificationSoundPath, "путь к звуковому файлу уведомления (mp3 или wav)")
	flag.Parse()

	cfg.sanitize()
	return cfg
}

// sanitize приводит значения к допустимым диапазонам; неразборчивые значения
// заменяются дефолтами, ошибок наружу нет.
func (c *Config) sanitize() {
	def := Defaults()
	if c.CaptureQuality <= 0 || c.CaptureQuality > 1 {
		c.CaptureQuality = def.CaptureQuality
	}
	f := strings.ToLower(strings.TrimSpace(c.CaptureFormat))
	if f != "jpeg" && f != "jpg" {
		c.CaptureFormat = def.CaptureFormat
	}
	if c.MaxWidth <= 0 {
		c.MaxWidth = def.MaxWidth
	}
	if c.MaxHeight <= 0 {
		c.MaxHeight = def.MaxHeight
	}
	if c.AIMaxDim <= 0 {
		c.AIMaxDim = def.AIMaxDim
	}
	if c.AudioSampleRate <= 0 {
		c.AudioSampleRate = def.AudioSampleRate
	}
	if c.AIRequestTimeout <= 0 {
		c.AIRequestTimeout = def.AIRequestTimeout
	}
	if c.StopSettle < 0 {
		c.StopSettle = def.StopSettle
	}
	if c.ToggleDebounce < 0 {
		c.ToggleDebounce = def.ToggleDebounce
	}
	if c.TempTTL <= 0 {
		c.TempTTL = def.TempTTL
	}
	if strings.TrimSpace(c.TempDir) == "" {
		c.TempDir = def.TempDir
	}
}

// JpegQuality переводит CaptureQuality (0..1) в качество для jpeg.Encode (1..100).
func (c *Config) JpegQuality() int {
	q := int(c.CaptureQuality * 100)
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}
