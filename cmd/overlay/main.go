package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"OverlayAssistant/internal/ai"
	"OverlayAssistant/internal/app/hotkeys"
	"OverlayAssistant/internal/app/orchestrator"
	"OverlayAssistant/internal/config"
	"OverlayAssistant/internal/service/capture"
	imgsvc "OverlayAssistant/internal/service/image"
	"OverlayAssistant/internal/service/notify"
	"OverlayAssistant/internal/service/record"
	"OverlayAssistant/internal/service/stt/whisper"

	"github.com/atotto/clipboard"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	var logger *zap.Logger
	var err error
	if cfg.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on Ctrl+C / SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		sugar.Infow("Получен сигнал остановки")
		cancel()
	}()

	sugar.Infow(
		"Starting overlay assistant",
		"DebugMode", cfg.DebugMode,
		"AIModel", cfg.AIModel,
		"AudioDevice", cfg.AudioDevice,
	)

	// реальный клиент OpenAI (использует переменные окружения, напр. OPENAI_API_KEY);
	// без ключа работаем оффлайн с заглушкой провайдера
	var gw ai.Gateway
	if os.Getenv("OPENAI_API_KEY") == "" {
		sugar.Warnw("OPENAI_API_KEY не задан, ответы даёт заглушка провайдера")
		gw = ai.NewStub()
	} else {
		oClient := openai.NewClient()
		gw = ai.NewOpenAIGateway(&oClient, cfg, sugar)
	}

	norm := imgsvc.NewNormalizer(cfg.JpegQuality(), cfg.AIMaxDim, sugar)
	capSvc := capture.New(norm, cfg.CaptureDisplay, cfg.MaxWidth, cfg.MaxHeight, sugar)
	rec := record.NewSession(record.NewFFmpegRunner(sugar), cfg.AudioDevice, cfg.AudioSampleRate, cfg.TempDir, cfg.StopSettle, sugar)
	stt := whisper.New(cfg.WhisperBin, cfg.WhisperModel, sugar)
	notif := notify.New(sugar, cfg.NotificationSoundPath, cfg.NotifyOnAnswer)
	guard := newGuard(sugar)

	orch := orchestrator.New(cfg, guard, capSvc, norm, gw, rec, stt, notif, sugar)

	// Фоновая очистка временных файлов по TTL
	cleaner := imgsvc.NewCleaner(sugar)
	go func() {
		t := time.NewTicker(cfg.TempTTL)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cleaner.Clean(cfg.TempDir, cfg.TempTTL, cfg.DebugMode)
			}
		}
	}()

	// Глобальные хоткеи (Windows); на других платформах остаётся REPL
	hk := hotkeys.New(hotkeys.Config{Debounce: cfg.ToggleDebounce})
	go func() {
		if err := hk.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			sugar.Infow("Слой хоткеев не запущен", "reason", err)
		}
	}()
	go dispatchHotkeys(ctx, hk, orch, sugar)

	repl(ctx, cancel, orch, sugar)
	sugar.Infow("Остановлено")
}

// dispatchHotkeys переводит события хоткеев в сценарии оркестратора.
func dispatchHotkeys(ctx context.Context, hk hotkeys.Service, orch *orchestrator.Orchestrator, sugar *zap.SugaredLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-hk.Events():
			if !ok {
				return
			}
			switch ev.Action {
			case hotkeys.ActionScreenshot:
				answer, err := orch.AnalyzeScreen(ctx, "")
				report(sugar, answer, err)
			case hotkeys.ActionToggleRecording:
				answer, err := orch.ToggleRecording(ctx)
				report(sugar, answer, err)
			case hotkeys.ActionAskClipboard:
				text, err := clipboard.ReadAll()
				if err != nil || strings.TrimSpace(text) == "" {
					sugar.Warnw("Буфер обмена пуст или недоступен", "error", err)
					continue
				}
				answer, err := orch.AskText(ctx, text)
				report(sugar, answer, err)
			}
		}
	}
}

// repl — командная строка для платформ без хоткеев и для отладки.
func repl(ctx context.Context, cancel context.CancelFunc, orch *orchestrator.Orchestrator, sugar *zap.SugaredLogger) {
	fmt.Println("Команды: shot [промпт] | shots | region x0 y0 x1 y1 | rec | transcribe | ask <текст> | askshot <текст> | displays | selftest | quit")
	sc := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				cancel()
				return
			}
			cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
			switch cmd {
			case "":
			case "shot":
				answer, err := orch.AnalyzeScreen(ctx, rest)
				report(sugar, answer, err)
			case "shots":
				frames, err := orch.CaptureAll(ctx)
				if err != nil {
					fmt.Println(orchestrator.UserMessage(err))
					continue
				}
				for _, f := range frames {
					fmt.Printf("display %d: %dx%d, %d байт\n", f.Source.Display, f.Width, f.Height, len(f.Data))
				}
			case "region":
				rect, err := parseRect(rest)
				if err != nil {
					fmt.Println(err)
					continue
				}
				answer, err := orch.AnalyzeRegion(ctx, rect, "")
				report(sugar, answer, err)
			case "rec":
				answer, err := orch.ToggleRecording(ctx)
				report(sugar, answer, err)
			case "transcribe":
				answer, err := orch.StopAndTranscribe(ctx)
				report(sugar, answer, err)
			case "ask":
				if strings.TrimSpace(rest) == "" {
					fmt.Println("ask: нужен текст вопроса")
					continue
				}
				answer, err := orch.AskText(ctx, rest)
				report(sugar, answer, err)
			case "askshot":
				if strings.TrimSpace(rest) == "" {
					fmt.Println("askshot: нужен текст вопроса")
					continue
				}
				answer, err := orch.AskWithScreen(ctx, rest)
				report(sugar, answer, err)
			case "displays":
				for _, d := range orch.ListDisplays() {
					fmt.Printf("display %d: bounds=%v primary=%v\n", d.ID, d.Bounds, d.IsPrimary)
				}
			case "selftest":
				if err := orch.SelfTest(ctx); err != nil {
					fmt.Println("провайдер недоступен:", orchestrator.UserMessage(err))
				} else {
					fmt.Println("провайдер отвечает")
				}
			case "quit", "exit":
				cancel()
				return
			default:
				fmt.Println("неизвестная команда:", cmd)
			}
		}
	}
}

func report(sugar *zap.SugaredLogger, answer string, err error) {
	if err != nil {
		msg := orchestrator.UserMessage(err)
		sugar.Errorw("Сценарий завершился с ошибкой", "error", err)
		fmt.Println(msg)
		return
	}
	if answer != "" {
		fmt.Println(answer)
	}
}

func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Fields(s)
	if len(parts) != 4 {
		return image.Rectangle{}, errors.New("region: ожидаются 4 числа: x0 y0 x1 y1")
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region: не число: %s", p)
		}
		vals[i] = v
	}
	return image.Rect(vals[0], vals[1], vals[2], vals[3]), nil
}
