package record

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Runner запускает платформенный процесс захвата звука.
type Runner interface {
	Start(ctx context.Context, device string, sampleRate int, outPath string) (Process, error)
}

// Process — запущенный процесс захвата. Stop обязан вернуть управление:
// сначала мягкий сигнал, по истечении таймаута — kill.
type Process interface {
	Stop(ctx context.Context) error
}

const stopGrace = 3 * time.Second

// FFmpegRunner пишет системный звук с виртуального входа через ffmpeg.
// Провал процесс сообщает только ненулевым кодом выхода и текстом в stderr;
// stderr уходит в лог, вызывающему не отдаётся.
type FFmpegRunner struct {
	bin    string
	logger *zap.SugaredLogger
}

func NewFFmpegRunner(logger *zap.SugaredLogger) *FFmpegRunner {
	return &FFmpegRunner{bin: "ffmpeg", logger: logger}
}

func (r *FFmpegRunner) Start(ctx context.Context, device string, sampleRate int, outPath string) (Process, error) {
	if _, err := exec.LookPath(r.bin); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	args := captureArgs(device, sampleRate, outPath)
	cmd := exec.Command(r.bin, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn ffmpeg: %w", err)
	}
	r.logger.Debugw("Процесс захвата звука запущен", "pid", cmd.Process.Pid, "args", args)

	// stderr в лог построчно
	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			r.logger.Debugw("ffmpeg", "line", sc.Text())
		}
	}()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	return &ffmpegProcess{cmd: cmd, stdin: stdin, done: done, logger: r.logger}, nil
}

// captureArgs собирает аргументы ffmpeg под платформенный бэкенд ввода.
func captureArgs(device string, sampleRate int, outPath string) []string {
	args := []string{"-hide_banner", "-loglevel", "warning"}
	switch runtime.GOOS {
	case "windows":
		args = append(args, "-f", "dshow", "-i", "audio="+device)
	case "darwin":
		args = append(args, "-f", "avfoundation", "-i", ":"+device)
	default:
		args = append(args, "-f", "pulse", "-i", device)
	}
	args = append(args,
		"-ac", "2",
		"-ar", strconv.Itoa(sampleRate),
		"-y",
		outPath,
	)
	return args
}

type ffmpegProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	done   chan error
	logger *zap.SugaredLogger
}

// Stop просит ffmpeg завершиться ('q' на stdin), ждёт выхода в пределах
// льготного интервала, затем убивает процесс.
func (p *ffmpegProcess) Stop(ctx context.Context) error {
	if _, err := io.WriteString(p.stdin, "q"); err != nil {
		p.logger.Debugw("Не удалось отправить 'q' процессу захвата", "error", err)
	}
	_ = p.stdin.Close()

	grace := time.NewTimer(stopGrace)
	defer grace.Stop()
	select {
	case err := <-p.done:
		if err != nil {
			return fmt.Errorf("capture process exited: %w", err)
		}
		return nil
	case <-grace.C:
	case <-ctx.Done():
	}

	p.logger.Warnw("Процесс захвата не завершился мягко, убиваем", "pid", p.cmd.Process.Pid)
	_ = p.cmd.Process.Kill()
	err := <-p.done
	if err != nil {
		return fmt.Errorf("capture process killed: %w", err)
	}
	return nil
}
