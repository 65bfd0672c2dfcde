package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	imgsvc "OverlayAssistant/internal/service/image"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

var (
	// ErrCaptureUnavailable платформенный захват недоступен или завершился ошибкой.
	ErrCaptureUnavailable = errors.New("screen capture unavailable")
	// ErrInvalidRegion регион после обрезки по границам экрана имеет нулевую площадь.
	ErrInvalidRegion = errors.New("invalid capture region")
)

// DisplayInfo снимок информации о дисплее; запрашивается по требованию,
// между вызовами не кэшируется.
type DisplayInfo struct {
	ID        int
	Bounds    image.Rectangle // нулевой прямоугольник у синтетической записи
	IsPrimary bool
}

// Backend платформенный слой захвата; подменяется в тестах.
type Backend interface {
	NumActiveDisplays() int
	GetDisplayBounds(i int) image.Rectangle
	CaptureRect(r image.Rectangle) (*image.RGBA, error)
}

// screenshotBackend реализация Backend поверх kbinani/screenshot.
type screenshotBackend struct{}

func (screenshotBackend) NumActiveDisplays() int                { return screenshot.NumActiveDisplays() }
func (screenshotBackend) GetDisplayBounds(i int) image.Rectangle { return screenshot.GetDisplayBounds(i) }
func (screenshotBackend) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}

// Service производит нормализованные кадры с поверхности дисплеев.
// Захват конкретного окна не реализован: такие запросы обслуживаются
// полноэкранным захватом (известное ограничение).
type Service struct {
	backend Backend
	norm    *imgsvc.Normalizer
	logger  *zap.SugaredLogger
	display int // индекс дисплея для полноэкранного захвата
	maxW    int
	maxH    int
}

// New создаёт сервис захвата поверх kbinani/screenshot.
func New(norm *imgsvc.Normalizer, display int, maxW int, maxH int, logger *zap.SugaredLogger) *Service {
	return NewWithBackend(norm, display, maxW, maxH, logger, screenshotBackend{})
}

// NewWithBackend создаёт сервис с произвольным платформенным слоем.
func NewWithBackend(norm *imgsvc.Normalizer, display int, maxW int, maxH int, logger *zap.SugaredLogger, b Backend) *Service {
	return &Service{
		backend: b,
		norm:    norm,
		logger:  logger,
		display: display,
		maxW:    maxW,
		maxH:    maxH,
	}
}

// FullScreen захватывает настроенный (по умолчанию основной) дисплей
// и нормализует кадр в пределы maxW×maxH.
func (s *Service) FullScreen(ctx context.Context) (imgsvc.Frame, error) {
	img, _, err := s.grab(ctx)
	if err != nil {
		return imgsvc.Frame{}, err
	}
	return s.norm.FitBounds(img, s.maxW, s.maxH, imgsvc.Source{Kind: imgsvc.SourceFullScreen})
}

// Region захватывает полный экран и обрезает до rect (координаты экрана).
// Выход за границы обрезается по захваченной области; ошибка ErrInvalidRegion
// только когда после обрезки не остаётся ни одного пикселя.
func (s *Service) Region(ctx context.Context, rect image.Rectangle) (imgsvc.Frame, error) {
	img, bounds, err := s.grab(ctx)
	if err != nil {
		return imgsvc.Frame{}, err
	}

	clamped := rect.Intersect(bounds)
	if clamped.Empty() {
		return imgsvc.Frame{}, fmt.Errorf("%w: %v outside %v", ErrInvalidRegion, rect, bounds)
	}

	// SubImage сохраняет систему координат источника
	local := clamped.Sub(bounds.Min).Add(img.Bounds().Min)
	crop := img.SubImage(local)
	return s.norm.FitBounds(crop, s.maxW, s.maxH, imgsvc.Source{Kind: imgsvc.SourceRegion, Rect: clamped})
}

// AllDisplays захватывает каждый дисплей по отдельности. Сбой одного дисплея
// логируется и пропускается; вызов в целом успешен и с частичным результатом.
func (s *Service) AllDisplays(ctx context.Context) ([]imgsvc.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := s.backend.NumActiveDisplays()
	if n <= 0 {
		s.logger.Warnw("Дисплеи не обнаружены, возвращаем пустой список кадров")
		return nil, nil
	}

	frames := make([]imgsvc.Frame, 0, n)
	for i := range n {
		b := s.backend.GetDisplayBounds(i)
		img, err := s.backend.CaptureRect(b)
		if err != nil {
			s.logger.Errorw("Не удалось захватить дисплей, пропускаем", "index", i, "error", err)
			continue
		}
		f, nerr := s.norm.FitBounds(img, s.maxW, s.maxH, imgsvc.Source{Kind: imgsvc.SourceDisplay, Display: i})
		if nerr != nil {
			s.logger.Errorw("Не удалось нормализовать кадр дисплея, пропускаем", "index", i, "error", nerr)
			continue
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// ListDisplays возвращает снимок списка дисплеев. При сбое перечисления —
// одна синтетическая запись основного дисплея: дальнейшая логика захвата
// рассчитывает, что хотя бы один дисплей существует.
func (s *Service) ListDisplays() []DisplayInfo {
	n := s.backend.NumActiveDisplays()
	if n <= 0 {
		s.logger.Warnw("Перечисление дисплеев не удалось, возвращаем синтетический основной")
		return []DisplayInfo{{ID: 0, IsPrimary: true}}
	}
	out := make([]DisplayInfo, 0, n)
	for i := range n {
		out = append(out, DisplayInfo{ID: i, Bounds: s.backend.GetDisplayBounds(i), IsPrimary: i == 0})
	}
	return out
}

// grab захватывает настроенный дисплей целиком и возвращает кадр с его границами.
func (s *Service) grab(ctx context.Context) (*image.RGBA, image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, image.Rectangle{}, err
	}
	n := s.backend.NumActiveDisplays()
	if n <= 0 {
		return nil, image.Rectangle{}, fmt.Errorf("%w: no active displays", ErrCaptureUnavailable)
	}
	idx := s.display
	if idx < 0 || idx >= n {
		idx = 0
	}
	b := s.backend.GetDisplayBounds(idx)
	img, err := s.backend.CaptureRect(b)
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return img, b, nil
}
