package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"go.uber.org/zap"
)

const (
	defaultQuality = 80
	defaultAIMax   = 2048

	// Фиксированная коррекция для AI-оптимизированных кадров
	aiContrast   = 1.1
	aiBrightness = 10
)

// SourceKind тип источника кадра.
type SourceKind int

const (
	SourceFullScreen SourceKind = iota
	SourceRegion
	SourceDisplay
)

// Source описывает, откуда взят кадр.
type Source struct {
	Kind    SourceKind
	Rect    image.Rectangle // для SourceRegion
	Display int             // для SourceDisplay
}

// Frame готовый к отправке кадр: сжатые байты и метаданные.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Mime   string
	Source Source
}

// Normalizer приводит кадры к лимитам провайдера: даунскейл с сохранением
// пропорций и пережатие в JPEG с настроенным качеством. Апскейла нет никогда.
type Normalizer struct {
	quality  int
	aiMaxDim int
	logger   *zap.SugaredLogger
}

// NewNormalizer создаёт нормализатор. quality — качество JPEG 1..100,
// aiMaxDim — потолок большей стороны для AI-оптимизированного пути.
func NewNormalizer(quality int, aiMaxDim int, logger *zap.SugaredLogger) *Normalizer {
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	if aiMaxDim <= 0 {
		aiMaxDim = defaultAIMax
	}
	return &Normalizer{quality: quality, aiMaxDim: aiMaxDim, logger: logger}
}

// Normalize приводит изображение так, чтобы большая сторона была не больше maxDim.
// Кадр в пределах лимита пережимается без изменения размеров (идемпотентность).
func (n *Normalizer) Normalize(img image.Image, maxDim int, src Source) (Frame, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return Frame{}, fmt.Errorf("invalid image size: %dx%d", w, h)
	}
	if maxDim <= 0 {
		maxDim = n.aiMaxDim
	}

	outW, outH := w, h
	if w > maxDim || h > maxDim {
		scale := float64(maxDim) / float64(max(w, h))
		outW = max(1, int(math.Round(float64(w)*scale)))
		outH = max(1, int(math.Round(float64(h)*scale)))
	}
	return n.encode(img, outW, outH, src)
}

// FitBounds вписывает изображение в прямоугольник maxW×maxH с сохранением
// пропорций; используется обычным путём захвата (по умолчанию 1920×1080).
func (n *Normalizer) FitBounds(img image.Image, maxW int, maxH int, src Source) (Frame, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return Frame{}, fmt.Errorf("invalid image size: %dx%d", w, h)
	}

	outW, outH := w, h
	if w > maxW || h > maxH {
		scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
		outW = max(1, int(math.Round(float64(w)*scale)))
		outH = max(1, int(math.Round(float64(h)*scale)))
	}
	return n.encode(img, outW, outH, src)
}

// OptimizeForAI применяет увеличенный потолок (aiMaxDim) и фиксированную
// коррекцию контраста/яркости для читаемости. Любая ошибка обработки —
// возвращаем исходный кадр как есть: оптимизация не обязана состояться.
func (n *Normalizer) OptimizeForAI(f Frame) Frame {
	img, err := jpeg.Decode(bytes.NewReader(f.Data))
	if err != nil {
		n.logger.Warnw("Не удалось декодировать кадр для AI-оптимизации, отправляем исходный", "error", err)
		return f
	}

	adjusted := adjustContrastBrightness(img, aiContrast, aiBrightness)
	out, err := n.Normalize(adjusted, n.aiMaxDim, f.Source)
	if err != nil {
		n.logger.Warnw("AI-оптимизация кадра не удалась, отправляем исходный", "error", err)
		return f
	}
	return out
}

func (n *Normalizer) encode(img image.Image, width int, height int, src Source) (Frame, error) {
	out := img
	if width != img.Bounds().Dx() || height != img.Bounds().Dy() {
		out = resizeNearest(img, width, height)
	}
	encoded, err := encodeJPEG(out, n.quality)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Data:   encoded,
		Width:  width,
		Height: height,
		Mime:   "image/jpeg",
		Source: src,
	}, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resizeNearest выполняет масштабирование изображения методом ближайшего соседа
func resizeNearest(src image.Image, width int, height int) *image.RGBA {
	if width <= 0 || height <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	srcBounds := src.Bounds()
	srcWidth := srcBounds.Dx()
	srcHeight := srcBounds.Dy()
	if srcWidth == 0 || srcHeight == 0 {
		return image.NewRGBA(image.Rect(0, 0, width, height))
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		srcY := srcBounds.Min.Y + y*srcHeight/height
		for x := range width {
			srcX := srcBounds.Min.X + x*srcWidth/width
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}

	return dst
}

// adjustContrastBrightness применяет линейную коррекцию каждому каналу:
// v' = (v-128)*contrast + 128 + brightness, с обрезкой в 0..255.
func adjustContrastBrightness(src image.Image, contrast float64, brightness int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	adj := func(v uint32) uint8 {
		f := (float64(v>>8)-128)*contrast + 128 + float64(brightness)
		if f < 0 {
			f = 0
		}
		if f > 255 {
			f = 255
		}
		return uint8(f)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := src.At(x, y).RGBA()
			dst.Set(x-b.Min.X, y-b.Min.Y, color.RGBA{R: adj(r), G: adj(g), B: adj(bl), A: uint8(a >> 8)})
		}
	}
	return dst
}
