package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/jchangwan/campus-closet-share/internal/infrastructure"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels ограничивает размер декодируемого изображения (защита от «бомб»).
const DefaultMaxPixels = 40_000_000

// Decoder декодирует изображения и приводит их к 3-канальному RGB.
type Decoder struct {
	maxPixels int
}

func NewDecoder(maxPixels int) *Decoder {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	return &Decoder{maxPixels: maxPixels}
}

// Decode проверяет формат, декодирует изображение и возвращает непрозрачный *image.RGBA.
// Альфа-канал отбрасывается без смешивания с фоном.
func (d *Decoder) Decode(data []byte) (image.Image, error) {
	const op = "Decoder.Decode"

	if len(data) == 0 {
		return nil, e.Wrap(op, e.ErrImageDecode)
	}

	if _, err := infrastructure.DetectImageMIME(data); err != nil {
		return nil, e.Wrap(op, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrImageDecode, err))
	}
	if cfg.Width*cfg.Height > d.maxPixels {
		return nil, e.Wrap(fmt.Sprintf("%s: %dx%d", op, cfg.Width, cfg.Height), e.ErrImageTooLarge)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrImageDecode, err))
	}

	return ToRGB(img), nil
}

// ToRGB копирует изображение в непрозрачный RGBA с началом координат в (0, 0).
func ToRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}

	return dst
}

// EncodePNG сериализует изображение в PNG для передачи энкодеру.
// Для непрозрачного изображения PNG записывается без альфа-канала.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, e.Wrap("EncodePNG", err)
	}

	return buf.Bytes(), nil
}
