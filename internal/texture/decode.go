package texture

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr/codec/rgbe"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/braheezy/glmodel/internal/gpu"
)

// FormatForChannels maps a channel count to the GPU pixel format.
func FormatForChannels(n int) (gpu.PixelFormat, error) {
	switch n {
	case 1:
		return gpu.FormatRed, nil
	case 3:
		return gpu.FormatRGB, nil
	case 4:
		return gpu.FormatRGBA, nil
	}
	return 0, fmt.Errorf("%w: unsupported channel count %d", ErrDecodeFailed, n)
}

// Decode reads and decodes the image at path. When flip is set the rows are
// stored bottom first, matching OpenGL's texture origin.
func Decode(path string, flip bool) (gpu.TextureImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return gpu.TextureImage{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	defer f.Close()

	img, err := decodeImage(bufio.NewReader(f), filepath.Ext(path))
	if err != nil {
		return gpu.TextureImage{}, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, err)
	}
	return FromImage(img, flip)
}

func decodeImage(r io.Reader, ext string) (image.Image, error) {
	switch strings.ToLower(ext) {
	case ".tga":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return DecodeTGA(data)
	case ".hdr":
		return rgbe.Decode(r)
	}
	img, _, err := image.Decode(r)
	return img, err
}

// FromImage packs img into a texture image with 1, 3 or 4 channels.
func FromImage(img image.Image, flip bool) (gpu.TextureImage, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return gpu.TextureImage{}, fmt.Errorf("%w: empty image", ErrDecodeFailed)
	}

	n, err := channels(img)
	if err != nil {
		return gpu.TextureImage{}, err
	}
	format, err := FormatForChannels(n)
	if err != nil {
		return gpu.TextureImage{}, err
	}

	pixelData := make([]byte, width*height*n)
	index := 0
	for row := 0; row < height; row++ {
		y := bounds.Min.Y + row
		if flip {
			y = bounds.Max.Y - 1 - row
		}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			switch n {
			case 1:
				pixelData[index] = color.GrayModel.Convert(c).(color.Gray).Y
			case 3:
				p := color.NRGBAModel.Convert(c).(color.NRGBA)
				pixelData[index] = p.R
				pixelData[index+1] = p.G
				pixelData[index+2] = p.B
			case 4:
				p := color.NRGBAModel.Convert(c).(color.NRGBA)
				pixelData[index] = p.R
				pixelData[index+1] = p.G
				pixelData[index+2] = p.B
				pixelData[index+3] = p.A
			}
			index += n
		}
	}

	return gpu.TextureImage{
		Width:  width,
		Height: height,
		Format: format,
		Pixels: pixelData,
	}, nil
}

// channels reports how many channels the source image carries.
func channels(img image.Image) (int, error) {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1, nil
	case *image.Alpha, *image.Alpha16:
		return 0, fmt.Errorf("%w: alpha-only images have no colour channels", ErrDecodeFailed)
	case *image.YCbCr, *image.CMYK:
		return 3, nil
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		if o.Opaque() {
			return 3, nil
		}
		return 4, nil
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xFFFF {
				return 4, nil
			}
		}
	}
	return 3, nil
}
