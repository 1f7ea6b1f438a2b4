package texture

import (
	"fmt"

	"github.com/braheezy/glmodel/internal/gpu"
)

// Loader turns image files into GPU textures.
type Loader struct {
	device gpu.Device
	flip   bool
}

// NewLoader returns a loader uploading through device. With flip set, images
// are stored bottom row first.
func NewLoader(device gpu.Device, flip bool) *Loader {
	return &Loader{device: device, flip: flip}
}

// Decode reads the image at path into CPU memory. It does not touch the GPU
// and is safe to call from any goroutine.
func (l *Loader) Decode(path string) (gpu.TextureImage, error) {
	return Decode(path, l.flip)
}

// Upload sends img to the GPU and drops the CPU copy of its pixels.
func (l *Loader) Upload(img *gpu.TextureImage) (gpu.TextureHandle, error) {
	id, err := l.device.UploadTexture(*img)
	img.Pixels = nil
	if err != nil {
		return gpu.InvalidTexture, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return id, nil
}

// Load decodes and uploads the image at path.
func (l *Loader) Load(path string) (gpu.TextureHandle, error) {
	img, err := l.Decode(path)
	if err != nil {
		return gpu.InvalidTexture, err
	}
	return l.Upload(&img)
}
