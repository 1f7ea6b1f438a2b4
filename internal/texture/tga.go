package texture

import (
	"errors"
	"fmt"
	"image"
)

const (
	tgaTrueColor    = 2
	tgaGray         = 3
	tgaTrueColorRLE = 10
	tgaGrayRLE      = 11
)

var errTGATruncated = errors.New("tga: data truncated")

// DecodeTGA decodes uncompressed and RLE true-colour (24/32 bit) and
// grayscale (8 bit) TGA images. Colour images decode to *image.NRGBA,
// grayscale ones to *image.Gray.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, errTGATruncated
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("tga: color-mapped images not supported")
	}

	gray := false
	switch imageType {
	case tgaTrueColor, tgaTrueColorRLE:
		if bpp != 24 && bpp != 32 {
			return nil, fmt.Errorf("tga: unsupported bit depth %d", bpp)
		}
	case tgaGray, tgaGrayRLE:
		if bpp != 8 {
			return nil, fmt.Errorf("tga: unsupported grayscale bit depth %d", bpp)
		}
		gray = true
	default:
		return nil, fmt.Errorf("tga: unsupported image type %d", imageType)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("tga: empty image")
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, errTGATruncated
	}
	src := data[offset:]
	bytesPerPixel := bpp / 8
	rle := imageType == tgaTrueColorRLE || imageType == tgaGrayRLE

	// Bit 5 set means rows are stored top to bottom.
	topToBottom := descriptor&0x20 != 0

	var (
		nrgba *image.NRGBA
		gimg  *image.Gray
	)
	if gray {
		gimg = image.NewGray(image.Rect(0, 0, width, height))
	} else {
		nrgba = image.NewNRGBA(image.Rect(0, 0, width, height))
	}

	put := func(i int, px []byte) {
		x := i % width
		y := i / width
		if !topToBottom {
			y = height - 1 - y
		}
		if gray {
			gimg.Pix[gimg.PixOffset(x, y)] = px[0]
			return
		}
		o := nrgba.PixOffset(x, y)
		nrgba.Pix[o] = px[2]
		nrgba.Pix[o+1] = px[1]
		nrgba.Pix[o+2] = px[0]
		nrgba.Pix[o+3] = 255
		if bytesPerPixel == 4 {
			nrgba.Pix[o+3] = px[3]
		}
	}

	pixelCount := width * height
	if !rle {
		if len(src) < pixelCount*bytesPerPixel {
			return nil, errTGATruncated
		}
		for i := 0; i < pixelCount; i++ {
			put(i, src[i*bytesPerPixel:])
		}
	} else {
		pos := 0
		for i := 0; i < pixelCount; {
			if pos >= len(src) {
				return nil, errTGATruncated
			}
			packet := src[pos]
			pos++
			count := int(packet&0x7F) + 1
			if packet&0x80 != 0 {
				if pos+bytesPerPixel > len(src) {
					return nil, errTGATruncated
				}
				px := src[pos : pos+bytesPerPixel]
				pos += bytesPerPixel
				for ; count > 0 && i < pixelCount; count-- {
					put(i, px)
					i++
				}
				continue
			}
			for ; count > 0 && i < pixelCount; count-- {
				if pos+bytesPerPixel > len(src) {
					return nil, errTGATruncated
				}
				put(i, src[pos:pos+bytesPerPixel])
				pos += bytesPerPixel
				i++
			}
		}
	}

	if gray {
		return gimg, nil
	}
	return nrgba, nil
}
