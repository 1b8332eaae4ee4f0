package models

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnknownImageFormat is returned for texture data whose format can be
// determined neither from its content nor from its file name.
var ErrUnknownImageFormat = errors.New("unknown image format")

// DefaultMaxTextureSize bounds the larger side of uploaded textures.
const DefaultMaxTextureSize = 4096

type decodeFunc func(io.Reader) (image.Image, error)

// decoders by canonical extension, as reported by filetype.
var decoders = map[string]decodeFunc{
	"png":  png.Decode,
	"jpg":  jpeg.Decode,
	"gif":  gif.Decode,
	"bmp":  bmp.Decode,
	"tif":  tiff.Decode,
	"webp": webp.Decode,
}

// extAliases maps file name extensions to canonical ones.
var extAliases = map[string]string{
	"jpeg": "jpg",
	"tiff": "tif",
}

// imageFormat sniffs data and falls back to the extension of name when the
// content is not recognized.
func imageFormat(data []byte, name string) (string, error) {
	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		if _, ok := decoders[kind.Extension]; ok {
			return kind.Extension, nil
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if alias, ok := extAliases[ext]; ok {
		ext = alias
	}
	if _, ok := decoders[ext]; ok {
		return ext, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownImageFormat, name)
}

// decodeImage decodes data into a top-down RGBA image no larger than
// maxSize on either side. name is used for format fallback and errors.
func decodeImage(data []byte, name string, maxSize int) (*image.RGBA, error) {
	format, err := imageFormat(data, name)
	if err != nil {
		return nil, err
	}
	img, err := decoders[format](bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s image %s: %w", format, name, err)
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("decode %s image %s: empty image", format, name)
	}
	if w, h := fitSize(b.Dx(), b.Dy(), maxSize); w != b.Dx() || h != b.Dy() {
		return transform.Resize(img, w, h, transform.Linear), nil
	}

	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba, nil
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}

// fitSize scales w x h down to fit within maxSize, keeping the aspect
// ratio. Sizes already within bounds are returned unchanged.
func fitSize(w, h, maxSize int) (int, int) {
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return w, h
	}
	if w >= h {
		return maxSize, max(1, h*maxSize/w)
	}
	return max(1, w*maxSize/h), maxSize
}

// readImageFile loads and decodes the image at path.
func readImageFile(path string, maxSize int) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read texture: %w", err)
	}
	return decodeImage(data, path, maxSize)
}
