// Package photo inspects and normalizes profile pictures before upload.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

const (
	jpegQuality = 88

	// MaxPixels and MaxSide bound what Normalize will decode; the upload
	// size limit applies to compressed bytes only.
	MaxPixels = 40_000_000
	MaxSide   = 12_000
)

var ErrTooManyPixels = errors.New("image dimensions too large")

// Detect returns the content type of data. Sniffing wins over the type the
// browser declared; declared is used only when sniffing finds nothing useful.
func Detect(data []byte, declared string) string {
	header := data
	if len(header) > 512 {
		header = header[:512]
	}

	sniffed := http.DetectContentType(header)
	if sniffed != "application/octet-stream" {
		return sniffed
	}

	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" {
		return declared
	}

	return sniffed
}

// Normalize shrinks JPEG and PNG images whose longer side exceeds maxDim,
// keeping the aspect ratio and the format. GIFs are returned untouched since
// resizing would drop their animation frames. maxDim <= 0 disables resizing.
// JPEG and PNG headers declaring more than MaxPixels or a side above MaxSide
// are rejected with ErrTooManyPixels before any pixel is decoded.
func Normalize(data []byte, contentType string, maxDim int) ([]byte, error) {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png":
	default:
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if cfg.Width > MaxSide || cfg.Height > MaxSide || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	if maxDim <= 0 || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	width, height := fit(cfg.Width, cfg.Height, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if contentType == "image/png" {
		err = png.Encode(&out, dst)
	} else {
		err = jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return out.Bytes(), nil
}

func fit(width int, height int, maxDim int) (int, int) {
	if width >= height {
		h := height * maxDim / width
		return maxDim, max(h, 1)
	}

	w := width * maxDim / height
	return max(w, 1), maxDim
}
