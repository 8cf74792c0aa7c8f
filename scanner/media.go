package scanner

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// Downscale fits jpg and png images within limit x limit using Lanczos.
// Anything else passes through untouched.
func Downscale(data []byte, ext string, limit int) ([]byte, error) {
	if limit <= 0 {
		return data, nil
	}
	format, err := imaging.FormatFromExtension(strings.TrimPrefix(ext, "."))
	if err != nil || (format != imaging.JPEG && format != imaging.PNG) {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return data, nil
	}

	resized := imaging.Fit(img, limit, limit, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
