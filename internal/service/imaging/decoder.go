// Package imaging turns uploaded attachments into images a model provider accepts.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/civicconnect/civicconnect-ai/internal/model/chat"
)

// MaxImageSize caps the bytes read from a single attachment (10MB).
const MaxImageSize = 10 * 1024 * 1024

var (
	// ErrInvalidImage indicates the payload is not a decodable image.
	ErrInvalidImage = errors.New("invalid or corrupted image")
	// ErrImageTooLarge indicates the payload exceeds MaxImageSize.
	ErrImageTooLarge = errors.New("image exceeds maximum size")
)

// formats the provider accepts as-is; everything else is re-encoded as PNG.
var passthrough = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// Decoder validates and normalizes image attachments.
type Decoder struct {
	maxSize int64
}

// NewDecoder returns a Decoder; a non-positive maxSize selects MaxImageSize.
func NewDecoder(maxSize int64) *Decoder {
	if maxSize <= 0 {
		maxSize = MaxImageSize
	}
	return &Decoder{maxSize: maxSize}
}

// Decode reads r fully and decodes it. The whole image is decoded so that
// truncated payloads are rejected, not only unreadable headers.
func (d *Decoder) Decode(r io.Reader) (*chat.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > d.maxSize {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	out := &chat.Image{
		Format: format,
		Data:   data,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	if mime, ok := passthrough[format]; ok {
		out.MIMEType = mime
		return out, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("re-encode %s as png: %w", format, err)
	}
	out.Format = "png"
	out.MIMEType = "image/png"
	out.Data = buf.Bytes()
	return out, nil
}
