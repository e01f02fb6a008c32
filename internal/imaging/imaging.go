// Package imaging turns catalog cover images into stored thumbnails.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

const (
	// DefaultMaxDimension bounds the width and height of a cover thumbnail.
	DefaultMaxDimension = 600

	jpegQuality = 85
	maxDownload = 8 << 20
)

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Thumbnail is an encoded cover image.
type Thumbnail struct {
	Data []byte
	MIME string
}

// Thumbnailer downloads and shrinks cover images.
type Thumbnailer struct {
	client    *http.Client
	maxDim    int
	userAgent string
}

// NewThumbnailer returns a Thumbnailer producing images no larger than
// maxDim on either side. A zero maxDim uses DefaultMaxDimension.
func NewThumbnailer(client *http.Client, maxDim int, userAgent string) *Thumbnailer {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	return &Thumbnailer{client: client, maxDim: maxDim, userAgent: userAgent}
}

// Fetch downloads the image at url and returns its thumbnail.
func (t *Thumbnailer) Fetch(ctx context.Context, url string) (*Thumbnail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building cover request: %w", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading cover: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading cover: status %d", resp.StatusCode)
	}

	return Process(io.LimitReader(resp.Body, maxDownload), t.maxDim)
}

// Process sniffs, decodes and downscales an image, re-encoding it as JPEG.
// Only JPEG and PNG input is accepted.
func Process(r io.Reader, maxDim int) (*Thumbnail, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	// Catalog servers mislabel content types, so trust the bytes.
	detected := http.DetectContentType(data)
	if !accepted[detected] {
		return nil, fmt.Errorf("unsupported image format: %s", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = downscale(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return &Thumbnail{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// downscale fits img into a maxDim square, keeping the aspect ratio.
// Smaller images are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	nw, nh := maxDim, maxDim
	if w > h {
		nh = max(1, h*maxDim/w)
	} else {
		nw = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
