package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// FetchResult is the payload written to disk for one image.
type FetchResult struct {
	Data        []byte
	ContentType string
	Optimized   bool
}

// ImageHandler processes image responses based on response inspection
type ImageHandler interface {
	CanHandle(url string, resp *http.Response) bool
	Handle(url string, resp *http.Response) (*FetchResult, error)
}

// OptimizingHandler re-encodes JPEG and PNG images, shrinking them to
// MaxWidth first when they are wider.
type OptimizingHandler struct {
	MaxWidth int
	Quality  int
}

func (h *OptimizingHandler) CanHandle(url string, resp *http.Response) bool {
	switch imageFormat(url, resp) {
	case "jpeg", "png":
		return true
	}
	return false
}

func (h *OptimizingHandler) Handle(url string, resp *http.Response) (*FetchResult, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", url, err)
	}

	img, resized := resize(img, h.MaxWidth)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		quality := h.Quality
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	default:
		return &FetchResult{Data: body, ContentType: resp.Header.Get("Content-Type")}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("encoding image %s: %w", url, err)
	}

	// Re-encoding can grow already compressed files.
	if !resized && buf.Len() >= len(body) {
		return &FetchResult{Data: body, ContentType: "image/" + format}, nil
	}

	return &FetchResult{Data: buf.Bytes(), ContentType: "image/" + format, Optimized: true}, nil
}

func resize(img image.Image, maxWidth int) (image.Image, bool) {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img, false
	}
	height := b.Dy() * maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, true
}

// PassthroughHandler writes the response body unchanged (fallback)
type PassthroughHandler struct{}

func (h *PassthroughHandler) CanHandle(url string, resp *http.Response) bool {
	return true // Always handles as fallback
}

func (h *PassthroughHandler) Handle(url string, resp *http.Response) (*FetchResult, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &FetchResult{Data: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

func imageFormat(url string, resp *http.Response) string {
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(contentType, "image/jpeg"), strings.Contains(contentType, "image/jpg"):
		return "jpeg"
	case strings.Contains(contentType, "image/png"):
		return "png"
	case strings.HasPrefix(contentType, "image/"):
		return ""
	}

	lower := strings.ToLower(url)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "png"
	}
	return ""
}
