package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"
	"time"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const (
	maxPhotoBytes  = 15 << 20
	maxPhotoEdge   = 800
	// Decoders allocate the full bitmap up front, so headers are checked
	// against this before decoding.
	maxPhotoPixels = 40_000_000
)

// PhotoFetcher downloads the image behind a criterion photo URL.
type PhotoFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type HTTPPhotoFetcher struct {
	client *http.Client
}

func NewHTTPPhotoFetcher(client *http.Client) *HTTPPhotoFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPPhotoFetcher{client: client}
}

func (f *HTTPPhotoFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create photo request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch photo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch photo: status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}
	return data, nil
}

// photo is a decoded image re-encoded as baseline JPEG so the PDF writer
// never sees a format it cannot embed.
type photo struct {
	data   []byte
	width  int
	height int
}

func (p photo) ratio() float64 {
	if p.height == 0 {
		return 1
	}
	return float64(p.width) / float64(p.height)
}

func (r *Renderer) loadPhotos(ctx context.Context, urls []string) map[string]photo {
	out := make(map[string]photo, len(urls))
	if len(urls) == 0 || r.fetcher == nil {
		return out
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, url := range urls {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, r.photoTimeout)
			defer cancel()

			raw, err := r.fetcher.Fetch(fetchCtx, url)
			if err == nil {
				var p photo
				p, err = normalizePhoto(raw)
				if err == nil {
					mu.Lock()
					out[url] = p
					mu.Unlock()
					return nil
				}
			}
			r.logger.Warn("report_photo_unavailable", "url", url, "error", err)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func normalizePhoto(raw []byte) (photo, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return photo{}, fmt.Errorf("decode photo header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPhotoPixels {
		return photo{}, fmt.Errorf("photo %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPhotoPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return photo{}, fmt.Errorf("decode photo: %w", err)
	}
	img = opaque(shrink(img, maxPhotoEdge))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return photo{}, fmt.Errorf("encode photo: %w", err)
	}
	b := img.Bounds()
	return photo{data: buf.Bytes(), width: b.Dx(), height: b.Dy()}, nil
}

// shrink downsamples with nearest-neighbour so the longest edge fits maxEdge.
func shrink(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}
	scale := float64(maxEdge) / float64(max(w, h))
	dw, dh := max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		sy := b.Min.Y + int(float64(y)/scale)
		for x := 0; x < dw; x++ {
			sx := b.Min.X + int(float64(x)/scale)
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

// opaque flattens transparent images on white before JPEG encoding.
func opaque(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}
