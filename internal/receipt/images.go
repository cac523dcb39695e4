package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/metrics"
)

const (
	DefaultImageTimeout = 5 * time.Second
	maxImageBytes       = 5 << 20
	// MaxImagePixels caps decoded size; the byte cap alone admits tiny files with huge rasters
	MaxImagePixels = 4096 * 4096
)

var ErrImageTooLarge = errors.New("image dimensions too large")

// ImageLoader fetches optional receipt images from URLs or local paths.
// Each load is bounded by its own timeout and every image is re-encoded as an
// 8-bit RGBA PNG so the PDF writer only ever sees one well-supported format.
type ImageLoader struct {
	client  *http.Client
	timeout time.Duration
	logger  *logging.Logger
}

func NewImageLoader(client *http.Client, timeout time.Duration, logger *logging.Logger) *ImageLoader {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	return &ImageLoader{client: client, timeout: timeout, logger: logger.Named("receipt_images")}
}

// Load returns the normalized PNG bytes for source
func (l *ImageLoader) Load(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty image source")
	}

	var raw []byte
	var err error
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		raw, err = l.fetch(ctx, source)
	} else {
		raw, err = readLocal(source)
	}
	if err != nil {
		return nil, err
	}
	return NormalizePNG(raw)
}

// LoadAll loads every non-empty slot in parallel. Slots that fail are logged,
// counted and left out of the result.
func (l *ImageLoader) LoadAll(ctx context.Context, sources map[string]string) map[string][]byte {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		loaded = make(map[string][]byte, len(sources))
	)

	for slot, source := range sources {
		if strings.TrimSpace(source) == "" {
			continue
		}
		wg.Add(1)
		go func(slot, source string) {
			defer wg.Done()
			data, err := l.Load(ctx, source)
			if err != nil {
				metrics.AssetLoadFailures.WithLabelValues(slot).Inc()
				l.logger.Warn(ctx, "receipt image omitted",
					zap.String("slot", slot), zap.String("source", source), zap.Error(err))
				return
			}
			mu.Lock()
			loaded[slot] = data
			mu.Unlock()
		}(slot, source)
	}

	wg.Wait()
	return loaded
}

func (l *ImageLoader) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func readLocal(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxImageBytes))
}

// NormalizePNG decodes a PNG, JPEG or GIF and re-encodes it as a non-interlaced 8-bit NRGBA PNG
func NormalizePNG(raw []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
