package receipt

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentpay-backend/internal/logging"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestNormalizePNG(t *testing.T) {
	out, err := NormalizePNG(testJPEG(t))
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 16, img.Bounds().Dx())

	_, err = NormalizePNG([]byte("not an image"))
	assert.Error(t, err)
}

func TestNormalizePNG_RejectsHugeDimensions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.Black}), nil))
	raw := buf.Bytes()
	// the screen descriptor claims 50000x50000 while the file stays tiny
	binary.LittleEndian.PutUint16(raw[6:8], 50000)
	binary.LittleEndian.PutUint16(raw[8:10], 50000)

	_, err := NormalizePNG(raw)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	out, err := NormalizePNG(testPNG(t, 64, 64))
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestImageLoader_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(path, testPNG(t, 20, 10), 0o600))

	loader := NewImageLoader(nil, time.Second, logging.NewNop())
	data, err := loader.Load(context.Background(), path)

	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestImageLoader_LoadAllOmitsFailures(t *testing.T) {
	logo := testPNG(t, 8, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logo.png":
			w.Write(logo)
		case "/slow.png":
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		case "/garbage.png":
			w.Write([]byte("<html>not found</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	loader := NewImageLoader(srv.Client(), 100*time.Millisecond, logging.NewNop())

	start := time.Now()
	loaded := loader.LoadAll(context.Background(), map[string]string{
		"logo":    srv.URL + "/logo.png",
		"slow":    srv.URL + "/slow.png",
		"missing": srv.URL + "/missing.png",
		"garbage": srv.URL + "/garbage.png",
		"empty":   "",
	})
	elapsed := time.Since(start)

	assert.Contains(t, loaded, "logo")
	assert.NotContains(t, loaded, "slow")
	assert.NotContains(t, loaded, "missing")
	assert.NotContains(t, loaded, "garbage")
	assert.NotContains(t, loaded, "empty")
	assert.Less(t, elapsed, time.Second, "slow image must be bounded by the per-image timeout")
}
