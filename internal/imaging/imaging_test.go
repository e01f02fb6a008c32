package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func testJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, solid(w, h, color.RGBA{200, 30, 30, 255}), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func testPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, solid(w, h, color.RGBA{30, 30, 200, 255}))
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		maxDim       int
		wantW, wantH int
	}{
		{"small jpeg untouched", testJPEG(50, 80), 600, 50, 80},
		{"png converted", testPNG(100, 100), 600, 100, 100},
		{"portrait cover", testJPEG(400, 1200), 600, 200, 600},
		{"landscape cover", testPNG(1200, 300), 600, 600, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumb, err := Process(bytes.NewReader(tt.data), tt.maxDim)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if thumb.MIME != "image/jpeg" {
				t.Errorf("expected image/jpeg, got %s", thumb.MIME)
			}
			w, h := decodedSize(t, thumb.Data)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestProcessRejectsOtherFormats(t *testing.T) {
	for _, data := range [][]byte{[]byte("not an image"), []byte("GIF89a...")} {
		if _, err := Process(bytes.NewReader(data), 600); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}

func TestFetch(t *testing.T) {
	cover := testJPEG(900, 1350)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") != "bookbin-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write(cover)
	}))
	defer srv.Close()

	th := NewThumbnailer(srv.Client(), 0, "bookbin-test")
	thumb, err := th.Fetch(context.Background(), srv.URL+"/cover.jpg")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	w, h := decodedSize(t, thumb.Data)
	if w != 400 || h != DefaultMaxDimension {
		t.Errorf("got %dx%d, want 400x%d", w, h, DefaultMaxDimension)
	}

	if _, err := th.Fetch(context.Background(), srv.URL+"/missing.jpg"); err == nil {
		t.Error("expected error for 404")
	}
}
