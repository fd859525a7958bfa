package imaging

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encoding test png: %v", err)
	}
	return buf.Bytes()
}

func TestValidatePNG(t *testing.T) {
	mime, err := Validate(encodePNG(t, 4, 4))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("expected image/png, got %q", mime)
	}
}

func TestValidateRejectsNonImage(t *testing.T) {
	if _, err := Validate([]byte("definitely not an image")); err == nil {
		t.Error("expected rejection of non-image data")
	}
}

func TestThumbnailDownscales(t *testing.T) {
	thumb, err := Thumbnail(encodePNG(t, 100, 50), 20)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg output, got %q", format)
	}
	if cfg.Width != 20 || cfg.Height != 10 {
		t.Errorf("expected 20x10 thumbnail, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	thumb, err := Thumbnail(encodePNG(t, 10, 10), 20)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if cfg.Width != 10 || cfg.Height != 10 {
		t.Errorf("expected original dimensions, got %dx%d", cfg.Width, cfg.Height)
	}
}
