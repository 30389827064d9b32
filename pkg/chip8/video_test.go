package chip8

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestFramebufferRGBA(t *testing.T) {
	m := NewMachine()
	m.Display[0][0] = 0xF0 // any nonzero accumulation renders as white
	m.Display[31][63] = 1

	pixels := m.FramebufferRGBA()
	if len(pixels) != DisplayWidth*DisplayHeight*4 {
		t.Fatalf("expected %d bytes, got %d", DisplayWidth*DisplayHeight*4, len(pixels))
	}

	// Lit cells normalize to opaque white regardless of the stored value.
	for _, idx := range []int{0, (31*DisplayWidth + 63) * 4} {
		if pixels[idx] != 0xFF || pixels[idx+1] != 0xFF || pixels[idx+2] != 0xFF || pixels[idx+3] != 0xFF {
			t.Errorf("pixel at byte %d: expected opaque white, got %v", idx, pixels[idx:idx+4])
		}
	}

	// An unlit cell is opaque black.
	idx := (0*DisplayWidth + 1) * 4
	if pixels[idx] != 0 || pixels[idx+1] != 0 || pixels[idx+2] != 0 || pixels[idx+3] != 0xFF {
		t.Errorf("unlit pixel: expected opaque black, got %v", pixels[idx:idx+4])
	}
}

func TestFramebufferImage(t *testing.T) {
	m := NewMachine()
	img := m.FramebufferImage()
	if img.Rect.Dx() != DisplayWidth || img.Rect.Dy() != DisplayHeight {
		t.Errorf("expected %dx%d image, got %dx%d",
			DisplayWidth, DisplayHeight, img.Rect.Dx(), img.Rect.Dy())
	}
}

func TestSaveScreenshot(t *testing.T) {
	m := NewMachine()
	m.Display[5][5] = 1

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := m.SaveScreenshot(path); err != nil {
		t.Fatalf("SaveScreenshot: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open screenshot: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode screenshot: %v", err)
	}
	if img.Bounds().Dx() != DisplayWidth || img.Bounds().Dy() != DisplayHeight {
		t.Errorf("screenshot bounds: got %v", img.Bounds())
	}
}
