package chip8

import (
	"image"
	"image/png"
	"os"
)

// FramebufferRGBA renders the display grid into a 64x32 RGBA8888 byte slice
// (length 64*32*4 = 8192). Cells are normalized here: any nonzero XOR
// accumulation becomes opaque white, zero becomes opaque black.
func (m *Machine) FramebufferRGBA() []byte {
	pixels := make([]byte, DisplayWidth*DisplayHeight*4)
	for y := 0; y < DisplayHeight; y++ {
		for x := 0; x < DisplayWidth; x++ {
			idx := (y*DisplayWidth + x) * 4
			if m.Display[y][x] != 0 {
				pixels[idx+0] = 0xFF
				pixels[idx+1] = 0xFF
				pixels[idx+2] = 0xFF
			}
			pixels[idx+3] = 0xFF
		}
	}
	return pixels
}

// FramebufferImage returns the current display as an *image.RGBA.
func (m *Machine) FramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    m.FramebufferRGBA(),
		Stride: DisplayWidth * 4,
		Rect:   image.Rect(0, 0, DisplayWidth, DisplayHeight),
	}
}

// SaveScreenshot encodes the current display as a PNG and writes it to filename.
func (m *Machine) SaveScreenshot(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, m.FramebufferImage())
}
