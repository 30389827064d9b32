package main

import (
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"

	"gochip8/pkg/chip8"
	"gochip8/pkg/keypad"
)

const (
	windowWidth  = 640
	windowHeight = 320
)

type Game struct {
	vm       *chip8.Machine
	frameImg *ebiten.Image // reused 64x32 monochrome canvas
	cycles   int
	debug    bool
}

func (g *Game) Update() error {
	// One keypad snapshot per tick: every instruction run this frame sees
	// the same held-key state.
	keys := keypad.Snapshot()

	for i := 0; i < g.cycles; i++ {
		if err := g.vm.Step(keys); err != nil {
			return err
		}
	}

	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.frameImg == nil {
		g.frameImg = ebiten.NewImage(chip8.DisplayWidth, chip8.DisplayHeight)
	}
	g.frameImg.WritePixels(g.vm.FramebufferRGBA())

	// Scale the 64x32 grid to fill the 640x320 logical screen.
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(windowWidth/chip8.DisplayWidth, windowHeight/chip8.DisplayHeight)
	screen.DrawImage(g.frameImg, op)

	if g.debug {
		msg := fmt.Sprintf("TPS %.0f  PC 0x%04X  I 0x%03X", ebiten.ActualTPS(), g.vm.PC, g.vm.I)
		text.Draw(screen, msg, basicfont.Face7x13, 4, 14, color.RGBA{0x00, 0xFF, 0x00, 0xFF})
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return windowWidth, windowHeight
}

// readROM reads the whole program image. A short read is fatal: there is no
// sense running half a program.
func readROM(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open rom")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat rom")
	}

	rom := make([]byte, info.Size())
	if _, err := io.ReadFull(f, rom); err != nil {
		return nil, errors.Wrapf(err, "read rom %q", path)
	}
	return rom, nil
}

func main() {
	cycles := flag.Int("cycles", 1, "instructions executed per rendered frame")
	debug := flag.Bool("debug", false, "draw the TPS/PC overlay")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <rom>\n", os.Args[0])
		os.Exit(1)
	}

	rom, err := readROM(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read rom: %v", err)
	}

	vm := chip8.NewMachine()
	if err := vm.Load(rom); err != nil {
		log.Fatalf("Failed to load rom: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowTitle("Chip 8 Emulator")

	game := &Game{vm: vm, cycles: *cycles, debug: *debug}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
