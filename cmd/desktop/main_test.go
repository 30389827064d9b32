package main

import (
	"os"
	"path/filepath"
	"testing"

	"gochip8/pkg/chip8"
)

func TestGameWiring(t *testing.T) {
	// Wire the machine exactly as main does and drive it directly.
	vm := chip8.NewMachine()
	if err := vm.Load([]byte{0x60, 0x2A}); err != nil { // LD V0, 42
		t.Fatalf("Load: %v", err)
	}

	game := &Game{vm: vm, cycles: 1}

	w, h := game.Layout(1024, 768)
	if w != windowWidth || h != windowHeight {
		t.Errorf("Layout: expected %dx%d, got %dx%d", windowWidth, windowHeight, w, h)
	}

	if err := vm.Step(chip8.Keys{}); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if vm.V[0] != 42 {
		t.Errorf("expected V0=42, got %d", vm.V[0])
	}
}

func TestReadROM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.ch8")
	want := []byte{0x12, 0x00}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rom, err := readROM(path)
	if err != nil {
		t.Fatalf("readROM: %v", err)
	}
	if len(rom) != len(want) || rom[0] != want[0] || rom[1] != want[1] {
		t.Errorf("readROM: expected %v, got %v", want, rom)
	}

	if _, err := readROM(filepath.Join(t.TempDir(), "missing.ch8")); err == nil {
		t.Errorf("readROM: expected error for missing file")
	}
}
