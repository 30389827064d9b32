package asm

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gochip8/pkg/chip8"
)

func TestAssembleBasic(t *testing.T) {
	rom, err := Assemble(`
		LD V0, 5
		ADD V0, 3
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{0x60, 0x05, 0x70, 0x03}
	if diff := cmp.Diff(want, rom); diff != "" {
		t.Errorf("rom: (-want, +got)\n%s", diff)
	}
}

func TestEncodings(t *testing.T) {
	tests := []struct {
		src  string
		want uint16
	}{
		{"CLS", 0x00E0},
		{"RET", 0x00EE},
		{"JP 0x234", 0x1234},
		{"CALL 0x345", 0x2345},
		{"SE V1, 0x42", 0x3142},
		{"SNE V1, 0x42", 0x4142},
		{"SNE V1, V2", 0x9120},
		{"LD V7, 0xFF", 0x67FF},
		{"ADD V7, 1", 0x7701},
		{"LD V3, V4", 0x8340},
		{"LD I, 0x2E8", 0xA2E8},
		{"RND V5, 0x0F", 0xC50F},
		{"DRW V1, V2, 5", 0xD125},
		{"SKP VA", 0xEA9E},
		{"SKNP VA", 0xEAA1},
		{"LD V6, DT", 0xF607},
		{"LD V6, K", 0xF60A},
		{"LD DT, V6", 0xF615},
		{"ADD I, V6", 0xF61E},
		{"LD F, V6", 0xF629},
		{"LD B, V6", 0xF633},
		{"LD [I], V6", 0xF655},
		{"LD V6, [I]", 0xF665},
	}

	for _, tc := range tests {
		rom, err := Assemble(tc.src)
		if err != nil {
			t.Errorf("%s: %v", tc.src, err)
			continue
		}
		if len(rom) != 2 {
			t.Errorf("%s: expected one word, got %d bytes", tc.src, len(rom))
			continue
		}
		got := uint16(rom[0])<<8 | uint16(rom[1])
		if got != tc.want {
			t.Errorf("%s: expected 0x%04X, got 0x%04X", tc.src, tc.want, got)
		}
	}
}

func TestLabelsAndComments(t *testing.T) {
	rom, err := Assemble(`
		; skip over the data
start:	JP main          // entry
main:	LD I, sprite
		DRW V0, V1, 2
spin:	JP spin
sprite:	.byte 0xF0, 0x90
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// start=0x200, main=0x202, spin=0x206, sprite=0x208.
	want := []byte{
		0x12, 0x02, // JP main
		0xA2, 0x08, // LD I, sprite
		0xD0, 0x12, // DRW V0, V1, 2
		0x12, 0x06, // JP spin
		0xF0, 0x90, // sprite bytes
	}
	if diff := cmp.Diff(want, rom); diff != "" {
		t.Errorf("rom: (-want, +got)\n%s", diff)
	}
}

func TestOrgPadding(t *testing.T) {
	rom, err := Assemble(`
		JP main
		.org 0x300
main:	CLS
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(rom) != 0x102 {
		t.Fatalf("expected 0x102 bytes, got 0x%X", len(rom))
	}
	if rom[0] != 0x13 || rom[1] != 0x00 {
		t.Errorf("JP main: expected 0x1300, got 0x%02X%02X", rom[0], rom[1])
	}
	if rom[0x100] != 0x00 || rom[0x101] != 0xE0 {
		t.Errorf("CLS at 0x300: got 0x%02X%02X", rom[0x100], rom[0x101])
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown mnemonic", "FROB V0", "unknown instruction"},
		{"duplicate label", "a: CLS\na: CLS", "duplicate label"},
		{"undefined label", "JP nowhere", "undefined label"},
		{"register SE unsupported", "SE V0, V1", "not supported"},
		{"register ADD unsupported", "ADD V0, V1", "not supported"},
		{"byte out of range", "LD V0, 0x100", "out of range"},
		{"address out of range", "JP 0x1000", "out of range"},
		{"sprite too tall", "DRW V0, V1, 16", "out of range"},
		{"org backward", ".org 0x300\n.org 0x200", "backward"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(tc.src)
			if err == nil {
				t.Fatalf("expected error, got none")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

// TestAssembledProgramRuns feeds assembler output straight into the
// interpreter and checks the resulting machine state.
func TestAssembledProgramRuns(t *testing.T) {
	rom, err := Assemble(`
		LD V0, 156
		LD I, 0x300
		LD B, V0      ; decimal digits of 156
		LD V1, 8
		LD V2, 4
		LD F, V1      ; glyph for 8
		DRW V1, V2, 5
spin:	JP spin
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	m := chip8.NewMachine()
	if err := m.Load(rom); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := m.RunCycles(20, chip8.Keys{}); err != nil {
		t.Fatalf("RunCycles: %v", err)
	}

	if m.RAM[0x300] != 1 || m.RAM[0x301] != 5 || m.RAM[0x302] != 6 {
		t.Errorf("BCD: expected 1,5,6, got %d,%d,%d",
			m.RAM[0x300], m.RAM[0x301], m.RAM[0x302])
	}
	if m.I != uint16(8)*5 {
		t.Errorf("LD F: expected I=%d, got %d", 8*5, m.I)
	}
	if m.Display[4][8] == 0 {
		t.Errorf("DRW: expected cell (4,8) lit")
	}
	// The spin loop pins PC on itself.
	if m.PC != chip8.EntryPoint+14 {
		t.Errorf("spin: expected PC=0x%04X, got 0x%04X", chip8.EntryPoint+14, m.PC)
	}
}
