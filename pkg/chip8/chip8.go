package chip8

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	RAMCapacity   = 0x1000
	EntryPoint    = 0x200
	RegisterCount = 0x10
	StackCapacity = 0x10
	DisplayWidth  = 0x40
	DisplayHeight = 0x20
)

// MaxProgramSize is the largest program image that fits between the
// entrypoint and the end of RAM (3584 bytes).
const MaxProgramSize = RAMCapacity - EntryPoint

const ramMask = RAMCapacity - 1

var (
	ErrImageTooLarge  = errors.New("program image too large for memory")
	ErrStackOverflow  = errors.New("call stack overflow")
	ErrStackUnderflow = errors.New("return with empty call stack")
)

// UnimplementedOpcodeError reports an instruction word whose opcode family
// the interpreter has no semantics for. It is fatal: there is no safe
// skip-and-continue fallback.
type UnimplementedOpcodeError struct {
	Opcode uint16
}

func (e UnimplementedOpcodeError) Error() string {
	return fmt.Sprintf("unimplemented instruction 0x%04X", e.Opcode)
}

// Keys is a snapshot of the 16-key hex keypad, indexed 0x0-0xF.
// true means the key is currently held. The front-end fills one snapshot
// per tick; the interpreter only ever reads it.
type Keys [RegisterCount]bool

// fontTable holds the 16 built-in 8x5 glyphs for the hex digits 0-F,
// 5 bytes per glyph, copied into RAM[0:0x50] on reset.
var fontTable = [0x50]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Machine holds the complete mutable VM state: RAM, registers, call stack,
// timers and the framebuffer. It is exclusively owned by whoever constructed
// it; Step is the only mutator.
type Machine struct {
	PC uint16
	I  uint16
	SP byte

	V     [RegisterCount]byte
	Stack [StackCapacity]uint16

	Delay byte
	Sound byte

	RAM [RAMCapacity]byte

	// Display cells carry the raw XOR accumulation of sprite row bytes.
	// Any nonzero cell is lit; the framebuffer export normalizes nonzero
	// cells to full white (see video.go).
	Display [DisplayHeight][DisplayWidth]uint32

	// Rand supplies the byte for the CXNN instruction.
	// If nil, math/rand is used.
	Rand func() byte
}

// NewMachine returns a reset machine: zeroed state, the font table copied
// into low RAM, and the program counter at the entrypoint.
func NewMachine() *Machine {
	m := &Machine{PC: EntryPoint}
	copy(m.RAM[:], fontTable[:])
	return m
}

// Load copies a program image into RAM starting at the entrypoint.
func (m *Machine) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return ErrImageTooLarge
	}
	copy(m.RAM[EntryPoint:], program)
	return nil
}

func (m *Machine) randByte() byte {
	if m.Rand != nil {
		return m.Rand()
	}
	return byte(rand.Intn(0x100))
}

// opcode fetches the 16-bit instruction word at PC, high byte first.
func (m *Machine) opcode() uint16 {
	return uint16(m.RAM[m.PC&ramMask])<<8 | uint16(m.RAM[(m.PC+1)&ramMask])
}

// Step fetches, decodes and executes a single instruction against the given
// keypad snapshot. Instructions that do not set PC themselves advance it by
// 2; skip instructions advance it by 4. The only "blocking" behavior is
// FX0A, which leaves PC in place so the same word is re-fetched next tick.
func (m *Machine) Step(keys Keys) error {
	op := m.opcode()
	x := byte(op >> 8 & 0x0F)
	y := byte(op >> 4 & 0x0F)
	nn := byte(op)
	nnn := op & 0x0FFF

	switch op & 0xF000 {
	case 0x0000:
		switch nn {
		case 0xE0:
			m.Display = [DisplayHeight][DisplayWidth]uint32{}
			m.PC += 2
		case 0xEE:
			if m.SP == 0 {
				return fmt.Errorf("0x%04X at pc 0x%04X: %w", op, m.PC, ErrStackUnderflow)
			}
			m.SP--
			m.PC = m.Stack[m.SP]
			m.PC += 2
		default:
			return UnimplementedOpcodeError{op}
		}

	case 0x1000:
		m.PC = nnn

	case 0x2000:
		if m.SP >= StackCapacity {
			return fmt.Errorf("0x%04X at pc 0x%04X: %w", op, m.PC, ErrStackOverflow)
		}
		m.Stack[m.SP] = m.PC
		m.SP++
		m.PC = nnn

	case 0x3000:
		if m.V[x] == nn {
			m.PC += 4
		} else {
			m.PC += 2
		}

	case 0x4000:
		if m.V[x] != nn {
			m.PC += 4
		} else {
			m.PC += 2
		}

	case 0x6000:
		m.V[x] = nn
		m.PC += 2

	case 0x7000:
		m.V[x] += nn
		m.PC += 2

	case 0x8000:
		switch op & 0x000F {
		case 0x0:
			m.V[x] = m.V[y]
			m.PC += 2
		default:
			// OR/AND/XOR/ADD/SUB/shift family.
			return UnimplementedOpcodeError{op}
		}

	case 0x9000:
		if m.V[x] != m.V[y] {
			m.PC += 4
		} else {
			m.PC += 2
		}

	case 0xA000:
		m.I = nnn
		m.PC += 2

	case 0xC000:
		m.V[x] = m.randByte() & nn
		m.PC += 2

	case 0xD000:
		m.drawSprite(m.V[x], m.V[y], byte(op&0x000F))
		m.PC += 2

	case 0xE000:
		switch nn {
		case 0x9E:
			if keys[m.V[x]&0x0F] {
				m.PC += 4
			} else {
				m.PC += 2
			}
		case 0xA1:
			if !keys[m.V[x]&0x0F] {
				m.PC += 4
			} else {
				m.PC += 2
			}
		default:
			return UnimplementedOpcodeError{op}
		}

	case 0xF000:
		switch nn {
		case 0x07:
			m.V[x] = m.Delay
			m.PC += 2
		case 0x0A:
			// Block for a key: scan ascending, latch the first held key.
			// With nothing held PC stays put and the instruction is
			// retried on the next tick.
			for i := 0; i < RegisterCount; i++ {
				if keys[i] {
					m.V[x] = byte(i)
					m.PC += 2
					break
				}
			}
		case 0x15:
			m.Delay = m.V[x]
			m.PC += 2
		case 0x1E:
			m.I += uint16(m.V[x])
			m.PC += 2
		case 0x29:
			m.I = uint16(m.V[x]) * 5
			m.PC += 2
		case 0x33:
			m.RAM[m.I&ramMask] = m.V[x] / 100
			m.RAM[(m.I+1)&ramMask] = m.V[x] / 10 % 10
			m.RAM[(m.I+2)&ramMask] = m.V[x] % 10
			m.PC += 2
		case 0x55:
			for i := byte(0); i <= x; i++ {
				m.RAM[(m.I+uint16(i))&ramMask] = m.V[i]
			}
			m.I += uint16(x) + 1
			m.PC += 2
		case 0x65:
			for i := byte(0); i <= x; i++ {
				m.V[i] = m.RAM[(m.I+uint16(i))&ramMask]
			}
			m.I += uint16(x) + 1
			m.PC += 2
		default:
			// FX18 (sound timer) and anything undecodable.
			return UnimplementedOpcodeError{op}
		}

	default:
		// 5XY0, BNNN.
		return UnimplementedOpcodeError{op}
	}

	return nil
}

// drawSprite XORs height sprite row bytes from RAM[I:] into the framebuffer
// at (x, y), MSB leftmost, and sets V[0xF] when any lit cell is hit.
// Each set bit XORs the whole row byte into the cell, so a cell only returns
// to zero when the exact accumulated value cancels; partial overlaps of
// different sprites leave the cell lit. Pixels falling outside the grid are
// clipped.
func (m *Machine) drawSprite(x, y, height byte) {
	m.V[0xF] = 0
	for i := byte(0); i < height; i++ {
		row := m.RAM[(m.I+uint16(i))&ramMask]
		py := int(y) + int(i)
		if py >= DisplayHeight {
			continue
		}
		for j := 0; j < 8; j++ {
			if row&(0x80>>j) == 0 {
				continue
			}
			px := int(x) + j
			if px >= DisplayWidth {
				continue
			}
			cell := &m.Display[py][px]
			if *cell != 0 {
				m.V[0xF] = 1
			}
			*cell ^= uint32(row)
		}
	}
}

// RunCycles executes up to n instructions against a fixed keypad snapshot,
// stopping at the first fault. Used by the headless runner and tests.
func (m *Machine) RunCycles(n int, keys Keys) error {
	for i := 0; i < n; i++ {
		if err := m.Step(keys); err != nil {
			return err
		}
	}
	return nil
}
