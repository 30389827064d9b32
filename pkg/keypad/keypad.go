// Package keypad maps the host keyboard onto the 16-key hex keypad.
package keypad

import (
	"github.com/hajimehoshi/ebiten/v2"

	"gochip8/pkg/chip8"
)

// Layout maps host keys onto the 4x4 hex keypad using the conventional
// QWERTY cluster:
//
//	1 2 3 4        1 2 3 C
//	Q W E R   ->   4 5 6 D
//	A S D F        7 8 9 E
//	Z X C V        A 0 B F
var Layout = map[ebiten.Key]byte{
	ebiten.KeyDigit1: 0x1,
	ebiten.KeyDigit2: 0x2,
	ebiten.KeyDigit3: 0x3,
	ebiten.KeyDigit4: 0xC,
	ebiten.KeyQ:      0x4,
	ebiten.KeyW:      0x5,
	ebiten.KeyE:      0x6,
	ebiten.KeyR:      0xD,
	ebiten.KeyA:      0x7,
	ebiten.KeyS:      0x8,
	ebiten.KeyD:      0x9,
	ebiten.KeyF:      0xE,
	ebiten.KeyZ:      0xA,
	ebiten.KeyX:      0x0,
	ebiten.KeyC:      0xB,
	ebiten.KeyV:      0xF,
}

// Snapshot reads the current held state of every mapped key into a fresh
// keypad vector. Call once per tick, before stepping the interpreter.
func Snapshot() chip8.Keys {
	var keys chip8.Keys
	for hostKey, pad := range Layout {
		if ebiten.IsKeyPressed(hostKey) {
			keys[pad] = true
		}
	}
	return keys
}
