package keypad

import "testing"

func TestLayoutCoversKeypad(t *testing.T) {
	if len(Layout) != 16 {
		t.Fatalf("expected 16 mapped keys, got %d", len(Layout))
	}

	seen := make(map[byte]bool)
	for hostKey, pad := range Layout {
		if pad > 0xF {
			t.Errorf("%v maps outside the keypad: 0x%X", hostKey, pad)
		}
		if seen[pad] {
			t.Errorf("keypad slot 0x%X mapped twice", pad)
		}
		seen[pad] = true
	}
	for pad := byte(0); pad <= 0xF; pad++ {
		if !seen[pad] {
			t.Errorf("keypad slot 0x%X unmapped", pad)
		}
	}
}
