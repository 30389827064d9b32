// Package asm is a small two-pass assembler for the CHIP-8 instruction set.
// It covers exactly the opcode families the interpreter implements; asking
// for anything else (register-register SE, the ALU family, BNNN) is an
// assembly-time error rather than a runtime fault.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gochip8/pkg/chip8"
)

type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

// Assemble translates source text into a raw program image. Label addresses
// are absolute: the image is assumed to be loaded at the machine entrypoint.
func Assemble(code string) ([]byte, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	address := uint32(chip8.EntryPoint)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			if address > 0x0FFF {
				return fmt.Errorf("label '%s' on line %d points past addressable memory", lbl, lineNo)
			}
			a.labels[key] = uint16(address)
		}

		if p.mnemonic == "" {
			continue
		}

		if p.mnemonic == ".ORG" {
			target, err := parseOrg(p)
			if err != nil {
				return err
			}
			if uint32(target) < address {
				return fmt.Errorf("cannot move origin backward on line %d", p.lineNo)
			}
			address = uint32(target)
			continue
		}

		length, err := lineLength(p)
		if err != nil {
			return err
		}
		if address+length > chip8.RAMCapacity {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += length
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]byte, error) {
	program := make([]byte, 0)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		switch p.mnemonic {
		case ".ORG":
			target, err := parseOrg(p)
			if err != nil {
				return nil, err
			}
			padding := int(target) - chip8.EntryPoint - len(program)
			if padding < 0 {
				return nil, fmt.Errorf("cannot move origin backward on line %d", lineNo)
			}
			program = append(program, make([]byte, padding)...)

		case ".BYTE":
			if len(p.operands) == 0 {
				return nil, fmt.Errorf(".BYTE expects at least one operand on line %d", lineNo)
			}
			for _, tok := range p.operands {
				val, err := a.parseImmediate(tok, lineNo)
				if err != nil {
					return nil, err
				}
				if val > 0xFF {
					return nil, fmt.Errorf(".BYTE value out of range on line %d: %s", lineNo, tok)
				}
				program = append(program, byte(val))
			}

		default:
			word, err := a.encode(p)
			if err != nil {
				return nil, err
			}
			// Instruction words are stored big-endian: high byte first.
			program = append(program, byte(word>>8), byte(word))
		}
	}

	return program, nil
}

// encode turns one parsed instruction line into its 16-bit instruction word.
func (a *Assembler) encode(p parsedLine) (uint16, error) {
	ops := p.operands

	expect := func(n int) error {
		if len(ops) != n {
			return fmt.Errorf("%s expects %d operand(s) on line %d", p.mnemonic, n, p.lineNo)
		}
		return nil
	}

	switch p.mnemonic {
	case "CLS":
		if err := expect(0); err != nil {
			return 0, err
		}
		return 0x00E0, nil

	case "RET":
		if err := expect(0); err != nil {
			return 0, err
		}
		return 0x00EE, nil

	case "JP":
		if err := expect(1); err != nil {
			return 0, err
		}
		addr, err := a.parseAddress(ops[0], p.lineNo)
		if err != nil {
			return 0, err
		}
		return 0x1000 | addr, nil

	case "CALL":
		if err := expect(1); err != nil {
			return 0, err
		}
		addr, err := a.parseAddress(ops[0], p.lineNo)
		if err != nil {
			return 0, err
		}
		return 0x2000 | addr, nil

	case "SE":
		if err := expect(2); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], p.lineNo)
		if err != nil {
			return 0, err
		}
		if _, isReg := registerIndex(ops[1]); isReg {
			return 0, fmt.Errorf("SE Vx, Vy is not supported by the interpreter (line %d)", p.lineNo)
		}
		nn, err := a.parseByte(ops[1], p.lineNo)
		if err != nil {
			return 0, err
		}
		return 0x3000 | uint16(x)<<8 | uint16(nn), nil

	case "SNE":
		if err := expect(2); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], p.lineNo)
		if err != nil {
			return 0, err
		}
		if y, isReg := registerIndex(ops[1]); isReg {
			return 0x9000 | uint16(x)<<8 | uint16(y)<<4, nil
		}
		nn, err := a.parseByte(ops[1], p.lineNo)
		if err != nil {
			return 0, err
		}
		return 0x4000 | uint16(x)<<8 | uint16(nn), nil

	case "LD":
		if err := expect(2); err != nil {
			return 0, err
		}
		return a.encodeLoad(ops[0], ops[1], p.lineNo)

	case "ADD":
		if err := expect(2); err != nil {
			return 0, err
		}
		if strings.EqualFold(ops[0], "I") {
			x, err := parseRegister(ops[1], p.lineNo)
			if err != nil {
				return 0, err
			}
			return 0xF01E | uint16(x)<<8, nil
		}
		x, err := parseRegister(ops[0], p.lineNo)
		if err != nil {
			return 0, err
		}
		if _, isReg := registerIndex(ops[1]); isReg {
			return 0, fmt.Errorf("ADD Vx, Vy is not supported by the interpreter (line %d)", p.lineNo)
		}
		nn, err := a.parseByte(ops[1], p.lineNo)
		if err != nil {
			return 0, err
		}
		return 0x7000 | uint16(x)<<8 | uint16(nn), nil

	case "RND":
		if err := expect(2); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], p.lineNo)
		if err != nil {
			return 0, err
		}
		nn, err := a.parseByte(ops[1], p.lineNo)
		if err != nil {
			return 0, err
		}
		return 0xC000 | uint16(x)<<8 | uint16(nn), nil

	case "DRW":
		if err := expect(3); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], p.lineNo)
		if err != nil {
			return 0, err
		}
		y, err := parseRegister(ops[1], p.lineNo)
		if err != nil {
			return 0, err
		}
		n, err := a.parseByte(ops[2], p.lineNo)
		if err != nil {
			return 0, err
		}
		if n > 0x0F {
			return 0, fmt.Errorf("sprite height out of range on line %d: %s", p.lineNo, ops[2])
		}
		return 0xD000 | uint16(x)<<8 | uint16(y)<<4 | uint16(n), nil

	case "SKP":
		if err := expect(1); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], p.lineNo)
		if err != nil {
			return 0, err
		}
		return 0xE09E | uint16(x)<<8, nil

	case "SKNP":
		if err := expect(1); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], p.lineNo)
		if err != nil {
			return 0, err
		}
		return 0xE0A1 | uint16(x)<<8, nil
	}

	return 0, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
}

// encodeLoad handles the LD family, which dispatches on both operand shapes.
func (a *Assembler) encodeLoad(dst, src string, lineNo int) (uint16, error) {
	if x, isReg := registerIndex(dst); isReg {
		if y, isReg := registerIndex(src); isReg {
			return 0x8000 | uint16(x)<<8 | uint16(y)<<4, nil
		}
		switch strings.ToUpper(src) {
		case "DT":
			return 0xF007 | uint16(x)<<8, nil
		case "K":
			return 0xF00A | uint16(x)<<8, nil
		case "[I]":
			return 0xF065 | uint16(x)<<8, nil
		}
		nn, err := a.parseByte(src, lineNo)
		if err != nil {
			return 0, err
		}
		return 0x6000 | uint16(x)<<8 | uint16(nn), nil
	}

	switch strings.ToUpper(dst) {
	case "I":
		addr, err := a.parseAddress(src, lineNo)
		if err != nil {
			return 0, err
		}
		return 0xA000 | addr, nil
	case "DT":
		x, err := parseRegister(src, lineNo)
		if err != nil {
			return 0, err
		}
		return 0xF015 | uint16(x)<<8, nil
	case "F":
		x, err := parseRegister(src, lineNo)
		if err != nil {
			return 0, err
		}
		return 0xF029 | uint16(x)<<8, nil
	case "B":
		x, err := parseRegister(src, lineNo)
		if err != nil {
			return 0, err
		}
		return 0xF033 | uint16(x)<<8, nil
	case "[I]":
		x, err := parseRegister(src, lineNo)
		if err != nil {
			return 0, err
		}
		return 0xF055 | uint16(x)<<8, nil
	}

	return 0, fmt.Errorf("invalid LD operands on line %d: %s, %s", lineNo, dst, src)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(raw)
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if beforeColon == "" {
			return p, fmt.Errorf("invalid label on line %d", lineNo)
		}

		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	line = stripComments(line)
	line = strings.ReplaceAll(line, ",", " ")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

// lineLength returns the number of bytes a parsed line contributes.
func lineLength(p parsedLine) (uint32, error) {
	switch p.mnemonic {
	case ".ORG":
		return 0, nil
	case ".BYTE":
		if len(p.operands) == 0 {
			return 0, fmt.Errorf(".BYTE expects at least one operand on line %d", p.lineNo)
		}
		return uint32(len(p.operands)), nil
	default:
		// Every CHIP-8 instruction is one 2-byte word.
		return 2, nil
	}
}

func parseOrg(p parsedLine) (uint16, error) {
	if len(p.operands) != 1 {
		return 0, fmt.Errorf(".ORG expects exactly one operand on line %d", p.lineNo)
	}
	target, err := strconv.ParseUint(p.operands[0], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid .ORG value on line %d: %s", p.lineNo, p.operands[0])
	}
	if target < chip8.EntryPoint || target > 0x0FFF {
		return 0, fmt.Errorf(".ORG out of range on line %d: %s", p.lineNo, p.operands[0])
	}
	return uint16(target), nil
}

// registerIndex reports whether token names a register V0-VF.
func registerIndex(token string) (byte, bool) {
	token = strings.ToUpper(token)
	if len(token) != 2 || token[0] != 'V' {
		return 0, false
	}
	idx, err := strconv.ParseUint(token[1:], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(idx), true
}

func parseRegister(token string, lineNo int) (byte, error) {
	if idx, ok := registerIndex(token); ok {
		return idx, nil
	}
	return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
}

func (a *Assembler) parseImmediate(token string, lineNo int) (uint16, error) {
	if value, err := strconv.ParseUint(token, 0, 32); err == nil {
		if value > 0xFFFF {
			return 0, fmt.Errorf("immediate out of range on line %d: %s", lineNo, token)
		}
		return uint16(value), nil
	}

	label := normalizeLabel(token)
	if addr, ok := a.labels[label]; ok {
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

func (a *Assembler) parseByte(token string, lineNo int) (byte, error) {
	val, err := a.parseImmediate(token, lineNo)
	if err != nil {
		return 0, err
	}
	if val > 0xFF {
		return 0, fmt.Errorf("byte immediate out of range on line %d: %s", lineNo, token)
	}
	return byte(val), nil
}

func (a *Assembler) parseAddress(token string, lineNo int) (uint16, error) {
	val, err := a.parseImmediate(token, lineNo)
	if err != nil {
		return 0, err
	}
	if val > 0x0FFF {
		return 0, fmt.Errorf("address out of range on line %d: %s", lineNo, token)
	}
	return val, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
