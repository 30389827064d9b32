//go:build !js

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"gochip8/pkg/asm"
	"gochip8/pkg/chip8"
)

func main() {
	inPath := flag.String("in", "", "input assembly file path")
	outPath := flag.String("out", "", "output rom file path (default: input with .ch8 extension)")
	runBinPath := flag.String("run-bin", "", "run an existing rom headlessly")
	cycles := flag.Int("cycles", 1000, "instructions to execute with -run-bin")
	screenshot := flag.String("screenshot", "", "write the final framebuffer as a PNG after -run-bin")
	flag.Parse()

	if *inPath == "" && *runBinPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: use -in to assemble and/or -run-bin to run a rom")
		os.Exit(2)
	}

	romPath := *runBinPath

	if *inPath != "" {
		source, err := os.ReadFile(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
			os.Exit(1)
		}

		rom, err := asm.Assemble(string(source))
		if err != nil {
			fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
			os.Exit(1)
		}

		target := *outPath
		if target == "" {
			target = strings.TrimSuffix(*inPath, filepath.Ext(*inPath)) + ".ch8"
		}
		if err := os.WriteFile(target, rom, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write rom %q: %v\n", target, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %d bytes to %s\n", len(rom), target)
	}

	if romPath == "" {
		return
	}

	rom, err := readROM(romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read rom: %v\n", err)
		os.Exit(1)
	}

	vm := chip8.NewMachine()
	if err := vm.Load(rom); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load rom: %v\n", err)
		os.Exit(1)
	}

	// Headless run: no keys are ever held, so key-wait stalls simply burn
	// the remaining cycle budget.
	if err := vm.RunCycles(*cycles, chip8.Keys{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *screenshot != "" {
		if err := vm.SaveScreenshot(*screenshot); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write screenshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote screenshot to %s\n", *screenshot)
	}
}

// readROM reads the whole program image, treating a short read as fatal.
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
