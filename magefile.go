//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

func Build() error {
	mg.Deps(BuildDecoder, BuildRebinner)
	fmt.Println("Compilation finished")
	return nil
}

// cgoCommand runs the go tool with the HDF5 cgo flags of the environment.
func cgoCommand(args ...string) *exec.Cmd {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func BuildDecoder() error {
	fmt.Println("Building decoder executable...")
	return cgoCommand("build", "-o", "./bin/decoder", "./decoder").Run()
}

func BuildRebinner() error {
	fmt.Println("Building rebinner executable...")
	return cgoCommand("build", "-o", "./bin/rebinner", "./rebinner").Run()
}

// Test runs the unit tests of every package that does not need HDF5.
func Test() error {
	fmt.Println("Running tests...")
	return cgoCommand("test", "./pkg", "./pkg/rebin", "./pkg/config", "./pkg/logging", "./rebinner").Run()
}
