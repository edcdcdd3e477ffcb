package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/blikk-lang/blikk/lang/compiler"
	"github.com/blikk-lang/blikk/lang/diag"
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/stdlib"
	"github.com/blikk-lang/blikk/lang/vm"
)

// Run compiles and executes each given source file in its own Program,
// stopping at the first file that fails to compile or that traps at
// runtime.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	for _, path := range args {
		if err := runFile(stdio, path, cfg); err != nil {
			return err
		}
	}
	return nil
}

func runFile(stdio mainer.Stdio, path string, cfg runtimeConfig) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	prog := program.New()
	comp := compiler.New(prog)
	if err := stdlib.Register(comp, stdio.Stdout); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	if _, err := comp.Compile(src, path); err != nil {
		printDiagErr(stdio, err)
		return err
	}

	m := vm.New(prog)
	if err := m.Run(vm.RunFlags{MaxSteps: cfg.MaxSteps}); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return nil
}

// printDiagErr prints every diagnostic carried by err (sorted into source
// order), falling back to a plain error line if err isn't a *diag.Error.
func printDiagErr(stdio mainer.Stdio, err error) {
	var de *diag.Error
	if !errors.As(err, &de) {
		fmt.Fprintln(stdio.Stderr, err)
		return
	}
	for _, sub := range de.Unwrap() {
		fmt.Fprintln(stdio.Stderr, sub)
	}
}
