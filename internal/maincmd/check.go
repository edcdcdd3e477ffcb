package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/blikk-lang/blikk/lang/compiler"
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/stdlib"
)

// Check compiles each given file without running it, reporting every
// diagnostic. It exits non-zero if any file fails to compile.
func (c *Cmd) Check(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			failed = true
			continue
		}

		prog := program.New()
		comp := compiler.New(prog)
		if err := stdlib.Register(comp, stdio.Stdout); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			failed = true
			continue
		}

		if _, err := comp.Compile(src, path); err != nil {
			printDiagErr(stdio, err)
			failed = true
			continue
		}
		fmt.Fprintf(stdio.Stdout, "%s: ok\n", path)
	}
	if failed {
		return fmt.Errorf("check: one or more files failed to compile")
	}
	return nil
}
