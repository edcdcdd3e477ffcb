package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/blikk-lang/blikk/lang/lexer"
	"github.com/blikk-lang/blikk/lang/program"
)

// Tokenize runs the lexer over each given file and prints its tokens, one
// per line, as "line:col  KIND  raw".
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			failed = true
			continue
		}

		prog := program.New()
		tf, err := lexer.Scan(prog, path, src)
		if tf != nil {
			for _, tok := range tf.Tokens {
				line, col := tok.Value.Pos.LineCol()
				fmt.Fprintf(stdio.Stdout, "%d:%d\t%s\t%s\n", line, col, tok.Kind, tok.Value.Raw)
			}
		}
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("tokenize: one or more files failed to scan")
	}
	return nil
}
