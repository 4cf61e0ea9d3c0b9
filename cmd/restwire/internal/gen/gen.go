// Package gen implements the restwire gen command.
package gen

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/broady/restwire/internal/directive"
	codegen "github.com/broady/restwire/internal/gen"
)

type Cmd struct {
	Package string `arg:"" optional:"" help:"Package to scan (default: current directory)." default:"."`
	Check   bool   `help:"Fail if generated files are out of date instead of writing them."`

	Out io.Writer `kong:"-"`
}

func (c *Cmd) Run() error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}

	// Directories are loaded from inside their own module.
	var result *directive.Result
	var err error
	if info, statErr := os.Stat(c.Package); statErr == nil && info.IsDir() {
		result, err = directive.ParseDir(".", c.Package)
	} else {
		result, err = directive.Parse(c.Package)
	}
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if len(result.Files) == 0 {
		fmt.Fprintf(out, "no //restwire:endpoint interfaces in %s\n", result.PackagePath)
		return nil
	}

	written, err := codegen.Run(context.Background(), result, &codegen.DirSink{Dir: result.Dir, Check: c.Check})
	for _, name := range written {
		if c.Check {
			fmt.Fprintf(out, "✓ %s is up to date\n", name)
		} else {
			fmt.Fprintf(out, "✓ wrote %s\n", name)
		}
	}
	return err
}
