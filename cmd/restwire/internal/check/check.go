// Package check implements the restwire check command.
package check

import (
	"fmt"
	"io"
	"os"

	"github.com/broady/restwire"
)

type Cmd struct {
	Config string `help:"YAML configuration file." short:"c" required:"" type:"existingfile"`

	Out io.Writer `kong:"-"`
}

func (c *Cmd) Run() error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}

	cfg, err := restwire.LoadConfig(c.Config)
	if err != nil {
		return err
	}

	clients := restwire.NewClientDirectory(nil)
	defer clients.Close()
	reg := restwire.NewRegistry().
		WithEndpoints(restwire.NewEndpointDirectory()).
		WithClients(clients)
	if err := reg.ApplyConfig(cfg); err != nil {
		return err
	}

	failed := 0
	for _, def := range reg.Definitions() {
		desc, err := def.Descriptor()
		if err != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", def.ID(), err)
			continue
		}
		fmt.Fprintf(out, "✓ %s %s (%s, %d methods)\n", def.ID(), desc, def.Builder(), len(def.Methods()))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d endpoints invalid", failed, len(reg.Definitions()))
	}
	return nil
}
