package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/broady/restwire/cmd/restwire/internal/call"
	"github.com/broady/restwire/cmd/restwire/internal/check"
	"github.com/broady/restwire/cmd/restwire/internal/gen"
)

type CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Check   check.Cmd  `cmd:"" help:"Validate the endpoints declared in a configuration file."`
	Call    call.Cmd   `cmd:"" help:"Invoke a configured endpoint method and print the result."`
	Gen     gen.Cmd    `cmd:"" help:"Generate typed proxies for //restwire: annotated interfaces."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("restwire"),
		kong.Description("Declarative HTTP client tooling."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
