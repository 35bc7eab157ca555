package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/UXDProtocol/anchor-comp/cli/history"
	"github.com/UXDProtocol/anchor-comp/cli/inspect"
	"github.com/UXDProtocol/anchor-comp/cli/invoke"
	"github.com/UXDProtocol/anchor-comp/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "anchor-comp\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates an anchor-comp instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "anchor-comp"
	ctl.Version = config.Version
	ctl.Usage = "Go client and integration runner for the AnchorMangov3 workspace"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, invoke.NewCommands()...)
	ctl.Commands = append(ctl.Commands, invoke.NewRunCommand())
	ctl.Commands = append(ctl.Commands, inspect.NewCommands()...)
	ctl.Commands = append(ctl.Commands, history.NewCommands()...)
	return ctl
}
