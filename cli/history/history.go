/*
Package history contains the command showing the invocation journal.
*/
package history

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/UXDProtocol/anchor-comp/cli/options"
	"github.com/urfave/cli"
)

// NewCommands returns 'journal' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:      "journal",
		Usage:     "Show history of program invocations",
		UsageText: "anchor-comp journal [--limit <n>] [--signature <sig>] [--prune <keep>] [--config-path <dir> | --config-file <file>]",
		Description: `Prints invocations recorded by 'test' and 'call' commands, newest first.
   The journal is only persisted with BoltDB or LevelDB journal storage
   configured. With --prune all but the given number of latest records are
   removed.
`,
		Action: showJournal,
		Flags: append([]cli.Flag{
			cli.IntFlag{
				Name:  "limit, l",
				Value: 20,
				Usage: "number of records to show, 0 for all",
			},
			cli.StringFlag{
				Name:  "signature",
				Usage: "show the record of the given transaction only",
			},
			cli.IntFlag{
				Name:  "prune",
				Value: -1,
				Usage: "remove all records except the given number of latest ones",
			},
		}, options.ConfigFlags...),
	}}
}

func showJournal(ctx *cli.Context) error {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	j, closer, err := options.GetJournal(cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = closer() }()

	if keep := ctx.Int("prune"); keep >= 0 {
		n, err := j.Prune(keep)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		fmt.Fprintf(ctx.App.Writer, "Removed %d records\n", n)
		return nil
	}

	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TIME\tCLUSTER\tPROGRAM\tMETHOD\tSIGNATURE\tERROR\n")
	if sig := ctx.String("signature"); sig != "" {
		r, err := j.BySignature(sig)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Time.Format(time.RFC3339), r.Cluster, r.Program, r.Method, r.Signature, r.Error)
		return tw.Flush()
	}
	recs, err := j.List(ctx.Int("limit"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Time.Format(time.RFC3339), r.Cluster, r.Program, r.Method, r.Signature, r.Error)
	}
	return tw.Flush()
}
