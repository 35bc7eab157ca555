/*
Package inspect contains offline commands showing workspace contents.
*/
package inspect

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/UXDProtocol/anchor-comp/cli/options"
	"github.com/UXDProtocol/anchor-comp/pkg/idl"
	"github.com/UXDProtocol/anchor-comp/pkg/workspace"
	"github.com/davecgh/go-spew/spew"
	json "github.com/nspcc-dev/go-ordered-json"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var errNoProgram = errors.New("program name is required")

// NewCommands returns 'programs' and 'idl' commands.
func NewCommands() []cli.Command {
	wsFlags := append([]cli.Flag{options.Workspace, options.Cluster}, options.ConfigFlags...)
	return []cli.Command{{
		Name:      "programs",
		Usage:     "List workspace programs for the cluster",
		UsageText: "anchor-comp programs [--workspace <dir>] [--cluster <name>]",
		Action:    listPrograms,
		Flags:     wsFlags,
	}, {
		Name:  "idl",
		Usage: "Inspect program IDLs",
		Subcommands: []cli.Command{{
			Name:      "show",
			Usage:     "Print the IDL of a workspace program",
			UsageText: "anchor-comp idl show [--dump] [--workspace <dir>] <program>",
			Action:    showIDL,
			Flags: append([]cli.Flag{cli.BoolFlag{
				Name:  "dump",
				Usage: "print parsed Go structures instead of JSON",
			}}, wsFlags...),
		}, {
			Name:      "errors",
			Usage:     "List program and Anchor framework errors",
			UsageText: "anchor-comp idl errors [--workspace <dir>] <program>",
			Action:    showErrors,
			Flags:     wsFlags,
		}, {
			Name:      "diff",
			Usage:     "Compare the IDL of a workspace program with an IDL file",
			UsageText: "anchor-comp idl diff [--workspace <dir>] <program> <file>",
			Description: `Prints unified diff of the normalized IDLs, the command fails if
   they differ. Useful to check a deployed IDL fetched with 'anchor idl fetch'
   against the one built in the workspace.
`,
			Action: diffIDL,
			Flags:  wsFlags,
		}},
	}}
}

func openWorkspace(ctx *cli.Context) (*workspace.Workspace, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := options.ApplyFlags(ctx, &cfg); err != nil {
		return nil, err
	}
	return workspace.Find(cfg.ApplicationConfiguration.Workspace.Path, workspace.Options{
		Cluster: cfg.ProviderConfiguration.Cluster,
		IDLPath: cfg.ApplicationConfiguration.Workspace.IDLPath,
		Logger:  zap.NewNop(),
	})
}

func listPrograms(ctx *cli.Context) error {
	ws, err := openWorkspace(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	names, err := ws.Names()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PROGRAM\tID\tMETHODS\n")
	for _, n := range names {
		entry, err := ws.Program(n)
		if err == nil {
			methods := make([]string, 0, len(entry.IDL.Instructions))
			for _, ins := range entry.IDL.Instructions {
				methods = append(methods, idl.CamelCase(ins.Name))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Name, entry.ID, strings.Join(methods, ","))
			continue
		}
		if !errors.Is(err, workspace.ErrProgramNotFound) {
			return cli.NewExitError(err, 1)
		}
		// External programs have no IDL in the workspace.
		id, err := ws.External(n)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		fmt.Fprintf(tw, "%s\t%s\t-\n", n, id)
	}
	return tw.Flush()
}

func loadEntry(ctx *cli.Context) (*workspace.Entry, error) {
	if ctx.NArg() != 1 {
		return nil, errNoProgram
	}
	ws, err := openWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Program(ctx.Args().First())
}

func showIDL(ctx *cli.Context) error {
	entry, err := loadEntry(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if ctx.Bool("dump") {
		spew.Fdump(ctx.App.Writer, entry)
		return nil
	}
	b, err := json.MarshalIndent(entry.IDL, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(b))
	return nil
}

func diffIDL(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.NewExitError(errors.New("program name and IDL file are required"), 1)
	}
	ws, err := openWorkspace(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	entry, err := ws.Program(ctx.Args().Get(0))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	path := ctx.Args().Get(1)
	other, err := idl.Load(path)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	a, err := json.MarshalIndent(entry.IDL, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	b, err := json.MarshalIndent(other, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a) + "\n"),
		B:        difflib.SplitLines(string(b) + "\n"),
		FromFile: entry.Name,
		ToFile:   path,
		Context:  3,
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if diff == "" {
		return nil
	}
	fmt.Fprint(ctx.App.Writer, diff)
	return cli.NewExitError(fmt.Errorf("%s IDL differs from %s", entry.Name, path), 1)
}

func showErrors(ctx *cli.Context) error {
	entry, err := loadEntry(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CODE\tHEX\tNAME\tMESSAGE\n")
	for _, e := range append(idl.FrameworkErrors(), entry.IDL.Errors...) {
		fmt.Fprintf(tw, "%d\t0x%x\t%s\t%s\n", e.Code, e.Code, e.Name, e.Msg)
	}
	return tw.Flush()
}
