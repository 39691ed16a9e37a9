// Command netdesign evaluates coupler chain power budgets and manages stored designs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fiberonix/netdesign"
	"github.com/fiberonix/netdesign/logger"
	"github.com/fiberonix/netdesign/observability"
	"github.com/spf13/pflag"
)

const usage = `usage: netdesign [flags] <command> [args]

commands:
  catalog                     list coupler ratios and PLC splitters
  budget                      evaluate a chain given with --stage flags
  list                        list stored designs
  show <id>                   print a stored design's budget
  delete <id>                 delete a stored design
  export <id>                 write a stored design's budget report (--format, --output)
  import <file>               store a design read from a JSON, YAML or XML file
  config show|remote|local    show or change the backend
  serve                       serve the configured backend over REST

flags:
`

type options struct {
	configDir string
	stages    []string
	splitter  string
	name      string
	format    string
	output    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "netdesign:", err)
		os.Exit(1)
	}
}

func newFlagSet(opts *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("netdesign", pflag.ContinueOnError)
	fs.StringVar(&opts.configDir, "config-dir", defaultConfigDir(), "directory holding config.yaml and the local database")
	fs.String("backend", "local", "design backend: local or remote")
	fs.String("remote-url", "", "collection URL of the remote design backend")
	fs.String("token", "", "Authorization header value sent to the remote backend")
	fs.Duration("timeout", 0, "remote request timeout")
	fs.String("db", "", "local database path")
	fs.String("address", "127.0.0.1:8080", "serve: listen address")
	fs.String("prefix", "/designs", "serve: collection path")
	fs.Float64("input-power", 8, "launch power in dBm for new designs")
	fs.Float64("fiber-loss", 0.2, "fiber attenuation in dB/km for new stages")
	fs.String("log-mode", "dev", "log mode: dev or prod")
	fs.StringArrayVar(&opts.stages, "stage", nil, "budget: stage as ratio[,tap_km[,through_km]], repeatable")
	fs.StringVar(&opts.splitter, "splitter", "", "budget/show: PLC splitter on every tap, e.g. 1x8")
	fs.StringVar(&opts.name, "name", "", "budget/import: design name")
	fs.StringVar(&opts.format, "format", "json", "export/budget: json, yaml or xml")
	fs.StringVar(&opts.output, "output", "", "export: output file, stdout when empty")
	return fs
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".netdesign"
	}
	return filepath.Join(dir, "netdesign")
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var opts options
	fs := newFlagSet(&opts)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	command, rest := fs.Arg(0), fs.Args()[1:]

	d, err := netdesign.New(
		netdesign.WithConfigDir(opts.configDir),
		netdesign.WithFlags(fs),
	)
	if err != nil {
		return err
	}
	defer d.Close()

	log, err := logger.New(d.Config.Log.Mode)
	if err != nil {
		return fmt.Errorf("creating logger : %w", err)
	}
	if err := d.WithOptions(netdesign.WithLogger(log)); err != nil {
		return err
	}

	switch command {
	case "catalog":
		return printCatalog(stdout)
	case "budget":
		return runBudget(d, opts, stdout)
	case "config":
		return runConfig(d, rest, stdout)
	}

	collector, err := observability.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("creating metrics collector : %w", err)
	}
	if err := d.WithOptions(netdesign.WithMetrics(collector), netdesign.WithBackend()); err != nil {
		return err
	}

	switch command {
	case "list":
		return runList(ctx, d, stdout)
	case "show":
		return runShow(ctx, d, opts, rest, stdout)
	case "delete":
		return runDelete(ctx, d, rest, stdout)
	case "export":
		return runExport(ctx, d, opts, rest, stdout)
	case "import":
		return runImport(ctx, d, opts, rest, stdout)
	case "serve":
		return runServe(ctx, d, collector)
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", command)
}
