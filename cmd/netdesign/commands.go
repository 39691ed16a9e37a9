package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fiberonix/netdesign"
	"github.com/fiberonix/netdesign/core"
	"github.com/fiberonix/netdesign/coupler"
	"github.com/fiberonix/netdesign/domain"
	"github.com/fiberonix/netdesign/export"
	"github.com/fiberonix/netdesign/observability"
	"github.com/fiberonix/netdesign/server"
	"github.com/gin-gonic/gin"
)

func printCatalog(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RATIO\tTAP LOSS (dB)\tTHROUGH LOSS (dB)")
	for _, s := range coupler.Specs() {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\n", s.Ratio, s.TapLossDB, s.ThroughLossDB)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SPLITTER\tPORTS\tLOSS (dB)")
	for _, s := range coupler.Splitters() {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\n", s.Name, s.Ports, s.LossDB)
	}
	return tw.Flush()
}

// parseStage reads "ratio[,tap_km[,through_km]]".
func parseStage(raw string) ([]func(*domain.Stage) error, error) {
	parts := strings.Split(raw, ",")
	options := []func(*domain.Stage) error{core.StageWithRatio(parts[0])}
	if len(parts) > 3 {
		return nil, fmt.Errorf("stage %q: too many fields", raw)
	}
	distances := [2]float64{}
	for i, p := range parts[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", raw, err)
		}
		distances[i] = v
	}
	return append(options, core.StageWithDistances(distances[0], distances[1])), nil
}

func runBudget(d *netdesign.Designer, opts options, w io.Writer) error {
	if len(opts.stages) == 0 {
		return errors.New("budget needs at least one --stage")
	}
	e := d.NewEditor()
	defer e.Close()
	e.SetName(opts.name)
	for _, raw := range opts.stages {
		stageOptions, err := parseStage(raw)
		if err != nil {
			return err
		}
		if err := e.AddStage(stageOptions...); err != nil {
			return fmt.Errorf("stage %q: %w", raw, err)
		}
	}

	if opts.output != "" {
		return writeReport(e.Chain(), opts)
	}
	return printBudget(w, e.Chain(), opts.splitter)
}

func printBudget(w io.Writer, c *domain.Chain, splitter string) error {
	if splitter != "" {
		if _, ok := coupler.LookupSplitter(splitter); !ok {
			return fmt.Errorf("unknown splitter %q", splitter)
		}
	}

	name := c.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "%s  input %.2f dBm  status %s\n", name, c.InitialInputPowerDBm(), c.Status)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "#\tRATIO\tINPUT\tTAP KM\tTAP OUT\tTHROUGH KM\tTHROUGH OUT"
	if splitter != "" {
		header += "\tPER PORT (" + splitter + ")"
	}
	fmt.Fprintln(tw, header)
	for _, b := range c.Budget() {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f", b.Index+1, b.Ratio, b.InputDBm, b.TapKm, b.TapDBm, b.ThroughKm, b.ThroughDBm)
		if splitter != "" {
			port, _ := coupler.SplitterOutput(b.TapDBm, splitter)
			fmt.Fprintf(tw, "\t%.2f", port)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func runList(ctx context.Context, d *netdesign.Designer, w io.Writer) error {
	designs, err := d.Designs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSTAGES\tINPUT (dBm)\tCREATED")
	for _, c := range designs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\n", c.ID, c.Name, c.Status, c.Len(), c.InitialInputPowerDBm(), c.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func requireID(command string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s needs exactly one design id", command)
	}
	return args[0], nil
}

func runShow(ctx context.Context, d *netdesign.Designer, opts options, args []string, w io.Writer) error {
	id, err := requireID("show", args)
	if err != nil {
		return err
	}
	c, err := d.Design(ctx, id)
	if err != nil {
		return err
	}
	return printBudget(w, c, opts.splitter)
}

func runDelete(ctx context.Context, d *netdesign.Designer, args []string, w io.Writer) error {
	id, err := requireID("delete", args)
	if err != nil {
		return err
	}
	if err := d.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(w, "deleted %s\n", id)
	return nil
}

func runExport(ctx context.Context, d *netdesign.Designer, opts options, args []string, w io.Writer) error {
	id, err := requireID("export", args)
	if err != nil {
		return err
	}
	c, err := d.Design(ctx, id)
	if err != nil {
		return err
	}
	if opts.output == "" {
		f, err := export.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		return export.Write(w, c, f)
	}
	return writeReport(c, opts)
}

func writeReport(c *domain.Chain, opts options) error {
	f, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	file, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("creating %s : %w", opts.output, err)
	}
	if err := export.Write(file, c, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func runImport(ctx context.Context, d *netdesign.Designer, opts options, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errors.New("import needs exactly one file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s : %w", args[0], err)
	}

	e := d.NewEditor()
	defer e.Close()
	if err := e.Import(data); err != nil {
		return err
	}
	if opts.name != "" {
		e.SetName(opts.name)
	}
	id, err := e.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "imported %s as %s\n", args[0], id)
	return nil
}

func runConfig(d *netdesign.Designer, args []string, w io.Writer) error {
	if len(args) == 0 {
		return errors.New("config needs show, remote or local")
	}
	switch args[0] {
	case "show":
	case "remote":
		if len(args) < 2 || len(args) > 3 {
			return errors.New("usage: config remote <base-url> [token]")
		}
		token := ""
		if len(args) == 3 {
			token = args[2]
		}
		if err := d.Config.SetRemote(args[1], token); err != nil {
			return err
		}
	case "local":
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		if err := d.Config.SetLocal(path); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown config command %q", args[0])
	}

	cfg := d.Config
	fmt.Fprintf(w, "config dir: %s\nbackend:    %s\n", cfg.ConfigDir, cfg.Backend)
	switch cfg.Backend {
	case netdesign.BackendRemote:
		fmt.Fprintf(w, "remote:     %s (timeout %s, token set: %t)\n", cfg.Remote.BaseURL, cfg.Remote.Timeout, cfg.Remote.Token != "")
	case netdesign.BackendLocal:
		fmt.Fprintf(w, "database:   %s\n", cfg.DatabasePath())
	}
	return nil
}

func runServe(ctx context.Context, d *netdesign.Designer, collector *observability.Collector) error {
	if d.Config.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	s, err := server.New(d.Repo,
		server.WithLogger(d.Logger),
		server.WithDecoder(d.Decoder),
		server.WithMetrics(collector),
		server.WithPrefix(d.Config.Server.Prefix),
	)
	if err != nil {
		return err
	}
	return s.Run(ctx, d.Config.Server.Address)
}
