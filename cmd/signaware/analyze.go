package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"signaware-client/internal/gateway"
	"signaware-client/internal/results"
	"signaware-client/internal/workflow"
)

func cmdAnalyze(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("analyze")
	filePath := fs.String("file", "", "document to upload (pdf, doc, docx, txt)")
	text := fs.String("text", "", "document text")
	fromStdin := fs.Bool("stdin", false, "read document text from stdin")
	wait := fs.Bool("wait", false, "keep polling while the backend is still processing")
	if err := parse(fs, args); err != nil {
		return err
	}

	var req gateway.AnalysisRequest
	switch {
	case *filePath != "":
		f, err := gateway.OpenFile(*filePath)
		if err != nil {
			return fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		req.File = &f
	case *fromStdin:
		raw, err := io.ReadAll(c.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		req.Text = string(raw)
	default:
		req.Text = *text
	}
	if req.Empty() {
		return usagef("analyze requires --file, --text or --stdin")
	}

	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	stopProgress := c.showProgress(app.Workflow)
	pending, err := app.Workflow.Submit(ctx, req)
	stopProgress()
	if err != nil {
		return err
	}

	if pending != "" {
		fmt.Fprintf(c.stdout, "Analysis %s is still processing.\n", pending)
		if !*wait {
			fmt.Fprintf(c.stdout, "Check later with: signaware status %s\n", pending)
			return nil
		}
		if _, err := app.Workflow.AwaitResult(ctx, pending); err != nil {
			return err
		}
	}
	return c.printView(results.Load(ctx, app.Results))
}

// showProgress renders workflow state changes on stderr until stopped.
func (c *cli) showProgress(wf *workflow.Workflow) func() {
	updates, cancel := wf.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		var last workflow.Snapshot
		for snap := range updates {
			if snap == last {
				continue
			}
			last = snap
			switch snap.State {
			case workflow.StateUploading:
				fmt.Fprintf(c.stderr, "\rUploading... %3d%%", snap.Progress)
			case workflow.StateAnalyzing:
				fmt.Fprint(c.stderr, "\rAnalyzing document...  ")
			}
		}
	}()
	return func() {
		cancel()
		<-done
		fmt.Fprintln(c.stderr)
	}
}

func cmdStatus(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("status")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("usage: signaware status <analysis-id>")
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.Gateway.GetAnalysisStatus(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return c.printJSON(resp)
}

func cmdHistory(ctx context.Context, c *cli, args []string) error {
	if err := parse(c.flags("history"), args); err != nil {
		return err
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	items, err := app.Gateway.GetAnalysisHistory(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(c.stdout, "No analyses yet")
		return nil
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tRISK\tTITLE")
	for _, it := range items {
		risk, title := "-", ""
		if it.Analysis != nil {
			risk = results.FormatScore(it.Analysis.RiskScore)
			title = it.Analysis.DocumentTitle
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Status, risk, title)
	}
	return tw.Flush()
}

func cmdDashboard(ctx context.Context, c *cli, args []string) error {
	if err := parse(c.flags("dashboard"), args); err != nil {
		return err
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	d, err := app.Gateway.GetDashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Total analyses:       %d\n", d.Stats.TotalAnalyses)
	fmt.Fprintf(c.stdout, "Average risk score:   %s\n", results.FormatScore(d.Stats.AvgRiskScore))
	fmt.Fprintf(c.stdout, "Documents this month: %d\n", d.Stats.DocumentsThisMonth)
	if d.Stats.TimesSaved != "" {
		fmt.Fprintf(c.stdout, "Time saved:           %s\n", d.Stats.TimesSaved)
	}
	if len(d.RecentAnalyses) == 0 {
		return nil
	}
	fmt.Fprintln(c.stdout)
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tRISK\tSTATUS\tTITLE")
	for _, r := range d.RecentAnalyses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Date, results.FormatScore(r.RiskScore), r.Status, r.Title)
	}
	return tw.Flush()
}

func cmdHealth(ctx context.Context, c *cli, args []string) error {
	if err := parse(c.flags("health"), args); err != nil {
		return err
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	h, err := app.Gateway.HealthCheck(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s %s\n", app.Config.BaseURL(), strings.TrimSpace(h.Status+" "+h.Timestamp))
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
