package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"signaware-client/internal/results"
)

func cmdResults(ctx context.Context, c *cli, args []string) error {
	if err := parse(c.flags("results"), args); err != nil {
		return err
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return c.printView(results.Load(ctx, app.Results))
}

func (c *cli) printView(v results.View) error {
	switch v.State {
	case results.StateEmpty:
		fmt.Fprintln(c.stdout, "No analysis results found")
		return nil
	case results.StateError:
		return errors.New(v.Error)
	}

	a := v.Analysis
	if a.DocumentTitle != "" {
		fmt.Fprintln(c.stdout, a.DocumentTitle)
		fmt.Fprintln(c.stdout)
	}
	fmt.Fprintf(c.stdout, "Risk score: %s/10\n", results.FormatScore(a.RiskScore))
	for _, s := range v.Sections {
		fmt.Fprintln(c.stdout)
		fmt.Fprintln(c.stdout, s.Title)
		if s.Text != "" {
			fmt.Fprintln(c.stdout, "  "+s.Text)
		}
		for _, item := range s.Items {
			fmt.Fprintln(c.stdout, "  - "+item)
		}
	}
	return nil
}

func cmdChat(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("chat")
	noReveal := fs.Bool("no-reveal", false, "print replies at once instead of typing them out")
	if err := parse(fs, args); err != nil {
		return err
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	a, err := app.Results.Load(ctx)
	if errors.Is(err, results.ErrNoResult) {
		return errors.New("No analysis results found; run signaware analyze first")
	}
	if err != nil {
		return err
	}

	interval := app.Config.RevealInterval
	if *noReveal {
		interval = 0
	}
	chat := results.NewChat(a, results.WithRevealInterval(interval), results.WithChatMetrics(app.Metrics))
	defer chat.Close()
	stop := context.AfterFunc(ctx, chat.Close)
	defer stop()

	fmt.Fprintln(c.stdout, "AI: "+results.Greeting)
	lines := readLines(c.stdin)
	for {
		fmt.Fprint(c.stdout, "> ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.stdout)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(c.stdout)
			return nil
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		fmt.Fprint(c.stdout, "AI: ")
		_, err := chat.Send(ctx, line, func(chunk string) { fmt.Fprint(c.stdout, chunk) })
		fmt.Fprintln(c.stdout)
		if errors.Is(err, results.ErrChatClosed) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLines feeds stdin lines to a channel so the prompt loop can also
// watch for interrupts. The reader goroutine ends at EOF.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			out <- scanner.Text()
		}
	}()
	return out
}
