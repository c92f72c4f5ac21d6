package main

// SignAware command-line client:
//   go run ./cmd/signaware login --email you@example.com --password-stdin
//   go run ./cmd/signaware analyze --file contract.pdf
//   go run ./cmd/signaware chat

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"signaware-client/internal/bootstrap"
	"signaware-client/internal/shared/config"
	"signaware-client/internal/shared/telemetry"
)

type command struct {
	summary string
	run     func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"login":     {"sign in with email and password", cmdLogin},
	"signup":    {"create an account", cmdSignup},
	"google":    {"sign in with Google in the browser", cmdGoogle},
	"logout":    {"sign out and forget local tokens", cmdLogout},
	"whoami":    {"show the signed-in user", cmdWhoami},
	"role":      {"set the account role (legal-professional or individual)", cmdRole},
	"analyze":   {"analyze a document file or pasted text", cmdAnalyze},
	"status":    {"show the backend status of an analysis", cmdStatus},
	"history":   {"list past analyses", cmdHistory},
	"dashboard": {"show dashboard statistics", cmdDashboard},
	"results":   {"show the last stored analysis result", cmdResults},
	"chat":      {"ask questions about the last result", cmdChat},
	"health":    {"check the backend", cmdHealth},
	"serve":     {"run the local companion API for the web front end", cmdServe},
}

// cli carries the process streams and the app factory so commands can be
// driven from tests.
type cli struct {
	cfg    config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	build  func(ctx context.Context, cfg config.Config, opts ...bootstrap.Option) (*bootstrap.App, error)
}

func main() {
	cfg := config.Load()
	telemetry.SetOutput(os.Stderr)
	if strings.TrimSpace(os.Getenv("LOG_LEVEL")) == "" {
		telemetry.SetLevel("warn")
	} else {
		telemetry.SetLevel(cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{cfg: cfg, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, build: bootstrap.Build}
	os.Exit(c.run(ctx, os.Args[1:]))
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		c.usage()
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(c.stderr, "unknown command %q\n\n", args[0])
		c.usage()
		return 2
	}
	if err := cmd.run(ctx, c, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		var uErr usageError
		if errors.As(err, &uErr) {
			fmt.Fprintln(c.stderr, uErr.Error())
			return 2
		}
		fmt.Fprintln(c.stderr, err.Error())
		return 1
	}
	return 0
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, "usage: signaware <command> [flags]")
	fmt.Fprintln(c.stderr)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.stderr, "  %-10s %s\n", name, commands[name].summary)
	}
}

// app builds the client components. Callers must Close it.
func (c *cli) app(ctx context.Context, opts ...bootstrap.Option) (*bootstrap.App, error) {
	return c.build(ctx, c.cfg, opts...)
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("signaware "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	return nil
}
