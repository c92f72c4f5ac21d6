package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"signaware-client/internal/shared/server"
	"signaware-client/internal/shared/telemetry"
)

const shutdownTimeout = 5 * time.Second

func cmdServe(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("serve")
	addr := fs.String("addr", server.Addr(c.cfg.Port), "listen address")
	if err := parse(fs, args); err != nil {
		return err
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	router, h := app.Server(ctx)
	defer h.Close()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	fmt.Fprintf(c.stderr, "Serving SignAware API on http://%s/api/v1\n", *addr)
	telemetry.Info("server.start", map[string]any{"addr": *addr, "backend": app.Config.BaseURL()})

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	telemetry.Info("server.stop", map[string]any{"addr": *addr})
	return srv.Shutdown(shutdownCtx)
}
