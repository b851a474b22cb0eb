package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/config"
	"github.com/effective-security/keyhandler/server"
	"github.com/effective-security/xlog"
)

// ServeCmd specifies flags for the serve command
type ServeCmd struct {
	Cfg             string        `help:"Location of the service config file" required:"" type:"existingfile"`
	ShutdownTimeout time.Duration `help:"Time to wait for active requests on shutdown" default:"10s"`
}

// Run the command
func (a *ServeCmd) Run(ctx *Cli) error {
	cfg, err := config.Load(a.Cfg)
	if err != nil {
		return err
	}
	if err = ctx.ApplyConfigLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	svc, err := NewService(cfg)
	if err != nil {
		return errors.WithMessage(err, "unable to create service")
	}

	srv := server.New(server.Config{
		ListenAddr:      cfg.Server.ListenAddr,
		RequestTimeout:  cfg.Server.RequestTimeout,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
	}, svc)

	sigctx, stop := signal.NotifyContext(ctx.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe()
	}()

	select {
	case err = <-done:
		return err
	case <-sigctx.Done():
	}

	logger.KV(xlog.NOTICE, "status", "stopping", "reason", context.Cause(sigctx))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return errors.WithMessage(err, "unable to shutdown")
	}
	return <-done
}
