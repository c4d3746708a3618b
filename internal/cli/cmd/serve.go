package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ronled86/ClipPilot/internal/config"
	"github.com/ronled86/ClipPilot/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the job event WebSocket",
		Long: "Serve exposes search, trending, downloads and settings as a JSON API under /api, " +
			"with job progress streamed on /api/events. It binds to loopback unless --listen says otherwise.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			ln, err := net.Listen("tcp", s.cfg.Listen)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("listen: %w", err)}
			}
			srv := &http.Server{
				Handler:           server.New(s.app, s.logger, server.WithAllowedOrigins(s.cfg.AllowedOrigins)).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ClipPilot API listening on http://%s/api\n", ln.Addr())
			if err := serve(cmd.Context(), srv, ln, s.logger); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			return nil
		},
	}
	cmd.Flags().String("listen", "", "Address to listen on (default 127.0.0.1:5174)")
	_ = viper.BindPFlag(config.KeyListen, cmd.Flags().Lookup("listen"))
	return cmd
}

// serve runs srv on ln until ctx is done, then drains connections.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("http shutting down")
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
