package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/telhawk-systems/hecrelay/common/logging"
	"github.com/telhawk-systems/hecrelay/internal/classifier"
	"github.com/telhawk-systems/hecrelay/internal/config"
	"github.com/telhawk-systems/hecrelay/internal/dispatcher"
	"github.com/telhawk-systems/hecrelay/internal/forwarder"
	"github.com/telhawk-systems/hecrelay/internal/handlers"
	"github.com/telhawk-systems/hecrelay/internal/server"
)

var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay HTTP server",
	Long: `Starts the relay. Requires root or CAP_NET_RAW to open raw sockets; without
it the server still answers but every event is reported as failed.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger := logging.New(
		logging.ParseLevel(cfg.LogLevel()),
		cfg.Logging.Format,
	).With(logging.Service("hecrelay"))
	logging.SetDefault(logger)

	sender := forwarder.NewRawSender()
	defer sender.Close()

	if !forwarder.IsElevated() {
		logger.Warn("not running as root; raw sockets need CAP_NET_RAW")
	}
	if err := sender.Probe(); err != nil {
		logger.Warn("raw socket unavailable; events will fail until fixed", logging.Error(err))
	}

	srv := newServer(cfg, logger, sender, sender.Probe)

	logger.Info("starting relay",
		slog.String("addr", srv.Addr),
		slog.String("log_level", cfg.LogLevel()),
		slog.Bool("verbose", cfg.Forwarder.Verbose),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
	defer stop()

	return serve(ctx, srv, cfg, logger)
}

// newServer wires the relay components around sender.
func newServer(cfg *config.Config, logger *logging.Logger, sender forwarder.Sender, ready handlers.ReadinessFunc) *http.Server {
	fwd := forwarder.New(sender, logger, forwarder.Options{
		TTL:        cfg.Forwarder.TTL,
		SourcePort: cfg.Forwarder.SourcePort,
		Verbose:    cfg.Forwarder.Verbose,
	})
	d := dispatcher.New(classifier.New(), fwd, logger)
	h := handlers.NewRelayHandler(d, logger, handlers.Options{
		Token:                cfg.Auth.Token,
		MaxBodyBytes:         cfg.Server.MaxBodyBytes,
		MaxDecompressedBytes: cfg.Server.MaxDecompressedBytes,
		Ready:                ready,
	})
	return server.NewHTTPServer(cfg.Server, server.NewRouter(h, logger))
}

// serve runs srv until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, cfg *config.Config, logger *logging.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("relay listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
