// ABOUTME: REST API server subcommand
// ABOUTME: Runs the HTTP server until the context is cancelled, then drains it
package cli

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/harperreed/salescrm/coach"
	"github.com/harperreed/salescrm/config"
	"github.com/harperreed/salescrm/web"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand serves the REST API. It returns once ctx is cancelled and the
// server has shut down.
func ServeCommand(ctx context.Context, database *sql.DB, analyzer *coach.Analyzer, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", cfg.Port, "Port to listen on")
	dev := fs.Bool("dev", false, "Allow any CORS origin")
	_ = fs.Parse(args)

	srv := web.New(web.Config{
		Port:     *port,
		Log:      log,
		DB:       database,
		Analyzer: analyzer,
		DevMode:  *dev,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().Int("port", *port).Bool("llm", analyzer.Enabled()).Msg("Server started successfully")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}
