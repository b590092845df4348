package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"andretools/internal/apihandlers"
)

var (
	serveHost string
	servePort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the HTTP server exposing transcription, conversion and Excalidraw
endpoints. On SIGINT/SIGTERM it stops accepting requests and waits for
in-flight transcriptions up to server.shutdown_timeout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		if log.GetLevel() < log.DebugLevel {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := &http.Server{
			Addr:    cfg.Addr(),
			Handler: apihandlers.NewRouter(appInstance),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		appInstance.Janitor.Start()
		errCh := make(chan error, 1)
		go func() {
			log.WithFields(log.Fields{
				"addr":      srv.Addr,
				"uploads":   cfg.Storage.UploadsDir,
				"downloads": cfg.Storage.DownloadsDir,
			}).Info("Andre Tools API server listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to run API server: %w", err)
			}
		case <-ctx.Done():
			log.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("HTTP shutdown: %v", err)
		}
		if err := appInstance.Shutdown(shutdownCtx); err != nil {
			log.Warnf("transcriptions still running at exit: %v", err)
		}
		log.Info("Andre Tools API server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 3001, "Port to listen on (overrides server.port and PORT)")
}
