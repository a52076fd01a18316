package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/pivotloom-cli/internal/server"
)

var (
	srvAddr  string
	srvToken string
	srvMaxMB int
	srvURLs  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pivot pipeline as a JSON HTTP API",
	Long: `Serve exposes uploads, pivots, charts and exports over HTTP:

  POST   /api/tables                         upload (raw body with ?name=, multipart "file", or ?url= with --allow-url)
  GET    /api/tables/{id}/columns            numeric and categorical columns
  GET    /api/tables/{id}/columns/{c}/values distinct values of a column
  GET    /api/tables/{id}/describe           dataset profile (?format=md for markdown)
  POST   /api/tables/{id}/pivot              {"filter":{},"pivot":{"rows":[],"cols":[],"values":[],"agg":""},"augment":{}}
  POST   /api/tables/{id}/chart              pivot body plus "kind", "id_fields", "include_totals" (?format=html)
  GET    /api/tables/{id}/export/{format}    csv|xlsx|json|md|parquet of the last pivot
  DELETE /api/tables/{id}                    close the session`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		addr, token, allowURLs := "127.0.0.1:8080", "", false
		if cfg != nil {
			addr, token, allowURLs = cfg.ServerAddr, cfg.APIToken, cfg.AllowURLs
		}
		if cmd.Flags().Changed("addr") {
			addr = srvAddr
		}
		if cmd.Flags().Changed("token") {
			token = srvToken
		}
		if cmd.Flags().Changed("allow-url") {
			allowURLs = srvURLs
		}
		s := server.New(p, server.Options{Token: token, MaxUpload: int64(srvMaxMB) << 20, AllowURLUploads: allowURLs})
		hs := &http.Server{
			Addr:              addr,
			Handler:           s.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on http://%s\n", addr)
			if token == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: no api_token set; the API is unauthenticated")
			}
			errCh <- hs.ListenAndServe()
		}()
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve: %w", err)
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	f.StringVar(&srvAddr, "addr", "", "listen address (overrides config server_addr)")
	f.StringVar(&srvToken, "token", "", "bearer token required on /api routes (overrides config api_token)")
	f.IntVar(&srvMaxMB, "max-upload-mb", 32, "maximum upload size in MiB")
	f.BoolVar(&srvURLs, "allow-url", false, "let clients upload by ?url=, fetched by the server (overrides config allow_url_uploads)")
}
