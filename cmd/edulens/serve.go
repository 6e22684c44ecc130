package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edulens/edulens/internal/dataset"
	"github.com/edulens/edulens/internal/errutil"
	"github.com/edulens/edulens/internal/task"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go logResults(a.Runner.Results())

		// Warm the summary cache so the first requests are fast.
		if _, err := a.Runner.Submit("warm-summaries", func(ctx context.Context) (any, error) {
			return a.Catalog.DescribeAll(ctx)
		}); err != nil {
			errutil.LogMsg(err, "Failed to schedule cache warm-up")
		}

		server := a.Server()
		slog.Info("Starting server", "addr", server.Addr, "data_dir", a.Config.DataDir, "cache_dir", a.Config.CacheDir)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				errutil.ReportError(err, "Server failed")
				os.Exit(1)
			}
		case <-ctx.Done():
			slog.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			errutil.LogMsg(server.Shutdown(shutdownCtx), "Graceful shutdown failed")
		}
	},
}

// logResults is the single consumer of background task results while serving.
func logResults(results <-chan task.Result) {
	for res := range results {
		if res.Err != nil {
			errutil.LogMsg(res.Err, "Background task failed", "task", res.Name, "duration", res.Duration)
			continue
		}
		attrs := []any{"task", res.Name, "duration", res.Duration}
		if summaries, ok := res.Value.([]dataset.Summary); ok {
			attrs = append(attrs, "datasets", len(summaries))
		}
		slog.Info("Background task finished", attrs...)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to run the server on")
	mustBindPFlag("port", serveCmd.Flags().Lookup("port"))
}
