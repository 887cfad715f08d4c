package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/cli"
	"github.com/aretw0/sluice/internal/logging"
	httpAdapter "github.com/aretw0/sluice/pkg/adapters/http"
	"github.com/aretw0/sluice/pkg/observability"
	"github.com/aretw0/sluice/pkg/session"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the REST API over one loaded system: campaign simulation,
interactive sessions, transition streams and Prometheus metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		modelPath, _ := cmd.Flags().GetString("model")
		if !cmd.Flags().Changed("model") && len(args) > 0 {
			modelPath = args[0]
		}
		port, _ := cmd.Flags().GetString("port")
		storeSpec, _ := cmd.Flags().GetString("store")

		sys, err := sluice.Load(modelPath)
		if err != nil {
			fmt.Printf("Error loading model: %v\n", err)
			os.Exit(1)
		}
		if err := sluice.Validate(sys); err != nil {
			fmt.Printf("Error validating model: %v\n", err)
			os.Exit(1)
		}

		store, closeStore, err := cli.OpenStore(storeSpec)
		if err != nil {
			fmt.Printf("Error opening store: %v\n", err)
			os.Exit(1)
		}
		defer closeStore()

		// Server logs are scraped, not read: JSON on stderr.
		logger := logging.NewJSON(slog.LevelInfo)

		simOpts := []sluice.Option{
			sluice.WithLogger(logger),
			sluice.WithHooks(observability.DefaultRegistry().Hooks()),
		}
		if store != nil {
			simOpts = append(simOpts, sluice.WithStore(store))
		}
		sim := sluice.New(simOpts...)
		sessions := session.NewManager(session.WithLogger(logger))

		handler := httpAdapter.NewHandler(sys, sim, sessions)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Sluice Server on %s\n", srv.Addr)
			fmt.Printf("Serving system: %s\n", sys.Name)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Sluice Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("store", "", "Persist campaigns: 'mem', a redis:// URL or a SQLite path")
}
