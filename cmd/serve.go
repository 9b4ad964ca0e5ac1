package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nandhiniannika/online-voting/internal/metrics"
	"github.com/nandhiniannika/online-voting/internal/web"
	"github.com/nandhiniannika/online-voting/internal/web/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the faceauth HTTP API.

Endpoints:
  GET    /api/v1/health
  GET    /api/v1/identities
  POST   /api/v1/identities            enroll (multipart: identity_key, image)
  POST   /api/v1/verify                blocking session verification
  POST   /api/v1/verify/image          single-image verification
  POST   /api/v1/sessions              start a background session
  GET    /api/v1/sessions/{id}         session status
  GET    /api/v1/sessions/{id}/events  server-sent frame events
  DELETE /api/v1/sessions/{id}         cancel a session
  GET    /metrics                      Prometheus metrics

Enrollment requires "Authorization: Bearer <token>" when an admin token is set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("admin-token", "", "Bearer token required for enrollment (defaults to ADMIN_TOKEN)")
}

// resolveServeOptions resolves port, host and admin token from flags and environment variables.
func resolveServeOptions(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	adminToken := mustGetString(cmd, "admin-token")

	if adminToken == "" {
		adminToken = os.Getenv("ADMIN_TOKEN")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, adminToken
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := metrics.NewRegistry()

	eng, err := openEngine(cmd.Context(), reg)
	if err != nil {
		return err
	}
	defer eng.Close()

	port, host, adminToken := resolveServeOptions(cmd)
	if adminToken == "" {
		fmt.Println("Warning: no admin token set, enrollment is open to any client")
	}

	fmt.Printf("Identity store: %d records (%s backend)\n", eng.store.Len(), eng.store.BackendName())
	fmt.Printf("Embedding provider: %s, match threshold %.2f (%s)\n",
		eng.cfg.Embedding.Provider, eng.matcher.Threshold, eng.matcher.Strategy)

	server := web.NewServer(web.Dependencies{
		Store:          eng.store,
		Enroller:       eng.enroller(),
		Verifier:       eng.verifier(),
		Openers:        eng.opener,
		Metrics:        reg,
		AdminToken:     adminToken,
		AllowedOrigins: middleware.ParseOrigins(os.Getenv("WEB_ALLOWED_ORIGINS")),
	}, port, host)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting faceauth API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
