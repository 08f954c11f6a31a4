package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbsync/internal/adapters/driving/admin"
	"github.com/custodia-labs/kbsync/internal/core/services"
	"github.com/custodia-labs/kbsync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic scheduler and admin API",
	Long: `Runs kbsync as a long-lived process: the scheduler triggers
periodic sync passes and the admin HTTP API accepts on-demand
triggers. Stops cleanly on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil {
		if credentialErr != nil {
			return credentialErr
		}
		return errors.New("sync service not configured")
	}
	if schedulerStore == nil {
		return errors.New("scheduler store not configured")
	}

	scheduler := services.NewScheduler(schedulerConfig, schedulerStore, syncOrchestrator)
	server := admin.NewServer(admin.Config{Addr: adminAddr, Token: adminToken}, syncOrchestrator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()
	go func() {
		errCh <- scheduler.Start(ctx)
	}()

	cmd.Printf("Admin API listening on %s\n", adminAddr)
	if adminToken == "" {
		logger.Warn("serve: no admin token configured; sync triggers will be refused")
	}

	var runErr error
	select {
	case <-ctx.Done():
		cmd.Println("Shutting down...")
	case runErr = <-errCh:
	}

	if err := scheduler.Stop(); err != nil {
		logger.Warn("serve: scheduler stop: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("serve: server shutdown: %v", err)
	}

	return runErr
}
