package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AzielCF/chatbot-platform/gateway"
	"github.com/AzielCF/chatbot-platform/mongostore"
	"github.com/AzielCF/chatbot-platform/repository"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the public gateway: auth, permissions, reverse proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		store, err := mongostore.Connect(ctx, cfg.MongoDBURL, cfg.MongoDBDatabase)
		if err != nil {
			return err
		}
		defer store.Close(ctx)
		if err := store.EnsureIndices(ctx); err != nil {
			return err
		}

		cache, err := gateway.NewCache(cfg.ValkeyAddress, cfg.ValkeyPassword, cfg.ValkeyDB, "gw")
		if err != nil {
			return err
		}
		defer cache.Close()

		gw := gateway.New(cfg, log,
			repository.NewCredentialsRepository(store),
			repository.NewSessionRepository(store),
			repository.NewLockoutRepository(store),
			repository.NewAuditRepository(store),
			cache,
		)

		sweepCtx, cancelSweeps := context.WithCancel(ctx)
		go gw.RunCleanupSweeps(sweepCtx)

		go func() {
			if err := gw.Listen(); err != nil {
				log.WithError(err).Fatal("gateway: server stopped")
			}
		}()
		log.WithField("port", cfg.GatewayPort).Info("gateway: listening")

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		log.Info("gateway: shutting down")
		cancelSweeps()
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return gw.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}
