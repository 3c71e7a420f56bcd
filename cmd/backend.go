package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AzielCF/chatbot-platform/platform"
	"github.com/AzielCF/chatbot-platform/ui/rest"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Run the backend: bot runtimes, schedulers, delivery, internal API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		st, err := platform.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		if err := st.Start(ctx); err != nil {
			st.Stop(ctx)
			return err
		}

		app := rest.InitRestApp(st, log)
		go func() {
			if err := app.Listen(":" + cfg.BackendPort); err != nil {
				log.WithError(err).Fatal("backend: server stopped")
			}
		}()
		log.WithField("port", cfg.BackendPort).Info("backend: listening")

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		log.Info("backend: shutting down")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Warn("backend: http shutdown failed")
		}
		st.Stop(shutdownCtx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backendCmd)
}
