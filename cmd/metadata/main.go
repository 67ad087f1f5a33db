package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abcfe/abcfe-metadata/app"
	"github.com/abcfe/abcfe-metadata/common/logger"
	"github.com/spf13/cobra"
)

// Version info (Injected from Makefile)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var configFile string

func main() {
	var rootCmd = &cobra.Command{
		Use:     "abcfe-metadata",
		Short:   "ABCFe encrypted wallet metadata",
		Long:    `Stores encrypted, signed wallet metadata documents under keys derived from the wallet seed.`,
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
	}

	// Register global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(walletCmd())
	rootCmd.AddCommand(metaCmd())
	rootCmd.AddCommand(serverCmd())

	// Ctrl-C cancels in-flight requests and the retry wait
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("Failed to execute command:", err)
		stop()
		os.Exit(1)
	}
}

func loadApp() (*app.App, error) {
	application, err := app.New(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

func serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Reference metadata store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Run the metadata store in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp()
			if err != nil {
				return err
			}

			application.SigHandler()
			if err := application.StartServer(); err != nil {
				logger.Error("Failed to start services:", err)
				application.Terminate()
				return err
			}

			application.Wait()
			logger.Info("Metadata store terminated.")
			return nil
		},
	})

	return cmd
}
