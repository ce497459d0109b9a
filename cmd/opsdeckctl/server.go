package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/pkg/audit"
	"github.com/opsdeck/opsdeck/pkg/config"
	"github.com/opsdeck/opsdeck/pkg/db"
	"github.com/opsdeck/opsdeck/pkg/logger"
	"github.com/opsdeck/opsdeck/pkg/monitor"
	"github.com/opsdeck/opsdeck/pkg/server"
	"github.com/opsdeck/opsdeck/pkg/server/endpoints"
	"github.com/opsdeck/opsdeck/pkg/token"
	"github.com/opsdeck/opsdeck/pkg/vault"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8080
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the opsdeck panel server",
	Long: `Run the opsdeck panel server.

Requires the environment variables OPSDECK_DATA_KEY, OPSDECK_TOKEN_SECRET
and DATABASE_URL.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Validate required environment variables first (fail fast)
		dataKey, err := vault.LoadDataKey()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		tokenSecret, err := token.LoadSecret()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if os.Getenv("DATABASE_URL") == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Bad configuration:", err)
			os.Exit(1)
		}

		if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
			if err := logger.Init(logFile); err != nil {
				fmt.Fprintln(os.Stderr, "Unable to open log file:", err)
				os.Exit(1)
			}
		}

		// Run migrations unless --no-migrate is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			logger.Info("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		cipher, err := vault.NewSymmetric(dataKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to initiate cipher:", err)
			os.Exit(1)
		}

		database, err := db.Connect(db.Config{Cipher: cipher})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to connect to DB:", err)
			os.Exit(1)
		}

		// The operation trail shares the server's connection pool.
		if sqlDB, err := database.DB(); err == nil {
			audit.SetStore(audit.NewStoreWithDB(sqlDB))
		} else {
			logger.Warnf("operation trail runs without persistence: %v", err)
		}

		issuer := token.NewIssuer(tokenSecret, cfg.TokenTTL())

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(cfg, cipher, issuer, database, host, port)

		endpoints.RegisterAll(s)

		ctx := context.Background()
		go s.Hub.Run(ctx)
		go s.Backups.Run(ctx)
		go monitor.NewSiteChecker(s.SitesStore, s.MetricsStore, s.Hub, cfg).Run(ctx)
		go monitor.NewHeartbeatWatcher(s.ServersStore, s.DashboardStore, s.Hub, cfg).Run(ctx)
		go monitor.NewDeviceChecker(s.DevicesStore, s.MetricsStore, s.Hub, cfg).Run(ctx)
		go monitor.NewDatabaseChecker(s.DatabasesStore, s.CredentialsStore, s.MetricsStore, s.Hub, cfg).Run(ctx)

		logger.Infof("Running server at http://%s:%s...", host, port)
		logger.Fatal(s.Start())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().String("log-file", "", "also write logs to this file, with rotation")
}
