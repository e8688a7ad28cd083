// Package main implements crmd, the CRM backend server and its maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/osr-alliance/backend-crm/config"
	"github.com/osr-alliance/backend-crm/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// configPath is an optional YAML file; the environment always overrides it
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crmd",
	Short: "Personal CRM backend on Redis",
	Long: `crmd serves the CRM HTTP API (contacts, schedules, projects, opportunities
and phone verification codes) and ships maintenance commands for backups.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

// setup loads the config, configures the standard logger and opens redis
func setup() (*config.Config, *redis.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ConfigureLogger(logrus.StandardLogger()); err != nil {
		return nil, nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:       cfg.RedisAddr(),
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		MaxRetries: 3,
	})
	return cfg, client, nil
}

func openStore(cfg *config.Config, client *redis.Client) (store.Store, error) {
	return store.New(&store.Config{
		Redis:    client,
		Debugger: cfg.StorageDebug,
		Logger:   logrus.WithField("component", "storage"),
	})
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that redis is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, err := setup()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis at %s is unreachable: %w", cfg.RedisAddr(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "redis at %s is reachable\n", cfg.RedisAddr())
		return nil
	},
}
