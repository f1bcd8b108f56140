package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env if present (do not overwrite already-set environment variables).
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}
	setupLogger()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger installs JSON logs in production and text logs elsewhere.
func setupLogger() {
	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if strings.ToLower(os.Getenv("ENV")) == "production" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "donamaha",
		Short:         "Donation campaign platform API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), reconcileCmd())
	return root
}

// requireEnv fails when any of keys is unset.
func requireEnv(keys ...string) error {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			return fmt.Errorf("required environment variable %s is not set", k)
		}
	}
	return nil
}

func dbEnv() []string {
	switch strings.ToLower(os.Getenv("DB_DRIVER")) {
	case "sqlite":
		return []string{"DB_NAME"}
	default:
		if os.Getenv("DB_DSN") != "" {
			return nil
		}
		return []string{"DB_HOST", "DB_USER", "DB_NAME"}
	}
}
