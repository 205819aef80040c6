package main

import (
	"log/slog"
	"os"

	"profile-portal/internal/app"
	"profile-portal/internal/logger"
)

func main() {
	// Replaced by the configured logger once config is loaded.
	slog.SetDefault(logger.New(os.Stdout, logger.FormatPretty, "info"))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
