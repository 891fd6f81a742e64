package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if present; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cmd := buildCLI()

	args := os.Args
	if len(args) == 1 {
		args = append(args, "start")
	}

	if err := cmd.Run(context.Background(), args); err != nil {
		slog.Error("Application exited", "error", err)
		os.Exit(1)
	}
}
