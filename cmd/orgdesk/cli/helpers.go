package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/orgdesk/orgdesk/internal/config"
	"github.com/orgdesk/orgdesk/internal/store"
)

// resolveDataDir returns the data directory from the --data-dir flag,
// ORGDESK_DATA_DIR env var, or ~/.orgdesk as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("ORGDESK_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.orgdesk"
}

// openStore opens the application database as configured. Management
// commands and the server share the same store.
func openStore() (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dir := cfg.Database.DataDir
	if dir == "" {
		dir = resolveDataDir()
	}
	return store.Open(store.Options{
		Driver:  cfg.Database.Driver,
		DSN:     cfg.Database.DSN,
		DataDir: dir,
	})
}

// promptPassword reads a password twice from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// cmdCtx returns a background context for CLI operations.
func cmdCtx() context.Context {
	return context.Background()
}

// newCLILogger returns a quiet text logger for management commands.
func newCLILogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
