package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/JosuaGoecking/Messenger/internal/cli"
	"github.com/JosuaGoecking/Messenger/internal/repository/sqlite"
	"github.com/JosuaGoecking/Messenger/internal/service"
)

func main() {
	dbPath := flag.StringP("db", "d", envOrDefault("MESSENGER_DB", "messenger.db"), "path to the database file")
	iterations := flag.Int("kdf-iterations", service.DefaultIterations, "PBKDF2 iteration count for new passwords")
	logLevel := flag.String("log-level", envOrDefault("LOG_LEVEL", "warn"), "log level (debug|info|warn|error)")
	help := flag.BoolP("help", "h", false, "print this message")
	flag.Parse()

	if *help {
		fmt.Println("Usage: messenger [flags] [user]")
		fmt.Println("Starts the interactive loop, optionally logging in as [user].")
		flag.PrintDefaults()
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *iterations < service.DefaultIterations {
		slog.Error("kdf-iterations below minimum", "min", service.DefaultIterations, "value", *iterations)
		os.Exit(1)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(db.Credentials(), db.Tickets(), *iterations)
	directoryService := service.NewDirectoryService(db.Users(), db.Groups(), authService)
	messagingService := service.NewMessagingService(db.Users(), db.Groups())

	app := cli.New(os.Stdin, os.Stdout, directoryService, messagingService, authService)

	fmt.Println("Welcome to the messenger. Type 'quit' to exit and 'help' for usage.")
	if flag.NArg() > 0 {
		app.LoginAs(ctx, flag.Arg(0))
	}

	runErr := app.Run(ctx)

	// The original removes its data directory when the last user is
	// gone; do the same with the database file.
	users, listErr := db.Users().List(ctx)
	empty := listErr == nil && len(users) == 0

	if err := db.Close(); err != nil {
		slog.Error("close database", "error", err)
	}
	if empty {
		removeDatabase(*dbPath)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("session ended with error", "error", runErr)
		os.Exit(1)
	}
}

func removeDatabase(dbPath string) {
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("remove database file", "path", path, "error", err)
		}
	}
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
