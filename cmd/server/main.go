package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saxenasajal03/ConnectX/internal/db"
	"github.com/saxenasajal03/ConnectX/internal/seed"
	"github.com/saxenasajal03/ConnectX/internal/services/auth"
	"github.com/saxenasajal03/ConnectX/internal/store"
	"github.com/saxenasajal03/ConnectX/pkg/config"
	"github.com/saxenasajal03/ConnectX/pkg/logging"
	"github.com/saxenasajal03/ConnectX/pkg/server"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Handle subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
		case "migrate":
			handleMigrate(cfg, logger)
			return
		case "seed":
			handleSeed(cfg, logger)
			return
		case "token":
			handleToken(cfg, logger)
			return
		case "help":
			printUsage()
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	srv, err := server.New(*cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}

// openStore opens and migrates the configured database.
func openStore(cfg *config.Config, logger *zap.Logger) (*store.SQLStore, func()) {
	dialect, err := db.DialectFor(cfg.Database.Driver)
	if err != nil {
		logger.Fatal("Invalid database driver", zap.Error(err))
	}
	dbConn, err := db.OpenDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.RunMigrations(dbConn, dialect, logger); err != nil {
		dbConn.Close()
		logger.Fatal("Migration failed", zap.Error(err))
	}
	return store.NewSQLStore(dbConn, dialect, logger), func() { dbConn.Close() }
}

func handleMigrate(cfg *config.Config, logger *zap.Logger) {
	if len(os.Args) < 3 {
		fmt.Println("Usage: server migrate [up|down|status|version]")
		os.Exit(1)
	}

	dialect, err := db.DialectFor(cfg.Database.Driver)
	if err != nil {
		logger.Fatal("Invalid database driver", zap.Error(err))
	}
	dbConn, err := db.OpenDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer dbConn.Close()

	var errMig error
	command := os.Args[2]
	switch command {
	case "up":
		errMig = db.RunMigrations(dbConn, dialect, logger)
	case "down":
		errMig = db.Rollback(dbConn, dialect, logger)
	case "status":
		errMig = db.Status(dbConn, dialect, logger)
	case "version":
		var v int64
		v, errMig = db.Version(dbConn, dialect, logger)
		if errMig == nil {
			fmt.Println(v)
		}
	default:
		fmt.Printf("Unknown migration command: %s\n", command)
		os.Exit(1)
	}

	if errMig != nil {
		logger.Fatal("Migration failed", zap.Error(errMig))
	}
}

func handleSeed(cfg *config.Config, logger *zap.Logger) {
	if len(os.Args) < 3 {
		fmt.Println("Usage: server seed <fixture.yaml>")
		os.Exit(1)
	}

	fixture, err := seed.Load(os.Args[2])
	if err != nil {
		logger.Fatal("Failed to load fixture", zap.Error(err))
	}

	st, closeDB := openStore(cfg, logger)
	defer closeDB()

	if _, err := seed.Apply(context.Background(), st, fixture, logger); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
}

// handleToken prints an access token for a user, for local testing against
// a server that shares JWT_SECRET.
func handleToken(cfg *config.Config, logger *zap.Logger) {
	if len(os.Args) < 3 {
		fmt.Println("Usage: server token <user-id>")
		os.Exit(1)
	}

	token, err := auth.NewAuthService(*cfg, logger).GenerateAccessToken(os.Args[2])
	if err != nil {
		logger.Fatal("Failed to generate token", zap.Error(err))
	}
	fmt.Println(token)
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  server                  - Start the API server")
	fmt.Println("  server serve            - Start the API server")
	fmt.Println("  server migrate up       - Run pending migrations")
	fmt.Println("  server migrate down     - Rollback the last migration")
	fmt.Println("  server migrate status   - Show migration status")
	fmt.Println("  server migrate version  - Print the schema version")
	fmt.Println("  server seed <file>      - Load users and requests from a YAML fixture")
	fmt.Println("  server token <user-id>  - Print an access token for a user")
	fmt.Println("  server help             - Show this help message")
}
