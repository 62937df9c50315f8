package testutils

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/saxenasajal03/ConnectX/internal/db"
	"github.com/saxenasajal03/ConnectX/internal/services/auth"
	"github.com/saxenasajal03/ConnectX/internal/store"
	"github.com/saxenasajal03/ConnectX/pkg/config"
	"go.uber.org/zap/zaptest"
)

func GetTestConfig() config.Config {
	return config.Config{
		Database: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			MaxOpenConns: 8,
			BusyTimeout:  10 * time.Second,
		},
		Server: config.ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSAllowOrigins:  "*",
			RateLimitMax:      1000,
			RateLimitDuration: time.Minute,
		},
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			CookieName:       "jwt",
			AccessExpiration: 15 * time.Minute,
		},
		Recommend: config.RecommendConfig{
			PageSize:      2,
			OnboardedOnly: true,
		},
		Log: config.LogConfig{Level: "debug", Encoding: "console"},
	}
}

// SetupTestDB opens a migrated SQLite database in a file under t.TempDir so
// that every pooled connection sees the same data.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := GetTestConfig().Database
	cfg.Path = filepath.Join(t.TempDir(), "connectx.db")

	dbConn, err := db.OpenDB(cfg)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { dbConn.Close() })

	if err := db.RunMigrations(dbConn, db.SQLite, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return dbConn
}

func SetupTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	return store.NewSQLStore(SetupTestDB(t), db.SQLite, zaptest.NewLogger(t))
}

// CreateTestUser inserts an onboarded user with the given id.
func CreateTestUser(t *testing.T, s store.Store, id string) *store.User {
	t.Helper()
	return CreateTestUserWith(t, s, &store.User{
		ID:               id,
		FullName:         "User " + id,
		NativeLanguage:   "english",
		LearningLanguage: "spanish",
		IsOnboarded:      true,
	})
}

func CreateTestUserWith(t *testing.T, s store.Store, u *store.User) *store.User {
	t.Helper()
	if err := s.UpsertUser(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user %s: %v", u.ID, err)
	}
	return u
}

func CreateTestAccessToken(t *testing.T, userID string) string {
	t.Helper()
	service := auth.NewAuthService(GetTestConfig(), zaptest.NewLogger(t))
	token, err := service.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("Failed to generate access token: %v", err)
	}
	return token
}
