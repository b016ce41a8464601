package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"barrel/internal/secret"
	"barrel/internal/service"
	"barrel/internal/storage"
)

// App wires storage, secrets, and services for one CLI invocation.
type App struct {
	dataDir string

	db    *storage.DB
	seeds *service.SeedService
}

// DefaultDataDir returns ~/.local/share/barrel.
func DefaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "barrel")
}

// New creates an App rooted at dataDir.
func New(dataDir string) *App {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	return &App{dataDir: dataDir}
}

// Startup opens the run history database and builds the services.
func (a *App) Startup(_ context.Context) error {
	dbPath := filepath.Join(a.dataDir, "barrel.db")
	db, err := storage.New(dbPath)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	a.db = db

	a.seeds = service.NewSeedService(storage.NewRunLogStore(db), secretStore(), service.LogEmitter{})
	return nil
}

// Shutdown waits for in-flight runs and closes the database.
func (a *App) Shutdown(ctx context.Context) {
	if a.seeds != nil {
		a.seeds.WaitRunning(ctx)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("[SEED] close history database: %v", err)
		}
	}
}

// Seeds returns the seed service. Startup must have succeeded.
func (a *App) Seeds() *service.SeedService {
	return a.seeds
}

// secretStore reads passwords from BARREL_* environment variables, then
// from the macOS Keychain when it is available.
func secretStore() secret.SecretStore {
	chain := secret.Chain{secret.NewEnvStore()}
	if secret.KeychainAvailable() {
		chain = append(chain, secret.NewKeychainStore())
	}
	return chain
}
