// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/paperbound/paperbound/internal/logging"
)

// extensionTimeout bounds INSTALL/LOAD operations. DuckDB CGO calls do not
// respect context cancellation, so the timeout is enforced via select.
// Configurable via DUCKDB_EXTENSION_TIMEOUT (e.g. "30s", "1m").
var extensionTimeout = getExtensionTimeout()

func getExtensionTimeout() time.Duration {
	if timeoutStr := os.Getenv("DUCKDB_EXTENSION_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

// duckdbVersion is the DuckDB version used for extension paths.
// This must match the duckdb-go-bindings version in go.mod.
const duckdbVersion = "v1.4.3"

// isExtensionInstalledLocally checks if an extension file exists in the local
// DuckDB extension directory. Used to skip network INSTALL commands when
// extensions are pre-installed (e.g. in the Docker image).
func isExtensionInstalledLocally(extensionName string) bool {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return false
	}

	// DuckDB extension path: ~/.duckdb/extensions/{version}/{platform}/{name}.duckdb_extension
	platform := runtime.GOOS + "_" + runtime.GOARCH
	extPath := filepath.Join(homeDir, ".duckdb", "extensions", duckdbVersion, platform, extensionName+".duckdb_extension")

	_, err = os.Stat(extPath)
	return err == nil
}

// execResult holds the result of an async exec operation
type execResult struct {
	err error
}

// execWithHardTimeout executes a SQL statement with a goroutine-based hard
// timeout. ExecContext is still used for resource cleanup, but the timeout is
// enforced via select because CGO calls ignore context cancellation.
func (db *DB) execWithHardTimeout(query string) error {
	resultCh := make(chan execResult, 1)

	ctx, cancel := context.WithTimeout(context.Background(), extensionTimeout)
	defer cancel()

	go func() {
		_, err := db.conn.ExecContext(ctx, query)
		resultCh <- execResult{err: err}
	}()

	select {
	case result := <-resultCh:
		return result.err
	case <-time.After(extensionTimeout):
		return fmt.Errorf("operation timed out after %v", extensionTimeout)
	}
}

// installExtensions installs and loads the DuckDB extensions Paperbound uses.
//
// Extension behavior:
//   - icu provides timezone-aware timestamp functions
//   - json provides json_extract for notification payload queries
//   - Both are optional: on failure the availability flag is cleared and
//     callers fall back to plain TIMESTAMP arithmetic / string payloads
func (db *DB) installExtensions() error {
	isCI := os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""

	for _, ext := range []string{"icu", "json"} {
		if isCI && !isExtensionInstalledLocally(ext) {
			// CGO LOAD calls cannot be interrupted once started; skip network
			// installs entirely in CI rather than risk a hang.
			db.setExtensionAvailable(ext, false)
			continue
		}

		if !isExtensionInstalledLocally(ext) {
			if err := db.execWithHardTimeout(fmt.Sprintf("INSTALL %s;", ext)); err != nil {
				logging.Warn().Str("extension", ext).Err(err).Msg("Failed to install extension")
				db.setExtensionAvailable(ext, false)
				continue
			}
		}

		if err := db.execWithHardTimeout(fmt.Sprintf("LOAD %s;", ext)); err != nil {
			logging.Warn().Str("extension", ext).Err(err).Msg("Failed to load extension")
			db.setExtensionAvailable(ext, false)
			continue
		}

		logging.Debug().Str("extension", ext).Msg("Extension loaded")
	}

	return nil
}

func (db *DB) setExtensionAvailable(name string, available bool) {
	switch name {
	case "icu":
		db.icuAvailable = available
	case "json":
		db.jsonAvailable = available
	}
}

// preloadExtensions loads DuckDB extensions in an in-memory database before
// opening the main database file, so they are available during WAL replay.
//
// DuckDB caches loaded extensions per-process: once loaded in any connection
// (even in-memory), they are available for all subsequent connections.
//
// Skipped in CI where extensions may not be installed.
func preloadExtensions() error {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		logging.Debug().Msg("Skipping extension preload in CI environment")
		return nil
	}

	logging.Debug().Msg("Preloading DuckDB extensions for WAL replay compatibility")

	conn, err := sql.Open("duckdb", ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return fmt.Errorf("failed to open in-memory database for extension preload: %w", err)
	}

	// Disable connection pooling before close to prevent resource leaks that
	// could affect the main database connection.
	defer func() {
		conn.SetConnMaxLifetime(0)
		conn.SetMaxIdleConns(0)
		conn.SetMaxOpenConns(0)
		closeQuietly(conn)
	}()

	for _, ext := range []string{"icu", "json"} {
		if !isExtensionInstalledLocally(ext) {
			logging.Debug().Str("extension", ext).Msg("Extension not installed locally, skipping preload")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := conn.ExecContext(ctx, fmt.Sprintf("LOAD %s;", ext))
		cancel()

		if err != nil {
			// Non-fatal, continue with remaining extensions
			logging.Debug().Str("extension", ext).Err(err).Msg("Failed to preload extension")
		} else {
			logging.Debug().Str("extension", ext).Msg("Extension preloaded")
		}
	}

	return nil
}
