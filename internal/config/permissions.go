// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// groupOrOtherRead covers the read bits for group and other.
const groupOrOtherRead fs.FileMode = 0o044

// WarnInsecurePermissions logs a warning when the config file at path can be
// read by users other than its owner, since it may hold provider.api_key.
// It reports whether a warning was logged. Startup is never blocked.
func WarnInsecurePermissions(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("skipping config permission check", "path", path, "error", err)
		return false
	}

	if info.Mode().Perm()&groupOrOtherRead == 0 {
		return false
	}

	slog.Warn("config file is readable by other users and may expose the API key",
		"path", path,
		"mode", info.Mode().Perm(),
		"recommended", "0600")
	return true
}
