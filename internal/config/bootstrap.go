// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	parleyerr "github.com/parley-chat/parley/pkg/errors"
)

//go:embed parley.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/parley/parley.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", parleyerr.Errorf(parleyerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "parley", "parley.yaml"), nil
}

// WriteDefaultConfig writes the commented default configuration to path
// with owner-only permissions. An existing file is an error unless
// overwrite is set.
func WriteDefaultConfig(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return parleyerr.Errorf(parleyerr.CodeConfigValidateInvalidValue, "config file %s already exists", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return parleyerr.Errorf(parleyerr.CodeConfigLoadReadFailure, "checking %s: %w", path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return parleyerr.Errorf(parleyerr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(path, DefaultConfigYAML, 0o600); err != nil {
		return parleyerr.Errorf(parleyerr.CodeConfigLoadReadFailure, "writing config %s: %w", path, err)
	}
	return nil
}
