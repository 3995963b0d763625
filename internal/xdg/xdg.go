// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package xdg resolves XDG Base Directory paths for Inkwell.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "inkwell"

// ConfigDir returns $XDG_CONFIG_HOME/inkwell, falling back to
// ~/.config/inkwell.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
