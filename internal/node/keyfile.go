// keyfile.go - Reading and writing a node's long-term secret keys as
// plain hex files, generated once on first startup.
// Copyright (C) 2024  The Beldex Project.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package node

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// readKeyFile returns the trimmed contents of path and true, or false
// if the file is absent or unreadable, in which case the caller
// generates and persists a fresh key.
func readKeyFile(path string) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false
		}
		log.Errorf("node: failed to read key file %s: %v", path, err)
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

// writeKeyFile persists hexKey to path with owner-only permissions,
// creating its parent directory if necessary.
func writeKeyFile(path, hexKey string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(hexKey+"\n"), 0o600)
}
