// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package option

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadDirConfig reads a directory where each regular file is an option:
// the file name is the key and the trimmed content the value.
func ReadDirConfig(dirName string) (map[string]any, error) {
	m := map[string]any{}
	files, err := os.ReadDir(dirName)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("unable to read configuration directory: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
			continue
		}
		fName := filepath.Join(dirName, f.Name())

		// follow symlinks, as kubernetes config maps project them
		fi, err := os.Stat(fName)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		b, err := os.ReadFile(fName)
		if err != nil {
			continue
		}
		m[f.Name()] = strings.TrimSpace(string(b))
	}
	return m, nil
}
