// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package procmon

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readCaps returns the inheritable, permitted and effective capability
// sets from a proc status file.
func readCaps(path string) (inh, prm, eff uint64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		var dst *uint64
		switch {
		case strings.HasPrefix(line, "CapInh:"):
			dst = &inh
		case strings.HasPrefix(line, "CapPrm:"):
			dst = &prm
		case strings.HasPrefix(line, "CapEff:"):
			dst = &eff
		default:
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, 0, 0, fmt.Errorf("malformed capability line %q in %s", line, path)
		}
		*dst, err = strconv.ParseUint(fields[len(fields)-1], 16, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("failed to parse %q in %s: %w", line, path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, 0, err
	}
	return inh, prm, eff, nil
}
