// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package strutils

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// UTF8FromBPFBytes transforms a fixed-size kernel buffer into a valid utf-8
// string. The buffer is cut at the first NUL, invalid runes are replaced
// with '�'.
//
// Paths and arguments coming from the kernel are byte strings, not utf-8,
// the replacement loses information but keeps every encoder output valid.
func UTF8FromBPFBytes(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.ToValidUTF8(string(b), "�")
}

// ParseSize parses a count with an optional K, M or G binary suffix.
func ParseSize(str string) (int, error) {
	if str == "" {
		return 0, errors.New("empty size")
	}
	suffix := str[len(str)-1:]

	if !strings.Contains("KMG", suffix) {
		return strconv.Atoi(str)
	}

	val, err := strconv.Atoi(str[0 : len(str)-1])
	if err != nil {
		return 0, err
	}

	switch suffix {
	case "K":
		return val * 1024, nil
	case "M":
		return val * 1024 * 1024, nil
	default:
		return val * 1024 * 1024 * 1024, nil
	}
}

