// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package ktime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowNsIsMonotonic(t *testing.T) {
	a := NowNs()
	b := NowNs()
	assert.NotZero(t, a)
	assert.GreaterOrEqual(t, b, a)
}

func TestDecodeKtime(t *testing.T) {
	now, err := Monotonic()
	require.NoError(t, err)
	decoded, err := DecodeKtime(int64(now), true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), decoded, time.Second)
}
