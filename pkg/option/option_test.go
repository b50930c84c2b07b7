// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package option

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFlags(t *testing.T, args ...string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse(args))
	require.NoError(t, viper.BindPFlags(flags))
}

func TestReadAndSetFlagsDefaults(t *testing.T) {
	setupFlags(t)
	require.NoError(t, ReadAndSetFlags())
	assert.Equal(t, "/proc", Config.ProcFS)
	assert.Equal(t, 4096, Config.RBEntries)
	assert.Equal(t, OutputJSON, Config.Output)
	assert.Equal(t, []string{"/"}, Config.WatchPaths)
	assert.Positive(t, Config.CPUs)
	assert.True(t, Config.ExposeEvents)
}

func TestReadAndSetFlags(t *testing.T) {
	setupFlags(t,
		"--rb-entries=1K",
		"--watch-path=/home,/tmp",
		"--output=compact",
		"--proc-scan-interval=5s",
		"--cpus=3",
	)
	require.NoError(t, ReadAndSetFlags())
	assert.Equal(t, 1024, Config.RBEntries)
	assert.Equal(t, []string{"/home", "/tmp"}, Config.WatchPaths)
	assert.Equal(t, OutputCompact, Config.Output)
	assert.Equal(t, 5*time.Second, Config.ProcScanInterval)
	assert.Equal(t, 3, Config.CPUs)
}

func TestReadAndSetFlagsInvalid(t *testing.T) {
	for _, args := range [][]string{
		{"--rb-entries=0"},
		{"--rb-entries=many"},
		{"--output=xml"},
		{"--color=sometimes"},
	} {
		setupFlags(t, args...)
		assert.Error(t, ReadAndSetFlags(), args)
	}
}

func TestReadDirConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "debug"), []byte("true\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rb-entries"), []byte(" 512 "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	m, err := ReadDirConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"debug": "true", "rb-entries": "512"}, m)

	m, err = ReadDirConfig(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, m)
}
