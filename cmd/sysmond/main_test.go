// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruidanwang/docker-sys-monitor/pkg/api/confapi"
	"github.com/ruidanwang/docker-sys-monitor/pkg/encoder"
	"github.com/ruidanwang/docker-sys-monitor/pkg/option"
	"github.com/ruidanwang/docker-sys-monitor/pkg/sensors/filemon"
)

func setupFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	flags := pflag.NewFlagSet("sysmond", pflag.ContinueOnError)
	option.AddFlags(flags)
	require.NoError(t, flags.Parse(args))
	require.NoError(t, viper.BindPFlags(flags))
	return flags
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadConfig(t *testing.T) {
	confDir := t.TempDir()
	writeFile(t, confDir, "sysmond.yaml", "output: compact\nrb-entries: 8K\ncolor: always\n")
	dropIn := t.TempDir()
	writeFile(t, dropIn, "log-level", "debug\n")
	configDir := t.TempDir()
	writeFile(t, configDir, "output", "json")

	setupFlags(t, "--"+option.KeyConfigDir+"="+configDir)
	t.Setenv("SYSMOND_COLOR", "never")

	loadConfig(confDir, dropIn)
	require.NoError(t, option.ReadAndSetFlags())

	assert.Equal(t, option.OutputJSON, option.Config.Output)
	assert.Equal(t, 8192, option.Config.RBEntries)
	assert.Equal(t, "never", option.Config.Color)
	assert.Equal(t, "debug", option.Config.LogOpts["level"])
}

func TestLoadConfigMissingDirs(t *testing.T) {
	setupFlags(t)
	missing := filepath.Join(t.TempDir(), "missing")
	loadConfig(missing, missing)
	require.NoError(t, option.ReadAndSetFlags())
	assert.Equal(t, option.OutputJSON, option.Config.Output)
}

func TestReadConfigDirNotDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file", "x")
	assert.Error(t, readConfigDir(filepath.Join(dir, "file")))
	assert.Error(t, readConfigDir(filepath.Join(dir, "missing")))
}

func TestNewEncoder(t *testing.T) {
	setupFlags(t, "--output=compact", "--color=never")
	require.NoError(t, option.ReadAndSetFlags())
	_, ok := newEncoder(&bytes.Buffer{}).(*encoder.CompactEncoder)
	assert.True(t, ok)

	setupFlags(t)
	require.NoError(t, option.ReadAndSetFlags())
	_, ok = newEncoder(&bytes.Buffer{}).(*encoder.JSONEncoder)
	assert.True(t, ok)
}

func TestApplyFilterPolicy(t *testing.T) {
	setupFlags(t, "--expose-events=false")
	require.NoError(t, option.ReadAndSetFlags())
	maps := filemon.NewHostMaps()
	require.NoError(t, applyFilterPolicy(maps))
	assert.Equal(t, &confapi.FileMonConfig{}, maps.Config.Lookup(0))

	dir := t.TempDir()
	writeFile(t, dir, "policy.yaml", "metadata:\n  name: root\nspec:\n  uids: [0]\n")
	setupFlags(t, "--filter-policy="+filepath.Join(dir, "policy.yaml"))
	require.NoError(t, option.ReadAndSetFlags())
	maps = filemon.NewHostMaps()
	require.NoError(t, applyFilterPolicy(maps))
	assert.Equal(t, &confapi.FileMonConfig{FilterMask: confapi.UID, ExposeEvents: true}, maps.Config.Lookup(0))
	assert.True(t, maps.UID.Has(0))

	setupFlags(t, "--filter-policy="+filepath.Join(dir, "missing.yaml"))
	require.NoError(t, option.ReadAndSetFlags())
	assert.Error(t, applyFilterPolicy(filemon.NewHostMaps()))
}
