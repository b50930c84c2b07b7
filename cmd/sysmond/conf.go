// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ruidanwang/docker-sys-monitor/pkg/option"
)

var (
	adminConfDir    = "/etc/sysmond/"
	adminConfDropIn = "/etc/sysmond/sysmond.conf.d/"
)

func readConfigFile(path string, file string) error {
	filePath := filepath.Join(path, file)
	st, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("failed to read config file '%s' not a regular file", file)
	}

	viper.AddConfigPath(path)
	return viper.MergeInConfig()
}

func readConfigDir(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("'%s' is not a directory", path)
	}

	cm, err := option.ReadDirConfig(path)
	if err != nil {
		return err
	}
	if err := viper.MergeConfigMap(cm); err != nil {
		return fmt.Errorf("merge config failed %w", err)
	}
	return nil
}

func readConfigSettings() {
	loadConfig(adminConfDir, adminConfDropIn)
}

// loadConfig merges, in increasing priority, sysmond.yaml from the cwd and
// from confDir, the drop-in directory and the --config-dir directory.
// Environment variables SYSMOND_<KEY> and flags override all of them.
func loadConfig(confDir string, confDropIn string) {
	viper.SetEnvPrefix("sysmond")
	replacer := strings.NewReplacer("-", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	viper.SetConfigName("sysmond")
	viper.SetConfigType("yaml")

	// Look into cwd first, this is needed for quick development only
	readConfigFile(".", "sysmond.yaml")

	readConfigFile(confDir, "sysmond.yaml")
	readConfigDir(confDropIn)

	if viper.IsSet(option.KeyConfigDir) {
		configDir := viper.GetString(option.KeyConfigDir)
		// viper.IsSet could return true on an empty string reset
		if configDir != "" {
			err := readConfigDir(configDir)
			if err != nil {
				log.WithField(option.KeyConfigDir, configDir).WithError(err).Fatal("Failed to read config from directory")
			} else {
				log.WithField(option.KeyConfigDir, configDir).Info("Loaded config from directory")
			}
		}
	}
}
