package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/relloyd/pgmirror/config"
	"github.com/relloyd/pgmirror/helper"
)

type DefaultAddConfig struct {
	ConfigFile *config.File `errorTxt:"config-file" mandatory:"yes"`
	Key        string       `errorTxt:"key" mandatory:"yes"`
	Value      string       `errorTxt:"value" mandatory:"yes"`
	Force      bool
}

// KnownDefaults are the flag names that may be given a default value in the config file.
var KnownDefaults = []string{
	"source-type", "source-dsn", "source-schema", "target-dsn", "target-schema", "state-schema",
	"batch-size", "max-cursors", "schema-policy", "skip-converged", "ignore-file",
	"max-batches-per-second", "repeat", "schedule", "connect-timeout", "stats", "status-port", "log-file", "log-level",
}

// IsKnownDefault returns true if key names a flag that reads its default from the config file.
func IsKnownDefault(key string) bool {
	for _, k := range KnownDefaults {
		if k == key {
			return true
		}
	}
	return false
}

type DefaultRemoveConfig struct {
	ConfigFile *config.File `errorTxt:"config-file" mandatory:"yes"`
	Key        string       `errorTxt:"key" mandatory:"yes"`
}

// RunDefaultAdd adds key+value to the given config file.
// If cfg.Force is not set then it return an error when the key exists.
// Lazy creation of the config file is supported it does not exist. Create only when setting the value after testing
// if it exists.
func RunDefaultAdd(cfg *DefaultAddConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	if !IsKnownDefault(cfg.Key) {
		return fmt.Errorf("unknown key %q, expected one of: %v", cfg.Key, strings.Join(KnownDefaults, ", "))
	}
	var val string
	if err := cfg.ConfigFile.Get(cfg.Key, &val); err == nil && !cfg.Force { // if key exists and we're not allowed to overwrite...
		return fmt.Errorf("key %q exists, use force to update the value or remove it first", cfg.Key)
	} else if err != nil && !errors.As(err, &config.KeyNotFoundError{}) { // if there was an unexpected error...
		return err
	}
	err := cfg.ConfigFile.Set(cfg.Key, cfg.Value)
	if err != nil {
		return fmt.Errorf("error writing config file after adding: %v", err)
	}
	fmt.Printf("Key %q added to %q\n", cfg.Key, cfg.ConfigFile.FullPath)
	return nil
}

// RunDefaultRemove removes a key from the given config file.
func RunDefaultRemove(cfg *DefaultRemoveConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	err := cfg.ConfigFile.Delete(cfg.Key)
	if err != nil {
		return fmt.Errorf("unable to delete key %q from config: %v", cfg.Key, err)
	}
	fmt.Printf("Key %q removed\n", cfg.Key)
	return nil
}
