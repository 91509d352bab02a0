package cmd

import (
	"os"
	"testing"

	"github.com/relloyd/pgmirror/config"
	"github.com/spf13/cobra"
)

func TestGetCliFlag(t *testing.T) {
	fnGetConfig := func(key string, out interface{}) error {
		return nil
	}
	flagName := "mock"
	mockEnvVar := flagNameToEnvVar(flagName)
	expected := "envTest"
	d := "myDefault"
	defer func() { twelveFactorMode = false }()
	// Test 1 - test default value applied to mock CLI flag.
	got := switches.getCliFlag(flagName, d, fnGetConfig)
	if got.val != d { // if no default was applied...
		t.Fatalf("test 1 failed: expected default value %v to be applied to mock CLI flag", got.val)
	}
	// Test 2 - fetch flag value from environment when it is not set - expect default value to be applied.
	twelveFactorMode = true // enable twelveFactorMode so that env variables are read.
	got = switches.getCliFlag(flagName, d, fnGetConfig)
	if got.val != d {
		t.Fatalf("test 2 failed: expected default value (%v) to be applied to mock CLI flag fetched via environment variable (%v)", got.val, mockEnvVar)
	}
	// Test 3 - fetch flag value from environment after setting it explicitly (requires twelveFactorMode).
	err := os.Setenv(mockEnvVar, expected)
	if err != nil {
		t.Fatalf("test 3 failed: unable to set environment variable %v", mockEnvVar)
	}
	defer os.Unsetenv(mockEnvVar)
	got = switches.getCliFlag(flagName, d, fnGetConfig)
	if got.val != expected {
		t.Fatalf("test 3 failed: expected value (%v) to be applied to mock CLI flag (%v) fetched from environment variable (%v); got: %v", expected, flagName, mockEnvVar, got.val)
	}
}

func TestGetCliFlagFromConfig(t *testing.T) {
	twelveFactorMode = false
	file := config.NewConfigFileWithDir(t.TempDir(), "config.yaml")
	if err := file.Set("batch-size", 2000); err != nil {
		t.Fatal(err)
	}
	// Test 1 - a value in config takes priority over the default.
	got := switches.getCliFlag("batch-size", "5000", file.Get)
	if got.val != "2000" {
		t.Fatalf("test 1 failed: expected config value 2000; got %v", got.val)
	}
	// Test 2 - a missing key falls back to the default.
	got = switches.getCliFlag("max-cursors", "2", file.Get)
	if got.val != "2" {
		t.Fatalf("test 2 failed: expected default value 2; got %v", got.val)
	}
}

func TestFlagNameToEnvVar(t *testing.T) {
	if got := flagNameToEnvVar("max-batches-per-second"); got != "PGMIRROR_MAX_BATCHES_PER_SECOND" {
		t.Fatalf("unexpected env var name %v", got)
	}
}

func TestParseBoolFlag(t *testing.T) {
	cases := map[string]bool{"": false, "0": false, "false": false, "FALSE": false, "1": true, "true": true, "yes": true}
	for in, expected := range cases {
		if got := parseBoolFlag(in); got != expected {
			t.Fatalf("parseBoolFlag(%q): expected %v; got %v", in, expected, got)
		}
	}
}

func TestAddFlagStringArray(t *testing.T) {
	twelveFactorMode = false
	c := &cobra.Command{Use: "test"}
	var tables []string
	switches.addFlag(c, &tables, "ignore-table", "", false, "")
	if err := c.ParseFlags([]string{"--ignore-table", "customer", "-x", "pub.invoice"}); err != nil {
		t.Fatal(err)
	}
	if len(tables) != 2 || tables[0] != "customer" || tables[1] != "pub.invoice" {
		t.Fatalf("unexpected ignore-table values: %v", tables)
	}
}
