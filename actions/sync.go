package actions

import (
	"fmt"
	"strings"

	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/helper"
	"github.com/robfig/cron/v3"
)

type SyncConfig struct {
	// Connections
	SourceType   string `errorTxt:"source type" mandatory:"yes"`
	SourceDsn    string `errorTxt:"source DSN" mandatory:"yes"`
	SourceSchema string `errorTxt:"source schema" mandatory:"yes"`
	TargetDsn    string `errorTxt:"target DSN" mandatory:"yes"`
	TargetSchema string `errorTxt:"target schema" mandatory:"yes"`
	StateSchema  string `errorTxt:"state schema" mandatory:"yes"`
	// Sync Specific
	BatchSize           int    `errorTxt:"batch size" mandatory:"yes"`
	MaxCursors          int    `errorTxt:"max cursors"`
	SchemaPolicy        string `errorTxt:"schema policy" mandatory:"yes"`
	SkipConverged       bool
	FullSync            bool
	IgnoreTables        []string
	IgnoreFile          string `errorTxt:"ignore file" mandatory:"yes"`
	MaxBatchesPerSecond int
	// Generic
	RepeatInterval            int    `errorTxt:"repeat interval"`
	Schedule                  string `errorTxt:"cron schedule"`
	ConnectTimeoutSeconds     int
	StatsDumpFrequencySeconds int
	StatusPort                int // 0 disables the status server
	LogLevel                  string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic          bool
}

// NewSyncConfig returns a SyncConfig holding the defaults.
func NewSyncConfig() *SyncConfig {
	return &SyncConfig{
		SourceType:            constants.ConnectionTypeOdbc,
		SourceSchema:          constants.SourceSchemaDefault,
		TargetSchema:          constants.TargetSchemaDefault,
		StateSchema:           constants.StateSchemaDefault,
		BatchSize:             constants.TableSyncBatchSizeDefault,
		MaxCursors:            constants.MaxCursorsDefault,
		SchemaPolicy:          constants.SchemaPolicyText,
		IgnoreFile:            constants.IgnoreFileDefault,
		ConnectTimeoutSeconds: constants.ConnectTimeoutSecondsDefault,
		LogLevel:              constants.LogLevelDefault,
	}
}

// Validate checks that mandatory values are set and that the values make sense together.
func (c *SyncConfig) Validate() error {
	if err := helper.ValidateStructIsPopulated(c); err != nil {
		return err
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be greater than 0, got %v", c.BatchSize)
	}
	if c.MaxCursors < 0 {
		return fmt.Errorf("max cursors must be 0 (unbounded) or more, got %v", c.MaxCursors)
	}
	if c.MaxBatchesPerSecond < 0 {
		return fmt.Errorf("max batches per second must be 0 (unlimited) or more, got %v", c.MaxBatchesPerSecond)
	}
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		return fmt.Errorf("status port must be between 0 (disabled) and 65535, got %v", c.StatusPort)
	}
	if c.RepeatInterval < 0 {
		return fmt.Errorf("repeat interval must be 0 (disabled) or more, got %v", c.RepeatInterval)
	}
	switch strings.ToLower(c.SchemaPolicy) {
	case constants.SchemaPolicyText, constants.SchemaPolicyTyped:
	default:
		return fmt.Errorf("schema policy must be %q or %q, got %q", constants.SchemaPolicyText, constants.SchemaPolicyTyped, c.SchemaPolicy)
	}
	if c.Schedule != "" {
		if c.RepeatInterval > 0 {
			return fmt.Errorf("supply a repeat interval or a schedule, not both")
		}
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q: %v", c.Schedule, err)
		}
	}
	return nil
}

// NativeBinds returns true if temporal and binary values should be bound natively.
func (c *SyncConfig) NativeBinds() bool {
	return strings.ToLower(c.SchemaPolicy) == constants.SchemaPolicyTyped
}

// IgnoreIdentifiers returns the --ignore-table values as lowercase schema-qualified identifiers.
func (c *SyncConfig) IgnoreIdentifiers() []string {
	retval := make([]string, 0, len(c.IgnoreTables))
	for _, name := range c.IgnoreTables {
		for _, n := range helper.CsvToStringSliceTrimSpaces(name) {
			if id := helper.NormaliseTableIdentifier(c.SourceSchema, n); id != "" {
				retval = append(retval, id)
			}
		}
	}
	return retval
}
