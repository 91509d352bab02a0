package cmd

import (
	"fmt"
	"os"
	"strings"

	c "github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/helper"
	"github.com/relloyd/pgmirror/logger"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can do the job of processing all environment variables that would contain equivalent of the CLI flag
// structures used by pgmirror's actions.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	if os.Getenv(envVarTwelveFactorMode) != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarSubcommand       = c.EnvVarPrefix + "_" + "SUBCOMMAND"
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarSourceDsn        = c.EnvVarPrefix + "_" + "SOURCE_DSN"
	envVarTargetDsn        = c.EnvVarPrefix + "_" + "TARGET_DSN"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	twelveFactorVars = map[string]string{
		envVarCommand:    "",
		envVarSubcommand: "",
		envVarLogLevel:   "",
		envVarSourceDsn:  "",
		envVarTargetDsn:  "",
	}
	twelveFactorVarsSensitive = map[string]string{ // used to flag some of the above variables as being sensitive.
		envVarSourceDsn: "",
		envVarTargetDsn: "",
	}
)

// twelveFactorActions maps <command>[-<subcommand>] to the function that runs it.
// Flag values were read from the environment when the commands were set up.
var twelveFactorActions = map[string]func() error{
	"sync":        runSync,
	"ignore-list": runIgnoreList,
	"state-list":  runStateList,
}

func execute12FactorMode(acts map[string]func() error) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, c.LogLevelDefault)
	log := logger.NewLogger(c.ServiceName, logLevel, stackDumpOnPanic)
	log.Info("pgmirror is running in 12 Factor mode...")
	// Save values for the required variables.
	for k := range twelveFactorVars { // for each env variable that we need...
		// Save it and log it.
		twelveFactorVars[k] = os.Getenv(k)
		_, sensitive := twelveFactorVarsSensitive[k]
		if !sensitive { // if the env variable does not contain sensitive values...
			// Log the value.
			log.Debug(k, "=", twelveFactorVars[k])
		} else { // else output obfuscated value...
			log.Debug(k, "=", "<obfuscated>")
		}
	}
	// Use command and subcommand to fetch the appropriate action.
	action := strings.ToLower(twelveFactorVars[envVarCommand])
	if sub := twelveFactorVars[envVarSubcommand]; sub != "" {
		action = fmt.Sprintf("%v-%v", action, strings.ToLower(sub))
	}
	runner, ok := acts[action]
	if !ok {
		err = fmt.Errorf("invalid combination of command (%v) and subcommand (%v)", twelveFactorVars[envVarCommand], twelveFactorVars[envVarSubcommand])
		log.Error(err.Error())
		return
	}
	// Run the action.
	if err = runner(); err != nil {
		log.Error("Error: ", err)
	}
	return err
}
