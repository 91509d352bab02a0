package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/pgmirror/constants"
)

// GetEnvVar fetches OS environment variable.
// If the variable is not set it returns empty string.
// It also returns an error if there is a missing value AND mandatory == true.
func GetEnvVar(k string, mandatory bool) (string, error) {
	if value := os.Getenv(k); value != "" {
		return value, nil
	} else if mandatory {
		return "", fmt.Errorf("environment variable %v is not set", k)
	}
	return "", nil
}

// ReadValueFromEnv will read the env var name and populate the supplied val.
// If the env var is not set then return an error.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v
		return nil
	}
	return fmt.Errorf("value for environment variable %v not found", name)
}

// ReadValueFromEnvWithDefault will read the value of name from the environment into v.
// If it's not set then it will apply the supplied defaultValue and return v.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" {
		v = defaultValue
	}
	return
}

// FlagNameToEnvVar converts a CLI flag name into an environment variable using EnvVarPrefix and the
// name converted to upper with dashes converted to underscores, all separated by underscores.
func FlagNameToEnvVar(name string) string {
	n := strings.ReplaceAll(strings.TrimSpace(strings.ToUpper(name)), "-", "_")
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}
