// Package constants holds project-wide constant values shared across
// commands and packages.
package constants

const (
	// ConfigName is the base name of the config file (without extension).
	ConfigName = "config"

	// ConfigFormat is the config file format viper should expect.
	ConfigFormat = "yaml"

	// EnvPrefix is the prefix for environment variable overrides,
	// e.g. DHWANI_DATABASE_HOST overrides database.host.
	EnvPrefix = "DHWANI"
)
