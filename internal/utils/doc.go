// Package utils holds the CLI plumbing shared by commands: ConfigurationLoader
// (Viper with environment overrides and mapstructure decode hooks), LoggerFactory
// (zap, structured or console) and CommandContextAccessor.
package utils
