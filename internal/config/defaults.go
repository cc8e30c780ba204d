package config

import "errors"

const (
	DefaultEnvironment = "development"
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8080
	DefaultHomeDir     = "~/.brandgen"
)

var (
	DefaultGenerateTopic = "brandgen/generations/requests"
	DefaultStorageDomain = "brandgen.dev"
)

var (
	ErrHomeNotSet      = errors.New("brandgen home directory is not set")
	ErrConfigLoaded    = errors.New("config already loaded")
	ErrInvalidDBDriver = errors.New("unsupported database driver")
)
