package config

import "github.com/AnCIity/importlyrical/pkg/ondemand"

// Default configuration values.
const (
	DefaultDirectory    = ondemand.DefaultDirectory
	DefaultOutdir       = "dist"
	DefaultFormat       = "esm"
	DefaultPlatform     = "browser"
	DefaultTarget       = "es2020"
	DefaultBundle       = true
	DefaultServeHost    = "127.0.0.1"
	DefaultServePort    = 5173
	DefaultLogLevel     = "info"
	DefaultOTLPInsecure = false
)
