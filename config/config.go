/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration sections from YAML/JSON sources and environment variables.
// Every section implements Config and may scope its keys with KeyPrefixProvider.
package config

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// BytesCount is a size in bytes that may be configured in human-readable form ("100M", "1G").
type BytesCount uint64
