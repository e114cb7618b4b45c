// Package config loads runtime configuration for the trackvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config (or $CONFIG).
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   server URL, e.g. http://127.0.0.1:4000 (a bare host:port is accepted)
//	-t int      request timeout (seconds)
//
// # JSON schema
//
// Durations are timex.Duration, so either "90s" strings or integer
// nanoseconds work:
//
//	{
//	  "server_url": "http://127.0.0.1:4000",
//	  "request_timeout": "6m"
//	}
package config
