// Package config loads and validates the adapter's YAML configuration.
//
// A configuration file has four sections: connection (platform and
// scheduler endpoints plus credentials), deployer (deployment defaults
// and operation budgets), cache (the schedule-name cache backend), and
// telemetry. Every section is optional except connection; absent keys
// keep their defaults.
package config
