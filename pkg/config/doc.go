// Package config loads the YAML runtime configuration of a commandable
// component: its subsystem tag, initial lifecycle state, poll intervals,
// command timeout, protocol log path and topic lists.
package config
