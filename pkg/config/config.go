package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/salbus-protocol/salbus-go/pkg/lifecycle"
)

// Defaults applied by Parse when the file omits a field.
const (
	DefaultCommandPollInterval = 100 * time.Millisecond
	DefaultAckPollInterval     = 100 * time.Millisecond
	DefaultCommandTimeout      = 5 * time.Second
)

// DefaultCommands are the lifecycle command topics every commandable
// component serves.
var DefaultCommands = []string{
	"enterControl", "start", "enable", "disable", "standby", "exitControl",
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "100ms" or "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the configured value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the runtime configuration of one commandable component.
type Config struct {
	// Subsystem is the bus subsystem tag. Required.
	Subsystem string `yaml:"subsystem"`

	// InitialState is the lifecycle state the component starts in.
	// Defaults to STANDBY.
	InitialState string `yaml:"initial_state"`

	// CommandPollInterval is the sleep between inbound command polls.
	CommandPollInterval Duration `yaml:"command_poll_interval"`

	// AckPollInterval is the sleep between acknowledgment polls.
	AckPollInterval Duration `yaml:"ack_poll_interval"`

	// DefaultTimeout is the completion wait for commands issued without an
	// explicit timeout.
	DefaultTimeout Duration `yaml:"default_timeout"`

	// ProtocolLog is the path of the CBOR protocol log file. Empty
	// disables file logging.
	ProtocolLog string `yaml:"protocol_log"`

	// Commands are the command topic names the component serves. Defaults
	// to the six lifecycle commands.
	Commands []string `yaml:"commands"`

	// Events are the logevent topic names the component publishes or
	// subscribes to.
	Events []string `yaml:"events"`

	// Telemetry are the telemetry topic names.
	Telemetry []string `yaml:"telemetry"`
}

// State returns the parsed initial lifecycle state.
func (c *Config) State() (lifecycle.State, error) {
	return lifecycle.ParseState(c.InitialState)
}

// Parse parses and validates a configuration from YAML bytes, applying
// defaults for omitted fields.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}

	if cfg.Subsystem == "" {
		return nil, &LoadError{
			Message: "subsystem is required",
		}
	}

	if cfg.InitialState == "" {
		cfg.InitialState = lifecycle.Standby.String()
	}
	if _, err := lifecycle.ParseState(cfg.InitialState); err != nil {
		return nil, &LoadError{
			Message: fmt.Sprintf("invalid initial_state %q", cfg.InitialState),
			Cause:   err,
		}
	}

	if cfg.CommandPollInterval <= 0 {
		cfg.CommandPollInterval = Duration(DefaultCommandPollInterval)
	}
	if cfg.AckPollInterval <= 0 {
		cfg.AckPollInterval = Duration(DefaultAckPollInterval)
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = Duration(DefaultCommandTimeout)
	}
	if len(cfg.Commands) == 0 {
		cfg.Commands = append([]string(nil), DefaultCommands...)
	}

	return &cfg, nil
}

// Load loads a configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{
			File:    path,
			Message: err.Error(),
		}
	}

	return cfg, nil
}

// LoadError provides details about a configuration loading error.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	if e.File == "" {
		return e.Message
	}
	return e.File + ": " + e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
