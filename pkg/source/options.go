package source

import "github.com/grafana/tempo-logsource/pkg/stats"

// Options are the runtime-immutable settings a log source surfaces to
// the core (spec §3 Log Source Options, §6 Configuration flags). They
// are owned by the source's configuration object; the Source borrows
// a reference and never mutates them after Init.
type Options struct {
	// PosTracking selects late-ack (true) vs early-ack (false).
	PosTracking bool `yaml:"pos_tracking" mapstructure:"pos_tracking"`
	// DynamicWindow selects, within late-ack, the dynamic vs static
	// store.
	DynamicWindow bool `yaml:"dynamic_window" mapstructure:"dynamic_window"`
	// InitWindowSize is the initial admission credit, and also the
	// static store's ring-buffer capacity.
	InitWindowSize int `yaml:"init_window_size" mapstructure:"init_window_size"`

	KeepHostname    bool `yaml:"keep_hostname" mapstructure:"keep_hostname"`
	ChainHostnames  bool `yaml:"chain_hostnames" mapstructure:"chain_hostnames"`
	SimpleHostname  bool `yaml:"simple_hostname" mapstructure:"simple_hostname"`
	LocalSource     bool `yaml:"local" mapstructure:"local"`
	KeepTimestamp   bool `yaml:"keep_timestamp" mapstructure:"keep_timestamp"`

	ProgramOverride string `yaml:"program_override" mapstructure:"program_override"`
	HostOverride    string `yaml:"host_override" mapstructure:"host_override"`

	Tags           []string `yaml:"tags" mapstructure:"tags"`
	SourceGroupTag string   `yaml:"source_group_tag" mapstructure:"source_group_tag"`

	StatsLevel stats.Level `yaml:"stats_level" mapstructure:"stats_level"`

	// SourceID identifies this source for stats keys and logging.
	SourceID string `yaml:"source_id" mapstructure:"source_id"`
}

// Validate reports a ConfigurationError (spec §7) for options that
// would make the source impossible to start.
func (o *Options) Validate() error {
	if o.InitWindowSize <= 0 {
		return errConfig("init_window_size must be > 0")
	}
	if o.SourceID == "" {
		return errConfig("source_id must not be empty")
	}
	return nil
}

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

func errConfig(msg string) error { return &configError{msg: msg} }
