// Command logsource loads source options and constructs a Source with
// its stats registry. It attaches no transport, downstream pipe or
// persistent state (all external collaborators, spec §1) and does not
// start the reader loop.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/tempo-logsource/pkg/source"
	"github.com/grafana/tempo-logsource/pkg/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

func main() {
	configPath := flag.String("config.file", "", "path to a YAML config file for the source options")
	flag.Parse()

	logger := log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	opts, err := loadOptions(*configPath)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load config", "err", err)
		os.Exit(1)
	}

	statsReg := stats.NewRegistry(prometheus.DefaultRegisterer, opts.SourceID, opts.StatsLevel)

	_, err = source.New(opts, noopResolver{}, nil, nil, nil, statsReg, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to construct source", "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "source constructed", "source_id", opts.SourceID)
}

// loadOptions reads source.Options from a YAML file via viper, the
// way cmd/tempo/app/config.go layers env overrides on top of a YAML
// config file. No wire grammar is specified by the spec (§1
// Non-goals) -- this is the host process's own config loading.
func loadOptions(path string) (*source.Options, error) {
	v := viper.New()
	v.SetDefault("init_window_size", 100)
	v.SetDefault("source_id", "default")
	v.SetEnvPrefix("LOGSOURCE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	opts := &source.Options{}
	if err := v.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return opts, nil
}

// noopResolver is a placeholder HostResolver; a real one is a
// transport-layer concern (spec §4.4), out of scope here.
type noopResolver struct{}

func (noopResolver) Resolve(senderAddr string) string { return senderAddr }
