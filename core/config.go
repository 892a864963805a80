package core

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// CoreConfig carries the process-wide, non-layer-specific settings.
type CoreConfig struct {
	LogLevel       string        `yaml:"log_level"`
	QueueCapacity  int           `yaml:"queue_capacity"`
	PitLifetime    time.Duration `yaml:"pit_lifetime"`
	RibAgeInterval time.Duration `yaml:"rib_age_interval"`
	MgmtAddr       string        `yaml:"mgmt_addr"`
}

// FaceConfig describes one statically-configured face to dial at startup.
type FaceConfig struct {
	Kind string `yaml:"kind"` // "udp" or "ws"
	Addr string `yaml:"addr"`
}

// AutoconfigConfig configures the §4.7 handshake. The top-level fields
// configure this node as a repository soliciting forwarders; Serve
// configures it as a forwarder answering solicitations instead (a node
// is either a client or a server of the handshake, never both).
type AutoconfigConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Addr              string        `yaml:"addr"`
	Port              int           `yaml:"port"`
	BroadcastAddr     string        `yaml:"broadcast_addr"`
	BroadcastPort     int           `yaml:"broadcast_port"`
	SolicitationTries int           `yaml:"solicitation_max_retry"`
	SolicitationEvery time.Duration `yaml:"solicitation_timeout"`

	Serve AutoconfigServeConfig `yaml:"serve"`
}

// AutoconfigServeConfig configures the forwarder side of §4.7: the
// address a joining repository should dial back, and which prefixes this
// node is willing to hand off to one.
type AutoconfigServeConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Prefixes []string `yaml:"prefixes"`
}

// Config is the top-level YAML document read from the config file argument.
type Config struct {
	Core       CoreConfig       `yaml:"core"`
	Faces      []FaceConfig     `yaml:"faces"`
	Autoconfig AutoconfigConfig `yaml:"autoconfig"`
}

// DefaultConfig returns a Config with conservative defaults, mirroring the
// teacher's core.DefaultConfig(); the config file is decoded on top of it,
// so fields the file omits keep these values.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			LogLevel:       "INFO",
			QueueCapacity:  1024,
			PitLifetime:    4 * time.Second,
			RibAgeInterval: 5 * time.Second,
			MgmtAddr:       "127.0.0.1:6363",
		},
		Autoconfig: AutoconfigConfig{
			BroadcastPort:     9000,
			SolicitationTries: 3,
			SolicitationEvery: 2 * time.Second,
		},
	}
}

// ReadYAMLConfig reads and decodes a YAML config file into cfg, matching
// the teacher's toolutils.ReadYaml helper used by fw/cmd/cmd.go.
func ReadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
