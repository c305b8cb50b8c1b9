// Package config loads the run configuration from a TOML file, an optional
// .env file and FUZZEXEC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/fuzzexec/internal/harness"
	"github.com/programme-lv/fuzzexec/internal/network"
	"github.com/programme-lv/fuzzexec/internal/xdg"
)

const AppName = "fuzzexec"

// Strategies
const (
	InProcess   = "inprocess"
	Fork        = "fork"
	ForkTimeout = "fork-timeout"
	Network     = "network"
	Interleaved = "interleaved"
)

var Strategies = []string{InProcess, Fork, ForkTimeout, Network, Interleaved}

type Config struct {
	Run       RunConfig       `toml:"run"`
	Fork      ForkConfig      `toml:"fork"`
	InProcess InProcessConfig `toml:"inprocess"`
	Network   NetworkConfig   `toml:"network"`
	Probe     ProbeConfig     `toml:"probe"`
	Capture   CaptureConfig   `toml:"capture"`
	Scorer    ScorerConfig    `toml:"scorer"`
	Solutions SolutionsConfig `toml:"solutions"`
	Events    EventsConfig    `toml:"events"`
	Log       LogConfig       `toml:"log"`
}

type RunConfig struct {
	Strategy string `toml:"strategy"`
	Harness  string `toml:"harness"`
	SeedsDir string `toml:"seeds_dir"`
	Loops    int    `toml:"loops"`
	// MaxExecsPerSec throttles trials; 0 means unlimited.
	MaxExecsPerSec float64  `toml:"max_execs_per_sec"`
	Objectives     []string `toml:"objectives"`
	// FeedbackMaps names map observers whose growth adds an input to the corpus.
	FeedbackMaps []string `toml:"feedback_maps"`
}

type ForkConfig struct {
	TimeoutMs   int  `toml:"timeout_ms"`
	MapSize     int  `toml:"map_size"`
	ChildOutput bool `toml:"child_output"`
}

type InProcessConfig struct {
	TimeoutMs int `toml:"timeout_ms"`
}

type NetworkConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Target         string `toml:"target"`
	TargetOptions  string `toml:"target_options"`
	TargetDir      string `toml:"target_dir"`
	StartupDelayUs int    `toml:"startup_delay_us"`
	ConnectRetries int    `toml:"connect_retries"`
	DialTimeoutMs  int    `toml:"dial_timeout_ms"`
	ReadTimeoutMs  int    `toml:"read_timeout_ms"`
	CleanupScript  string `toml:"cleanup_script"`
	MaxRestarts    int    `toml:"max_restarts"`
}

type ProbeConfig struct {
	// Command overrides the ping probe; "{addr}" is replaced with host:port.
	Command    []string `toml:"command"`
	WaitMs     int      `toml:"wait_ms"`
	DeadlineMs int      `toml:"deadline_ms"`
}

type CaptureConfig struct {
	Tcpdump   string `toml:"tcpdump"`
	Interface string `toml:"interface"`
	DumpDir   string `toml:"dump_dir"`
	KeepDumps bool   `toml:"keep_dumps"`
	MapName   string `toml:"map_name"`
	MapSize   int    `toml:"map_size"`
}

type ScorerConfig struct {
	Command   []string `toml:"command"`
	Dir       string   `toml:"dir"`
	TimeoutMs int      `toml:"timeout_ms"`
}

type SolutionsConfig struct {
	Dir      string `toml:"dir"`
	S3Bucket string `toml:"s3_bucket"`
	S3Prefix string `toml:"s3_prefix"`
	S3Region string `toml:"s3_region"`
}

type EventsConfig struct {
	Quiet       bool   `toml:"quiet"`
	Summary     bool   `toml:"summary"`
	NatsUrl     string `toml:"nats_url"`
	NatsSubject string `toml:"nats_subject"`
	SqsQueueUrl string `toml:"sqs_queue_url"`
	SqsRegion   string `toml:"sqs_region"`
	MetricsAddr string `toml:"metrics_addr"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	TimeFormat string `toml:"time_format"`
}

// Load reads path (when not empty), then .env and the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()
		if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	cfg.applyDefaults(xdg.NewXDGDirs())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML without reading files or the environment.
func Parse(b []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults(xdg.NewXDGDirs())
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"FUZZEXEC_STRATEGY":      &c.Run.Strategy,
		"FUZZEXEC_HARNESS":       &c.Run.Harness,
		"FUZZEXEC_SEEDS_DIR":     &c.Run.SeedsDir,
		"FUZZEXEC_NETWORK_HOST":  &c.Network.Host,
		"FUZZEXEC_TARGET":        &c.Network.Target,
		"FUZZEXEC_SOLUTIONS_DIR": &c.Solutions.Dir,
		"FUZZEXEC_S3_BUCKET":     &c.Solutions.S3Bucket,
		"FUZZEXEC_NATS_URL":      &c.Events.NatsUrl,
		"FUZZEXEC_SQS_QUEUE_URL": &c.Events.SqsQueueUrl,
		"FUZZEXEC_METRICS_ADDR":  &c.Events.MetricsAddr,
		"FUZZEXEC_LOG_LEVEL":     &c.Log.Level,
	}
	for k, dst := range str {
		if v := getenv(k); v != "" {
			*dst = v
		}
	}

	num := map[string]*int{
		"FUZZEXEC_NETWORK_PORT": &c.Network.Port,
		"FUZZEXEC_LOOPS":        &c.Run.Loops,
	}
	for k, dst := range num {
		v := getenv(k)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", k, v, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) applyDefaults(dirs *xdg.XDGDirs) {
	setStr := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}

	setStr(&c.Run.Strategy, InProcess)
	setStr(&c.Run.Harness, "baby")
	setStr(&c.Run.SeedsDir, "seeds")
	if len(c.Run.Objectives) == 0 {
		c.Run.Objectives = []string{"crash", "timeout"}
	}

	setInt(&c.Fork.MapSize, 16)

	setStr(&c.Network.Host, "127.0.0.1")
	setInt(&c.Network.Port, 8082)
	setInt(&c.Network.StartupDelayUs, 10000)
	setInt(&c.Network.ConnectRetries, 3)
	setInt(&c.Network.DialTimeoutMs, 2000)
	setInt(&c.Network.ReadTimeoutMs, 5000)

	setInt(&c.Probe.WaitMs, 1000)

	setStr(&c.Capture.Tcpdump, "tcpdump")
	setStr(&c.Capture.Interface, "lo")
	setStr(&c.Capture.DumpDir, dirs.AppRuntimeDir(AppName))
	setStr(&c.Capture.MapName, "states")
	setInt(&c.Capture.MapSize, 51*51)

	setInt(&c.Scorer.TimeoutMs, 60000)
	if len(c.Run.FeedbackMaps) == 0 {
		c.Run.FeedbackMaps = []string{harness.SignalsMap, c.Capture.MapName}
	}

	setStr(&c.Solutions.Dir, "./crashes")
	setStr(&c.Solutions.S3Region, "eu-central-1")

	setStr(&c.Events.NatsSubject, "fuzzexec.events")
	setStr(&c.Events.SqsRegion, "eu-central-1")

	setStr(&c.Log.Level, "info")
	setStr(&c.Log.Format, "text")
	setStr(&c.Log.TimeFormat, time.TimeOnly)
}

func (c *Config) Validate() error {
	if !slices.Contains(Strategies, c.Run.Strategy) {
		return fmt.Errorf("unknown strategy %q (expected one of %v)", c.Run.Strategy, Strategies)
	}
	usesNetwork := c.Run.Strategy == Network || c.Run.Strategy == Interleaved
	if !usesNetwork {
		if _, err := harness.Lookup(c.Run.Harness); err != nil {
			return err
		}
	}
	if usesNetwork && c.Network.Port <= 0 {
		return fmt.Errorf("network port must be positive, got %d", c.Network.Port)
	}
	if c.Run.Strategy == Interleaved && len(c.Scorer.Command) == 0 {
		return errors.New("interleaved strategy requires scorer.command")
	}
	if c.Run.Strategy == ForkTimeout && c.Fork.TimeoutMs <= 0 {
		return errors.New("fork-timeout strategy requires fork.timeout_ms")
	}
	if c.Network.MaxRestarts < 0 {
		return fmt.Errorf("network max_restarts must not be negative, got %d", c.Network.MaxRestarts)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// NetworkExecutor converts the [network] section.
func (c *Config) NetworkExecutor() network.Config {
	return network.Config{
		Host:           c.Network.Host,
		Port:           c.Network.Port,
		StartupDelay:   time.Duration(c.Network.StartupDelayUs) * time.Microsecond,
		ConnectRetries: c.Network.ConnectRetries,
		DialTimeout:    time.Duration(c.Network.DialTimeoutMs) * time.Millisecond,
		ReadTimeout:    time.Duration(c.Network.ReadTimeoutMs) * time.Millisecond,
		CleanupScript:  c.Network.CleanupScript,
		MaxRestarts:    c.Network.MaxRestarts,
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c *Config) ForkTimeout() time.Duration      { return ms(c.Fork.TimeoutMs) }
func (c *Config) InProcessTimeout() time.Duration { return ms(c.InProcess.TimeoutMs) }
func (c *Config) ProbeWait() time.Duration        { return ms(c.Probe.WaitMs) }
func (c *Config) ProbeDeadline() time.Duration    { return ms(c.Probe.DeadlineMs) }
func (c *Config) ScorerTimeout() time.Duration    { return ms(c.Scorer.TimeoutMs) }
