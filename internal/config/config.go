// Package config loads the go-sapien configuration: defaults, then an
// optional YAML file, then SAPIEN_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/mcp23017"
	"github.com/teslashibe/go-sapien/pkg/motion"
	"github.com/teslashibe/go-sapien/pkg/notify"
)

// Default network settings.
const (
	DefaultListen   = ":8080"
	DefaultRobotURL = "http://localhost:8080"
	DefaultI2CBus   = ""
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full body controller configuration.
type Config struct {
	LogLevel   string     `yaml:"log_level" json:"log_level"`
	I2C        I2C        `yaml:"i2c" json:"i2c"`
	Timing     Timing     `yaml:"timing" json:"timing"`
	Turn       Turn       `yaml:"turn" json:"turn"`
	Walk       Walk       `yaml:"walk" json:"walk"`
	QueueDepth int        `yaml:"queue_depth" json:"queue_depth"`
	Worker     body.Hints `yaml:"worker" json:"worker"`
	HTTP       HTTP       `yaml:"http" json:"http"`
	Master     Master     `yaml:"master" json:"master"`
	Redis      Redis      `yaml:"redis" json:"redis"`
}

// I2C selects the expander bus.
type I2C struct {
	// Bus is the periph bus name; empty picks the first available bus.
	Bus       string `yaml:"bus" json:"bus"`
	Primary   uint16 `yaml:"primary" json:"primary"`
	Secondary uint16 `yaml:"secondary" json:"secondary"`
	// Simulate drives in-memory expanders instead of hardware.
	Simulate bool `yaml:"simulate" json:"simulate"`
}

// Timing mirrors motion.Timing plus the dispatcher pauses.
type Timing struct {
	Tick       time.Duration `yaml:"tick" json:"tick"`
	HipSettle  time.Duration `yaml:"hip_settle" json:"hip_settle"`
	YawPoll    time.Duration `yaml:"yaw_poll" json:"yaw_poll"`
	YawPolls   int           `yaml:"yaw_polls" json:"yaw_polls"`
	TurnSettle time.Duration `yaml:"turn_settle" json:"turn_settle"`
	CommandGap time.Duration `yaml:"command_gap" json:"command_gap"`
	StopSettle time.Duration `yaml:"stop_settle" json:"stop_settle"`
}

// Turn mirrors motion.TurnLimits.
type Turn struct {
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
	StuckBand float64 `yaml:"stuck_band" json:"stuck_band"`
	MaxErrors int     `yaml:"max_errors" json:"max_errors"`
	MaxSteps  int     `yaml:"max_steps" json:"max_steps"`
}

// Walk holds the forward walking guard.
type Walk struct {
	StopDistanceMM float64 `yaml:"stop_distance_mm" json:"stop_distance_mm"`
}

// HTTP configures the API server.
type HTTP struct {
	Listen string `yaml:"listen" json:"listen"`
}

// Master is the process that receives terminal notifications over HTTP.
// An empty URL disables it.
type Master struct {
	URL    string `yaml:"url" json:"url"`
	Buffer int    `yaml:"buffer" json:"buffer"`
}

// Redis publishes notifications. An empty Addr disables it.
type Redis struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
	Channel  string `yaml:"channel" json:"channel"`
	History  int    `yaml:"history" json:"history"`
}

// Default returns the firmware defaults.
func Default() Config {
	t := motion.DefaultTiming()
	l := motion.DefaultTurnLimits()
	return Config{
		LogLevel: "info",
		I2C: I2C{
			Bus:       DefaultI2CBus,
			Primary:   mcp23017.AddrPrimary,
			Secondary: mcp23017.AddrSecondary,
		},
		Timing: Timing{
			Tick:       t.Tick,
			HipSettle:  t.HipSettle,
			YawPoll:    t.YawPoll,
			YawPolls:   t.YawPolls,
			TurnSettle: t.TurnSettle,
			CommandGap: body.DefaultCommandGap,
			StopSettle: body.DefaultStopSettle,
		},
		Turn: Turn{
			Tolerance: l.Tolerance,
			StuckBand: l.StuckBand,
			MaxErrors: l.MaxErrors,
			MaxSteps:  l.MaxSteps,
		},
		Walk:       Walk{StopDistanceMM: motion.DefaultStopDistanceMM},
		QueueDepth: body.DefaultQueueDepth,
		Worker:     body.NoHints,
		HTTP:       HTTP{Listen: DefaultListen},
		Master:     Master{Buffer: notify.DefaultMasterBuffer},
		Redis:      Redis{Channel: notify.DefaultChannel, History: notify.DefaultHistory},
	}
}

// Load reads path (if not empty) over the defaults, applies the environment
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SAPIEN_* variables.
func (c *Config) ApplyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SAPIEN_LOG_LEVEL", &c.LogLevel)
	str("SAPIEN_I2C_BUS", &c.I2C.Bus)
	if v := os.Getenv("SAPIEN_SIMULATE"); v != "" {
		c.I2C.Simulate = v != "false" && v != "0"
	}
	dur("SAPIEN_TICK", &c.Timing.Tick)
	dur("SAPIEN_COMMAND_GAP", &c.Timing.CommandGap)
	num("SAPIEN_QUEUE_DEPTH", &c.QueueDepth)
	num("SAPIEN_WORKER_CORE", &c.Worker.Core)
	num("SAPIEN_WORKER_PRIORITY", &c.Worker.Priority)
	str("SAPIEN_LISTEN", &c.HTTP.Listen)
	str("SAPIEN_MASTER_URL", &c.Master.URL)
	str("SAPIEN_REDIS_ADDR", &c.Redis.Addr)
	str("SAPIEN_REDIS_PASSWORD", &c.Redis.Password)
	str("SAPIEN_REDIS_CHANNEL", &c.Redis.Channel)

	return errors.Join(errs...)
}

// Validate checks ranges.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Timing.Tick <= 0 {
		bad("timing.tick must be positive, got %s", c.Timing.Tick)
	}
	if c.Timing.YawPoll <= 0 {
		bad("timing.yaw_poll must be positive, got %s", c.Timing.YawPoll)
	}
	if c.Timing.YawPolls < 1 {
		bad("timing.yaw_polls must be at least 1, got %d", c.Timing.YawPolls)
	}
	for name, d := range map[string]time.Duration{
		"hip_settle":  c.Timing.HipSettle,
		"turn_settle": c.Timing.TurnSettle,
		"command_gap": c.Timing.CommandGap,
		"stop_settle": c.Timing.StopSettle,
	} {
		if d < 0 {
			bad("timing.%s must not be negative, got %s", name, d)
		}
	}
	if c.Turn.Tolerance <= 0 {
		bad("turn.tolerance must be positive, got %g", c.Turn.Tolerance)
	}
	if c.Turn.StuckBand < 0 {
		bad("turn.stuck_band must not be negative, got %g", c.Turn.StuckBand)
	}
	if c.Turn.MaxErrors < 1 || c.Turn.MaxSteps < 1 {
		bad("turn.max_errors and turn.max_steps must be at least 1")
	}
	if c.Walk.StopDistanceMM < 0 {
		bad("walk.stop_distance_mm must not be negative, got %g", c.Walk.StopDistanceMM)
	}
	if c.QueueDepth < 1 {
		bad("queue_depth must be at least 1, got %d", c.QueueDepth)
	}
	if c.I2C.Primary == c.I2C.Secondary {
		bad("i2c.primary and i2c.secondary must differ, both %#02x", c.I2C.Primary)
	}
	if c.I2C.Primary > 0x7f || c.I2C.Secondary > 0x7f {
		bad("i2c addresses must be 7-bit")
	}
	if c.HTTP.Listen == "" {
		bad("http.listen is required")
	}
	if c.Master.Buffer < 1 {
		bad("master.buffer must be at least 1, got %d", c.Master.Buffer)
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		bad("redis.channel is required when redis.addr is set")
	}

	return errors.Join(errs...)
}

// MotionTiming converts the timing section for motion.WithTiming.
func (c Config) MotionTiming() motion.Timing {
	return motion.Timing{
		Tick:       c.Timing.Tick,
		HipSettle:  c.Timing.HipSettle,
		YawPoll:    c.Timing.YawPoll,
		YawPolls:   c.Timing.YawPolls,
		TurnSettle: c.Timing.TurnSettle,
	}
}

// TurnLimits converts the turn section for motion.WithTurnLimits.
func (c Config) TurnLimits() motion.TurnLimits {
	return motion.TurnLimits{
		Tolerance: c.Turn.Tolerance,
		StuckBand: c.Turn.StuckBand,
		MaxErrors: c.Turn.MaxErrors,
		MaxSteps:  c.Turn.MaxSteps,
	}
}

// RobotURL returns the API base URL from SAPIEN_ROBOT_URL.
// Falls back to the provided default if not set.
func RobotURL(defaultURL string) string {
	if u := os.Getenv("SAPIEN_ROBOT_URL"); u != "" {
		return u
	}
	return defaultURL
}
