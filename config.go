package impulse

import (
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_WORKERS            = 1
	DEFAULT_CONSTRAIN_MAX_ITER = 5
	// MAX_TIME_DILATION bounds the time dilation in both directions
	MAX_TIME_DILATION = 10.0
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// CollisionMode selects between testing the current poses only and sweeping the bodies
// over the tick
type CollisionMode uint8

const (
	CollisionContinuous CollisionMode = iota
	CollisionStatic
)

func (m CollisionMode) String() string {
	switch m {
	case CollisionContinuous:
		return "continuous"
	case CollisionStatic:
		return "static"
	default:
		return "unknown"
	}
}

func (m *CollisionMode) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "continuous", "dynamic":
		*m = CollisionContinuous
	case "static":
		*m = CollisionStatic
	default:
		return errors.Wrapf(ErrInvalidConfig, "collision mode %q at line %d", name, value.Line)
	}

	return nil
}

func (m CollisionMode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// Config drives a World
type Config struct {
	// Disabled worlds skip every step
	Enabled bool `yaml:"enabled"`
	// Scale applied to the frame duration, 0 pauses the simulation
	TimeDilation float64 `yaml:"time_dilation"`
	// m/s²
	Gravity          mgl64.Vec3    `yaml:"gravity"`
	ConstrainMaxIter int           `yaml:"constrain_max_iter"`
	CollisionMode    CollisionMode `yaml:"collision_mode"`
	// Longest step simulated at once, 0 for no limit
	MaxTimeStep float64 `yaml:"max_time_step"`
	// Goroutines used by the broadphase
	Workers int `yaml:"workers"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		TimeDilation:     1,
		Gravity:          mgl64.Vec3{0, -9.8, 0},
		ConstrainMaxIter: DEFAULT_CONSTRAIN_MAX_ITER,
		CollisionMode:    CollisionContinuous,
		MaxTimeStep:      0,
		Workers:          DEFAULT_WORKERS,
	}
}

// LoadConfig reads a YAML file over DefaultConfig
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}

	return config, nil
}

// ParseConfig decodes YAML over DefaultConfig, then validates the result. Missing keys keep
// their default value.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate rejects values no step can run with. The time dilation is clamped rather than
// rejected.
func (c *Config) Validate() error {
	if c.ConstrainMaxIter < 1 {
		return errors.Wrapf(ErrInvalidConfig, "constrain_max_iter must be at least 1, got %d", c.ConstrainMaxIter)
	}
	if c.MaxTimeStep < 0 || !isFinite(c.MaxTimeStep) {
		return errors.Wrapf(ErrInvalidConfig, "max_time_step must be positive or 0, got %v", c.MaxTimeStep)
	}
	if c.Workers < 1 {
		return errors.Wrapf(ErrInvalidConfig, "workers must be at least 1, got %d", c.Workers)
	}
	if c.CollisionMode > CollisionStatic {
		return errors.Wrapf(ErrInvalidConfig, "collision mode %d", c.CollisionMode)
	}
	for i := range 3 {
		if !isFinite(c.Gravity[i]) {
			return errors.Wrapf(ErrInvalidConfig, "gravity %v", c.Gravity)
		}
	}
	if !isFinite(c.TimeDilation) {
		return errors.Wrapf(ErrInvalidConfig, "time_dilation %v", c.TimeDilation)
	}

	c.TimeDilation = clamp(c.TimeDilation, -MAX_TIME_DILATION, MAX_TIME_DILATION)

	return nil
}

// TimeStep derives the duration of a step from the duration of a host frame.
// It returns 0 when the step must be skipped.
func (c *Config) TimeStep(frameDt float64) float64 {
	if !c.Enabled || c.TimeDilation == 0 {
		return 0
	}

	dt := frameDt * clamp(c.TimeDilation, -MAX_TIME_DILATION, MAX_TIME_DILATION)
	if dt <= 0 || !isFinite(dt) {
		return 0
	}
	if c.MaxTimeStep > 0 {
		dt = min(dt, c.MaxTimeStep)
	}

	return dt
}

func clamp[T constraints.Ordered](value, low, high T) T {
	return max(low, min(high, value))
}
