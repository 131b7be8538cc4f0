package scene

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration from a YAML file. Sections missing
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// ParseConfig decodes YAML over the defaults and validates the result
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate checks the geometric relationships the generator depends on
func (c *Config) Validate() error {
	var errs []error

	if c.FrameID == "" {
		errs = append(errs, errors.New("frameId is required"))
	}
	if c.Plane.Step <= 0 {
		errs = append(errs, fmt.Errorf("plane.step must be positive, got %g", c.Plane.Step))
	}
	if c.Plane.Max < c.Plane.Min {
		errs = append(errs, fmt.Errorf("plane.max (%g) is below plane.min (%g)", c.Plane.Max, c.Plane.Min))
	}
	if c.Box.Size <= 0 {
		errs = append(errs, fmt.Errorf("box.size must be positive, got %g", c.Box.Size))
	}
	if c.Box.Step <= 0 {
		errs = append(errs, fmt.Errorf("box.step must be positive, got %g", c.Box.Step))
	}
	if c.Merge.Radius < 0 {
		errs = append(errs, fmt.Errorf("merge.radius must not be negative, got %g", c.Merge.Radius))
	}
	// A radius at or above the plane step reaches neighbouring grid cells
	if c.Plane.Step > 0 && c.Merge.Radius >= c.Plane.Step {
		errs = append(errs, fmt.Errorf("merge.radius (%g) must be below plane.step (%g)", c.Merge.Radius, c.Plane.Step))
	}
	if c.Merge.MaxHeight < c.Merge.MinHeight {
		errs = append(errs, fmt.Errorf("merge.maxHeight (%g) is below merge.minHeight (%g)", c.Merge.MaxHeight, c.Merge.MinHeight))
	}
	if c.Noise.Amplitude < 0 {
		errs = append(errs, fmt.Errorf("noise.amplitude must not be negative, got %g", c.Noise.Amplitude))
	}
	if c.Pose.PositionRange < 0 {
		errs = append(errs, fmt.Errorf("pose.positionRange must not be negative, got %g", c.Pose.PositionRange))
	}
	if c.Pose.YawMax < 0 {
		errs = append(errs, fmt.Errorf("pose.yawMax must not be negative, got %g", c.Pose.YawMax))
	}
	if c.Timing.BoxInterval <= 0 {
		errs = append(errs, fmt.Errorf("timing.boxInterval must be positive, got %s", c.Timing.BoxInterval))
	}
	if c.Timing.PublishInterval <= 0 {
		errs = append(errs, fmt.Errorf("timing.publishInterval must be positive, got %s", c.Timing.PublishInterval))
	}
	if c.MQTT.Encoding != "" && c.MQTT.Encoding != EncodingJSON && c.MQTT.Encoding != EncodingBinary {
		errs = append(errs, fmt.Errorf("mqtt.encoding must be %q or %q, got %q", EncodingJSON, EncodingBinary, c.MQTT.Encoding))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}

	return errors.Join(errs...)
}
