package splat_sort

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default sort policy values. They are tuning constants, not derived quantities.
const (
	// DefaultRotationChangeCosine is the cosine between the current and last submitted forward
	// vectors at or below which the camera counts as rotated.
	DefaultRotationChangeCosine = 0.95

	// DefaultTranslationChange is the camera translation, in world units, at or above which a
	// resort is requested.
	DefaultTranslationChange = 1.0

	// DefaultFrustumSlack is subtracted from cos(halfFov) before the angular visibility tests,
	// in cosine units.
	DefaultFrustumSlack = 0.4

	// DefaultMaximumDistanceToSort is the camera distance up to which buckets receive per-splat
	// ordering. Buckets beyond it keep their storage order.
	DefaultMaximumDistanceToSort = 125.0
)

// ErrInvalidConfig is returned for a sort policy value outside its valid range.
var ErrInvalidConfig = errors.New("invalid sort config")

// Config holds the culling and resort policy shared by the view change detector, the
// visibility culler, and the node orderer. Values are used as given, so zero is a real
// setting: a FrustumSlack of 0 is the exact view cone, a MaximumDistanceToSort of 0 disables
// per-splat ordering. Start from DefaultConfig to override single fields.
type Config struct {
	RotationChangeCosine  float32 `yaml:"rotation_change_cosine"`
	TranslationChange     float32 `yaml:"translation_change"`
	FrustumSlack          float32 `yaml:"frustum_slack"`
	MaximumDistanceToSort float32 `yaml:"maximum_distance_to_sort"`
}

// DefaultConfig returns the default sort policy.
//
// Returns:
//   - Config: the default policy values
func DefaultConfig() Config {
	return Config{
		RotationChangeCosine:  DefaultRotationChangeCosine,
		TranslationChange:     DefaultTranslationChange,
		FrustumSlack:          DefaultFrustumSlack,
		MaximumDistanceToSort: DefaultMaximumDistanceToSort,
	}
}

// Validate checks every field against its valid range.
//
// Returns:
//   - error: ErrInvalidConfig naming the first offending field, or nil
func (c Config) Validate() error {
	switch {
	case c.RotationChangeCosine < -1 || c.RotationChangeCosine > 1:
		return fmt.Errorf("%w: rotation_change_cosine %v outside [-1, 1]", ErrInvalidConfig, c.RotationChangeCosine)
	case c.TranslationChange < 0:
		return fmt.Errorf("%w: translation_change %v is negative", ErrInvalidConfig, c.TranslationChange)
	case c.FrustumSlack < 0:
		return fmt.Errorf("%w: frustum_slack %v is negative", ErrInvalidConfig, c.FrustumSlack)
	case c.MaximumDistanceToSort < 0:
		return fmt.Errorf("%w: maximum_distance_to_sort %v is negative", ErrInvalidConfig, c.MaximumDistanceToSort)
	}
	return nil
}

// ParseConfig decodes a YAML sort policy over DefaultConfig. Missing keys keep their default
// values; keys present in the document, including explicit zeros, replace them.
//
// Parameters:
//   - data: YAML document bytes
//
// Returns:
//   - Config: the decoded policy
//   - error: error if the document is malformed or a value is out of range
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("splat sort: parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("splat sort: %w", err)
	}
	return c, nil
}

// LoadConfig reads and decodes a YAML sort policy file.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Config: the decoded policy
//   - error: error if the file cannot be read or parsed
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("splat sort: read config %s: %w", path, err)
	}
	return ParseConfig(data)
}
