package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ProjectConfig is the shape of an optional veyl.yaml sitting next to a
// module's entry file. It only ever tunes analyzer strictness; it cannot
// change language semantics.
type ProjectConfig struct {
	Strict struct {
		RejectUnreachableArms bool `yaml:"reject_unreachable_arms"`
	} `yaml:"strict"`
}

// LoadProjectConfig reads veyl.yaml at path. A missing file is not an
// error: it yields DefaultStrictMode.
func LoadProjectConfig(path string) (StrictMode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultStrictMode, nil
		}
		return DefaultStrictMode, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultStrictMode, err
	}

	return StrictMode{RejectUnreachableArms: cfg.Strict.RejectUnreachableArms}, nil
}
