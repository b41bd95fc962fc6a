package config

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config %q: %w", path, err)
	}
	return &cfg, nil
}
