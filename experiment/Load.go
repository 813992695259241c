package experiment

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/mpcrl/controller"
)

// LoadConfig reads an experiment Config from a YAML, JSON, or TOML
// file. The file is read through viper and decoded through JSON so
// that the JSON unmarshalers of weight initializers and solvers are
// used. Missing controller discounts default to
// controller.DefaultGamma.
func LoadConfig(filename string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetDefault("controller.gamma", controller.DefaultGamma)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not read config: %v",
			err)
	}

	data, err := json.Marshal(v.AllSettings())
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not encode "+
			"settings: %v", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not decode "+
			"config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	return c, nil
}

// SaveConfig writes a Config to filename as YAML
func SaveConfig(c Config, filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("saveConfig: could not encode config: %v", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("saveConfig: %v", err)
	}
	return nil
}
