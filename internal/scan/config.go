package scan

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ModuleConfig selects which dataset a module runs against and carries
// opaque, module-specific options.
type ModuleConfig struct {
	DatasetName string
	Opts        map[string]any
}

// ThresholdConfig buckets a module's failure rate for the human-readable
// report; it does not gate the CI exit code (MaxThreshold does that).
type ThresholdConfig struct {
	Low    float64
	Medium float64
	High   float64
}

// Config is the CI-mode configuration file.
type Config struct {
	LLMSpec               string
	MaxBudget             int
	MaxThreshold          float64
	Optimize              bool
	EnableMultiStepAttack bool
	Modules               map[string]ModuleConfig
	Thresholds            ThresholdConfig
}

// LoadConfig reads a TOML configuration file using viper: general.*,
// modules.<name>.{dataset_name,opts}, and thresholds.{low,medium,high}.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("scan: read config: %w", err)
	}

	cfg := &Config{
		LLMSpec:               v.GetString("general.llmSpec"),
		MaxBudget:             v.GetInt("general.maxBudget"),
		MaxThreshold:          v.GetFloat64("general.max_th"),
		Optimize:              v.GetBool("general.optimize"),
		EnableMultiStepAttack: v.GetBool("general.enableMultiStepAttack"),
		Thresholds: ThresholdConfig{
			Low:    v.GetFloat64("thresholds.low"),
			Medium: v.GetFloat64("thresholds.medium"),
			High:   v.GetFloat64("thresholds.high"),
		},
	}

	modules := v.GetStringMap("modules")

	cfg.Modules = make(map[string]ModuleConfig, len(modules))

	for name := range modules {
		sub := v.Sub("modules." + name)
		if sub == nil {
			continue
		}

		cfg.Modules[name] = ModuleConfig{
			DatasetName: sub.GetString("dataset_name"),
			Opts:        cast.ToStringMap(sub.Get("opts")),
		}
	}

	return cfg, nil
}
