package sweep

import (
	"encoding/json"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sarchlab/procsim/timing/pipeline"
)

// Config describes the configuration grid explored by a parameter sweep.
type Config struct {
	// FValues lists the fetch widths to explore. Default: 4 and 8.
	FValues []int `json:"f_values"`

	// JMin..JMax bound the type-0 FU count. Default: 1..2.
	JMin int `json:"j_min"`
	JMax int `json:"j_max"`

	// KMin..KMax bound the type-1 FU count. Default: 1..2.
	KMin int `json:"k_min"`
	KMax int `json:"k_max"`

	// LMin..LMax bound the type-2 FU count. Default: 1..2.
	LMin int `json:"l_min"`
	LMax int `json:"l_max"`

	// RMin..RMax bound the result-bus count. Default: 1..10.
	RMin int `json:"r_min"`
	RMax int `json:"r_max"`

	// TargetRatio keeps a configuration as a candidate when its IPC is
	// above this fraction of the best IPC found. Default: 0.95.
	TargetRatio float64 `json:"target_ratio"`

	// Workers is the number of simulations run concurrently.
	// Default: GOMAXPROCS.
	Workers int `json:"workers"`
}

// DefaultConfig returns the sweep grid of the reference optimizer.
func DefaultConfig() *Config {
	return &Config{
		FValues:     []int{4, 8},
		JMin:        1,
		JMax:        2,
		KMin:        1,
		KMax:        2,
		LMin:        1,
		LMax:        2,
		RMin:        1,
		RMax:        10,
		TargetRatio: 0.95,
		Workers:     runtime.GOMAXPROCS(0),
	}
}

// LoadConfig loads a sweep grid from a JSON file. Missing fields keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading sweep config")
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "parsing sweep config %s", path)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "sweep config %s", path)
	}

	return config, nil
}

// Validate reports grid errors.
func (c *Config) Validate() error {
	if len(c.FValues) == 0 {
		return errors.New("no fetch widths to explore")
	}
	for _, f := range c.FValues {
		if f < 1 {
			return errors.Errorf("fetch width %d out of range", f)
		}
	}

	for _, b := range []struct {
		name     string
		min, max int
	}{
		{"J", c.JMin, c.JMax},
		{"K", c.KMin, c.KMax},
		{"L", c.LMin, c.LMax},
		{"R", c.RMin, c.RMax},
	} {
		if b.min < 0 || b.max < b.min {
			return errors.Errorf(
				"invalid %s range %d..%d", b.name, b.min, b.max)
		}
	}

	if c.RMin < 1 {
		return errors.New("R range must start at 1")
	}
	if c.TargetRatio <= 0 || c.TargetRatio > 1 {
		return errors.Errorf("target ratio %f out of (0, 1]", c.TargetRatio)
	}
	if c.Workers < 0 {
		return errors.Errorf("negative worker count %d", c.Workers)
	}

	return nil
}

// Grid expands the sweep into the pipeline configurations to run, in a
// deterministic order. Combinations with no functional units are skipped.
func (c *Config) Grid() []pipeline.Config {
	var grid []pipeline.Config

	for _, f := range c.FValues {
		for j := c.JMin; j <= c.JMax; j++ {
			for k := c.KMin; k <= c.KMax; k++ {
				for l := c.LMin; l <= c.LMax; l++ {
					if j+k+l == 0 {
						continue
					}
					for r := c.RMin; r <= c.RMax; r++ {
						grid = append(grid, pipeline.Config{
							R: r, F: f, J: j, K: k, L: l,
						})
					}
				}
			}
		}
	}

	return grid
}
