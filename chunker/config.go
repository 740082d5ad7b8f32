package chunker

import (
	"github.com/presic/chunker/hmm"
	"fmt"
	"gopkg.in/yaml.v3"
	"io/ioutil"
)

// Config is the tagger configuration file. The beam factor and max
// suffix length default to the documented constants when omitted.
type Config struct {
	POSModelPath   string  `yaml:"pos_model"`
	ChunkModelPath string  `yaml:"chunk_model"`
	BeamFactor     float64 `yaml:"beam_factor"`
	MaxSuffixLen   int     `yaml:"max_suffix_len"`
}

func DefaultConfig() Config {
	return Config{
		BeamFactor:   hmm.DefaultBeamFactor,
		MaxSuffixLen: hmm.DefaultMaxSuffixLen,
	}
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("chunker: parsing config %s: %w", path, err)
	}
	if cfg.BeamFactor <= 0 {
		cfg.BeamFactor = hmm.DefaultBeamFactor
	}
	if cfg.MaxSuffixLen <= 0 {
		cfg.MaxSuffixLen = hmm.DefaultMaxSuffixLen
	}
	return cfg, nil
}

// FromConfig loads every model the config names. The decoding settings
// are applied before each artifact is read; the suffix estimator is
// rebuilt at load time, so a bound set afterwards would not reach it.
func FromConfig(cfg Config) (*Chunker, error) {
	c := New()
	load := func(path string, mode hmm.Mode) error {
		model := hmm.New()
		model.BeamFactor = cfg.BeamFactor
		model.MaxSuffixLen = cfg.MaxSuffixLen
		if err := model.LoadFile(path); err != nil {
			return err
		}
		c.SetModel(model, mode)
		c.log.Info().Str("path", path).Int("states", model.StateN()).
			Int("emissions", model.EmissionN()).Msg("Loaded model")
		return nil
	}
	if cfg.POSModelPath != "" {
		if err := load(cfg.POSModelPath, hmm.POS); err != nil {
			return nil, err
		}
	}
	if cfg.ChunkModelPath != "" {
		if err := load(cfg.ChunkModelPath, hmm.Chunk); err != nil {
			return nil, err
		}
	}
	return c, nil
}
