package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"mocap-fk/internal/skeleton"
)

// Config holds input paths, solver options and render settings.
type Config struct {
	// Paths
	BaseDir   string `json:"base_dir" yaml:"base_dir"`
	ASFFile   string `json:"asf_file" yaml:"asf_file"`
	AMCFile   string `json:"amc_file" yaml:"amc_file"`
	SMPLRest  string `json:"smpl_rest" yaml:"smpl_rest"`
	SMPLPoses string `json:"smpl_poses" yaml:"smpl_poses"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Solver
	RootTranslation string `json:"root_translation" yaml:"root_translation"`
	FrameStride     int    `json:"frame_stride" yaml:"frame_stride"`

	// Render settings
	RenderSize  int     `json:"render_size" yaml:"render_size"`
	Supersample int     `json:"supersample" yaml:"supersample"`
	ImageFormat string  `json:"image_format" yaml:"image_format"`
	Azimuth     float64 `json:"azimuth" yaml:"azimuth"`
	Elevation   float64 `json:"elevation" yaml:"elevation"`
	Workers     int     `json:"workers" yaml:"workers"`

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
}

// Load reads a JSON or YAML (.yaml/.yml) config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	ASFFile         string
	AMCFile         string
	SMPLRest        string
	SMPLPoses       string
	OutputDir       string
	RootTranslation string
	FrameStride     int
	ImageFormat     string
	Workers         int
	LogLevel        string
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.ASFFile != "" {
		c.ASFFile = flags.ASFFile
	}
	if flags.AMCFile != "" {
		c.AMCFile = flags.AMCFile
	}
	if flags.SMPLRest != "" {
		c.SMPLRest = flags.SMPLRest
	}
	if flags.SMPLPoses != "" {
		c.SMPLPoses = flags.SMPLPoses
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.RootTranslation != "" {
		c.RootTranslation = flags.RootTranslation
	}
	if flags.FrameStride > 0 {
		c.FrameStride = flags.FrameStride
	}
	if flags.ImageFormat != "" {
		c.ImageFormat = flags.ImageFormat
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}

	// Resolve relative paths against base dir
	if c.BaseDir != "" {
		for _, p := range []*string{&c.ASFFile, &c.AMCFile, &c.SMPLRest, &c.SMPLPoses, &c.OutputDir} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Join(c.BaseDir, *p)
			}
		}
	}
	if c.OutputDir == "" {
		c.OutputDir = "poses"
	}

	if c.RootTranslation == "" {
		c.RootTranslation = "discard"
	}
	if c.FrameStride <= 0 {
		c.FrameStride = 1
	}
	if c.RenderSize <= 0 {
		c.RenderSize = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.ImageFormat == "" {
		c.ImageFormat = "webp"
	}
	if c.Azimuth == 0 && c.Elevation == 0 {
		c.Azimuth, c.Elevation = 30, 15
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// Validate rejects settings with no meaning for the solver or renderer.
func (c *Config) Validate() error {
	if _, err := c.RootMode(); err != nil {
		return err
	}
	switch c.ImageFormat {
	case "webp", "tga":
	default:
		return fmt.Errorf("config: image_format %q, want webp or tga", c.ImageFormat)
	}
	return nil
}

// RootMode maps root_translation to the solver option.
func (c *Config) RootMode() (skeleton.RootTranslation, error) {
	switch strings.ToLower(c.RootTranslation) {
	case "", "discard":
		return skeleton.RootDiscard, nil
	case "apply":
		return skeleton.RootApply, nil
	}
	return 0, fmt.Errorf("config: root_translation %q, want discard or apply", c.RootTranslation)
}
