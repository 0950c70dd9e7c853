package seed

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"lufeed/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yml
var presetFS embed.FS

// Preset describes how much demo data to generate.
type Preset struct {
	Name               string   `yaml:"name"`
	Users              int      `yaml:"users"`
	Posts              int      `yaml:"posts"`
	MaxCommentsPerPost int      `yaml:"max_comments_per_post"`
	LikeProbability    float64  `yaml:"like_probability"`
	Shares             int      `yaml:"shares"`
	MaxDays            int      `yaml:"max_days"`
	Categories         []string `yaml:"categories"`
	// Seed makes generation reproducible. Zero picks a random seed.
	Seed int64 `yaml:"seed"`
}

// ParsePreset decodes and validates a YAML preset.
func ParsePreset(raw []byte) (Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Preset{}, fmt.Errorf("decode preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// Validate checks ranges and category names.
func (p Preset) Validate() error {
	switch {
	case p.Users <= 0:
		return fmt.Errorf("preset %q: users must be positive", p.Name)
	case p.Posts < 0 || p.Shares < 0 || p.MaxCommentsPerPost < 0:
		return fmt.Errorf("preset %q: counts must not be negative", p.Name)
	case p.LikeProbability < 0 || p.LikeProbability > 1:
		return fmt.Errorf("preset %q: like_probability must be within [0, 1]", p.Name)
	case p.Shares > 0 && p.Posts == 0:
		return fmt.Errorf("preset %q: shares need at least one post", p.Name)
	}
	for _, c := range p.Categories {
		if !models.Category(c).Valid() {
			return fmt.Errorf("preset %q: unknown category %q", p.Name, c)
		}
	}
	return nil
}

func (p Preset) categories() []models.Category {
	if len(p.Categories) == 0 {
		out := make([]models.Category, 0, 5)
		for _, info := range models.Categories() {
			out = append(out, info.Name)
		}
		return out
	}
	out := make([]models.Category, len(p.Categories))
	for i, c := range p.Categories {
		out[i] = models.Category(c)
	}
	return out
}

// BuiltinPreset returns one of the presets shipped with the binary.
func BuiltinPreset(name string) (Preset, error) {
	raw, err := presetFS.ReadFile(path.Join("presets", strings.ToLower(name)+".yml"))
	if err != nil {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(BuiltinPresets(), ", "))
	}
	return ParsePreset(raw)
}

// BuiltinPresets lists the shipped preset names.
func BuiltinPresets() []string {
	entries, _ := fs.ReadDir(presetFS, "presets")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yml"))
	}
	sort.Strings(names)
	return names
}

// LoadPreset resolves nameOrPath as a built-in preset name or a YAML file.
func LoadPreset(nameOrPath string) (Preset, error) {
	if strings.HasSuffix(nameOrPath, ".yml") || strings.HasSuffix(nameOrPath, ".yaml") {
		raw, err := os.ReadFile(nameOrPath)
		if err != nil {
			return Preset{}, fmt.Errorf("read preset: %w", err)
		}
		return ParsePreset(raw)
	}
	return BuiltinPreset(nameOrPath)
}
