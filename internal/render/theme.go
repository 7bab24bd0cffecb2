package render

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Theme holds the palette and canvas of the figure. Zero fields loaded from a
// file keep their default.
type Theme struct {
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
	Precision int     `yaml:"precision"`

	Accent     string `yaml:"accent"`
	AccentGlow string `yaml:"accent_glow"`
	Dark       string `yaml:"dark"`
	Hair       string `yaml:"hair"`
	Bangs      string `yaml:"bangs"`
	Brow       string `yaml:"brow"`
	Iris       string `yaml:"iris"`
	Lid        string `yaml:"lid"`
	Mouth      string `yaml:"mouth"`

	SkinStops []string `yaml:"skin_stops"`
	SuitStops []string `yaml:"suit_stops"`

	Scanlines bool `yaml:"scanlines"`
}

func DefaultTheme() Theme {
	return Theme{
		Width:      800,
		Height:     1000,
		Precision:  2,
		Accent:     "#22d3ee",
		AccentGlow: "#67e8f9",
		Dark:       "#083344",
		Hair:       "#0e7490",
		Bangs:      "#06b6d4",
		Brow:       "#06b6d4",
		Iris:       "#0891b2",
		Lid:        "#bae6fd",
		Mouth:      "#f472b6",
		SkinStops:  []string{"#e0f2fe", "#bae6fd", "#7dd3fc"},
		SuitStops:  []string{"#164e63", "#083344", "#000000"},
		Scanlines:  true,
	}
}

// LoadTheme reads a YAML theme file layered over DefaultTheme.
func LoadTheme(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("read theme: %w", err)
	}
	return ParseTheme(data)
}

func ParseTheme(data []byte) (Theme, error) {
	th := DefaultTheme()
	if err := yaml.Unmarshal(data, &th); err != nil {
		return Theme{}, fmt.Errorf("parse theme: %w", err)
	}
	if err := th.Validate(); err != nil {
		return Theme{}, err
	}
	return th, nil
}

func (t Theme) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("theme canvas must be positive, got %gx%g", t.Width, t.Height)
	}
	if t.Precision < 0 || t.Precision > 6 {
		return fmt.Errorf("theme precision must be in [0,6], got %d", t.Precision)
	}
	if len(t.SkinStops) == 0 || len(t.SuitStops) == 0 {
		return fmt.Errorf("theme gradients need at least one stop")
	}
	return nil
}
