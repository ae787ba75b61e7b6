package render

import "fmt"

// Style captures the page geometry a region template is typeset with.
type Style struct {
	Paper    string `yaml:"paper"`
	FontSize int    `yaml:"font_size"`
	Margin   string `yaml:"margin"`
}

// DefaultStyle is applied to fields a registry entry leaves empty.
var DefaultStyle = Style{
	Paper:    "a4paper",
	FontSize: 11,
	Margin:   "0.75in",
}

func (s Style) withDefaults() Style {
	if s.Paper == "" {
		s.Paper = DefaultStyle.Paper
	}
	if s.FontSize == 0 {
		s.FontSize = DefaultStyle.FontSize
	}
	if s.Margin == "" {
		s.Margin = DefaultStyle.Margin
	}
	return s
}

// ClassOptions renders the \documentclass option list.
func (s Style) ClassOptions() string {
	return fmt.Sprintf("%dpt,%s", s.FontSize, s.Paper)
}
