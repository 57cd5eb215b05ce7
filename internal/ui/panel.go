// Package ui builds the text panel shown beside the live history view.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	"evolab/internal/core"
)

// Lines formats the panel text for exp: a title, the tick counter, the
// current metrics and then every parameter group.
func Lines(exp core.Experiment, paused bool) []string {
	if exp == nil {
		return []string{"No experiment"}
	}
	title := exp.Name()
	if paused {
		title += " (paused)"
	}
	lines := []string{
		title,
		fmt.Sprintf("tick %d/%d", exp.Tick(), exp.MaxTick()),
		"",
	}
	for _, m := range exp.Metrics() {
		lines = append(lines, fmt.Sprintf("%-16s %s", m.Name, formatValue(m.Value)))
	}
	if provider, ok := exp.(core.ParameterProvider); ok {
		for _, group := range provider.Parameters().Groups {
			lines = append(lines, "", strings.ToUpper(group.Name))
			for _, p := range group.Params {
				value := p.Value
				if value == "" {
					value = "--"
				}
				lines = append(lines, fmt.Sprintf("%-16s %s", p.Label, value))
			}
		}
	}
	return lines
}

// Help lists the viewer key bindings.
func Help() []string {
	return []string{
		"space pause  n step",
		"r reset  s new seed",
		"q quit",
	}
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}
