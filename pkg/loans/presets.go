package loans

import "strings"

// Preset is a named bulk edit of several loan fields at once.
type Preset struct {
	Name   string        `json:"name" yaml:"name" mapstructure:"name"`
	Label  string        `json:"label" yaml:"label" mapstructure:"label"`
	Inputs PartialInputs `json:"inputs" yaml:"inputs" mapstructure:"inputs"`
}

// DefaultPresets returns the built-in quick presets.
func DefaultPresets() []Preset {
	percentMode := ModePercent
	flat := MethodFlat
	reducing := MethodReducing
	return []Preset{
		{
			Name:  "zero-interest-6",
			Label: "0% for 6 months",
			Inputs: PartialInputs{
				MonthlyRate: Float(0),
				Months:      Float(6),
				Method:      &flat,
			},
		},
		{
			Name:  "thirty-down-12",
			Label: "30% down, 12 months",
			Inputs: PartialInputs{
				DownPaymentMode:    &percentMode,
				DownPaymentPercent: Float(30),
				MonthlyRate:        Float(2.5),
				Months:             Float(12),
				Method:             &flat,
			},
		},
		{
			Name:  "reducing-24",
			Label: "Reducing balance, 24 months",
			Inputs: PartialInputs{
				MonthlyRate: Float(1.8),
				Months:      Float(24),
				Method:      &reducing,
			},
		},
	}
}

// FindPreset looks up a preset by name, ignoring case and surrounding space.
func FindPreset(presets []Preset, name string) (Preset, bool) {
	trimmed := strings.TrimSpace(name)
	for _, preset := range presets {
		if strings.EqualFold(preset.Name, trimmed) {
			return preset, true
		}
	}
	return Preset{}, false
}

// MergePresets appends extra presets to base; an extra preset replaces a base
// preset of the same name.
func MergePresets(base, extra []Preset) []Preset {
	merged := make([]Preset, 0, len(base)+len(extra))
	merged = append(merged, base...)
	for _, preset := range extra {
		replaced := false
		for i := range merged {
			if strings.EqualFold(merged[i].Name, preset.Name) {
				merged[i] = preset
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, preset)
		}
	}
	return merged
}
