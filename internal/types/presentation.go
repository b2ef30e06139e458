package types

import "math"

// Stage is a coarse progress phase shown while a job runs
type Stage struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// Gradient is the background used to preview a color preset
type Gradient struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Stages are ordered; each covers a quarter of the progress range
var Stages = []Stage{
	{ID: "analyzing", Label: "Analyzing brief", Icon: "🔍"},
	{ID: "generating", Label: "Generating backgrounds", Icon: "🎨"},
	{ID: "compositing", Label: "Compositing views", Icon: "🖼️"},
	{ID: "finalizing", Label: "Final touches", Icon: "✅"},
}

// DefaultGradient is used for Custom and unknown presets
var DefaultGradient = Gradient{From: "from-purple-900", To: "to-purple-600"}

var presetGradients = map[string]Gradient{
	"Corporate Blue": {From: "from-blue-900", To: "to-blue-600"},
	"Warm Studio":    {From: "from-amber-900", To: "to-amber-500"},
	"Modern Dark":    {From: "from-zinc-900", To: "to-zinc-700"},
	"Fresh Green":    {From: "from-green-900", To: "to-green-500"},
	"Vibrant":        {From: "from-orange-900", To: "to-red-600"},
}

// ClampProgress bounds p to [0,100]; NaN maps to 0
func ClampProgress(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// StageIndex maps progress to an index into Stages
func StageIndex(progress float64) int {
	idx := int(math.Floor(ClampProgress(progress) / 25))
	if idx >= len(Stages) {
		idx = len(Stages) - 1
	}
	return idx
}

// StageForProgress returns the stage shown for progress
func StageForProgress(progress float64) Stage {
	return Stages[StageIndex(progress)]
}

// GradientForPreset returns the preview gradient of a color preset
func GradientForPreset(name string) Gradient {
	if g, ok := presetGradients[name]; ok {
		return g
	}
	return DefaultGradient
}
