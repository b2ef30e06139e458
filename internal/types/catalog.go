package types

// Mood is the overall feel requested for the virtual set
type Mood string

// Mood values offered by the brief wizard
const (
	MoodProfessional Mood = "professional"
	MoodWarm         Mood = "warm"
	MoodModern       Mood = "modern"
	MoodDramatic     Mood = "dramatic"
	MoodMinimal      Mood = "minimal"
	MoodEnergetic    Mood = "energetic"
)

// MoodOption describes a mood entry in the wizard
type MoodOption struct {
	ID    Mood   `json:"id"`    // Value sent to the webhook
	Label string `json:"label"` // Human readable label
	Emoji string `json:"emoji"` // Icon shown on the mood card
}

// ColorPreset is a named palette with its swatches
type ColorPreset struct {
	Name   string   `json:"name"`   // Preset name sent to the webhook
	Colors []string `json:"colors"` // Hex swatches, darkest first
}

// CameraView is one of the rendered angles of a set
type CameraView struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CustomColorPreset is accepted in place of a named preset
const CustomColorPreset = "Custom"

// ShowTypes are the suggested show types. Briefs may carry any other text.
var ShowTypes = []string{
	"Talk Show",
	"News Broadcast",
	"Interview",
	"Panel Discussion",
	"Podcast",
	"Corporate Presentation",
	"Entertainment",
}

// MoodOptions lists every accepted mood in display order
var MoodOptions = []MoodOption{
	{ID: MoodProfessional, Label: "Professional", Emoji: "💼"},
	{ID: MoodWarm, Label: "Warm & Inviting", Emoji: "🌅"},
	{ID: MoodModern, Label: "Modern & Sleek", Emoji: "✨"},
	{ID: MoodDramatic, Label: "Dramatic", Emoji: "🎭"},
	{ID: MoodMinimal, Label: "Minimal & Clean", Emoji: "◻️"},
	{ID: MoodEnergetic, Label: "Energetic", Emoji: "⚡"},
}

// Elements is the closed catalog of set elements
var Elements = []string{
	"City Skyline",
	"Abstract Shapes",
	"LED Screens",
	"Plants/Greenery",
	"Bookshelves",
	"World Map",
	"Brand Logo Area",
	"Animated Graphics",
	"Soft Lighting",
	"Neon Accents",
	"Wood Textures",
	"Glass/Reflections",
}

// ColorPresets lists the named palettes. CustomColorPreset is accepted as well.
var ColorPresets = []ColorPreset{
	{Name: "Corporate Blue", Colors: []string{"#1e3a5f", "#3b82f6", "#93c5fd"}},
	{Name: "Warm Studio", Colors: []string{"#78350f", "#d97706", "#fcd34d"}},
	{Name: "Modern Dark", Colors: []string{"#18181b", "#3f3f46", "#a1a1aa"}},
	{Name: "Fresh Green", Colors: []string{"#14532d", "#22c55e", "#86efac"}},
	{Name: "Vibrant", Colors: []string{"#7c2d12", "#dc2626", "#fbbf24"}},
}

// QuickFixes is the catalog of one-click revision tags
var QuickFixes = []string{
	"Make it brighter",
	"More contrast",
	"Less busy/cluttered",
	"Different angle",
	"Change colors",
	"Add more depth",
}

// CameraViews are the angles returned for every completed job
var CameraViews = []CameraView{
	{ID: "wide", Label: "Wide Shot", Description: "Full set view"},
	{ID: "left", Label: "Camera Left", Description: "Guest perspective"},
	{ID: "right", Label: "Camera Right", Description: "Host perspective"},
}

// IsValidMood reports whether m is part of the mood catalog
func IsValidMood(m Mood) bool {
	for _, opt := range MoodOptions {
		if opt.ID == m {
			return true
		}
	}
	return false
}

// LookupMood returns the catalog entry for m
func LookupMood(m Mood) (MoodOption, bool) {
	for _, opt := range MoodOptions {
		if opt.ID == m {
			return opt, true
		}
	}
	return MoodOption{}, false
}

// LookupColorPreset returns the named preset. Custom has no swatches and is not returned.
func LookupColorPreset(name string) (ColorPreset, bool) {
	for _, p := range ColorPresets {
		if p.Name == name {
			return p, true
		}
	}
	return ColorPreset{}, false
}

// IsValidColorPreset reports whether name is a named preset or Custom
func IsValidColorPreset(name string) bool {
	if name == CustomColorPreset {
		return true
	}
	_, ok := LookupColorPreset(name)
	return ok
}

// IsValidElement reports whether e is part of the element catalog
func IsValidElement(e string) bool {
	return contains(Elements, e)
}

// IsValidQuickFix reports whether f is part of the quick fix catalog
func IsValidQuickFix(f string) bool {
	return contains(QuickFixes, f)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
