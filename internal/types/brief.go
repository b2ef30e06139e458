package types

import "strings"

// Brief is the creative request collected by the wizard. It is never mutated
// after it has been submitted for a job.
type Brief struct {
	ShowType        string   `json:"showType"`
	ShowTypeCustom  string   `json:"showTypeCustom,omitempty"`
	Mood            Mood     `json:"mood"`
	MoodNotes       string   `json:"moodNotes,omitempty"`
	ColorPreset     string   `json:"colorPreset"`
	Elements        []string `json:"elements"`
	ElementNotes    string   `json:"elementNotes,omitempty"`
	ReferenceURLs   string   `json:"referenceUrls,omitempty"`
	AdditionalNotes string   `json:"additionalNotes,omitempty"`
}

// BriefFields is the normalized brief as sent to the webhook: the show type
// is resolved and every other field passes through verbatim.
type BriefFields struct {
	ShowType        string   `json:"showType" validate:"required"`
	Mood            Mood     `json:"mood" validate:"required,mood"`
	MoodNotes       string   `json:"moodNotes"`
	ColorPreset     string   `json:"colorPreset" validate:"required,color_preset"`
	Elements        []string `json:"elements" validate:"required,min=1,unique,dive,element"`
	ElementNotes    string   `json:"elementNotes"`
	ReferenceURLs   string   `json:"referenceUrls"`
	AdditionalNotes string   `json:"additionalNotes"`
}

// ResolvedShowType prefers the custom text and falls back to the chosen preset
func (b Brief) ResolvedShowType() string {
	if custom := strings.TrimSpace(b.ShowTypeCustom); custom != "" {
		return custom
	}
	return strings.TrimSpace(b.ShowType)
}

// Normalize returns the wire form of the brief
func (b Brief) Normalize() BriefFields {
	elements := make([]string, len(b.Elements))
	copy(elements, b.Elements)

	return BriefFields{
		ShowType:        b.ResolvedShowType(),
		Mood:            b.Mood,
		MoodNotes:       b.MoodNotes,
		ColorPreset:     b.ColorPreset,
		Elements:        elements,
		ElementNotes:    b.ElementNotes,
		ReferenceURLs:   b.ReferenceURLs,
		AdditionalNotes: b.AdditionalNotes,
	}
}

// Validate checks that show type, mood, color preset and at least one
// element are present and drawn from their catalogs.
func (b Brief) Validate() error {
	return b.Normalize().Validate()
}

// Validate checks an already normalized brief
func (f BriefFields) Validate() error {
	return validateStruct("brief", f).orNil()
}

// HasElement reports whether e is selected
func (b Brief) HasElement(e string) bool {
	return contains(b.Elements, e)
}

// Revision is a change request against a previous job
type Revision struct {
	Fixes []string `json:"fixes" validate:"unique,dive,quick_fix"`
	Notes string   `json:"notes"`
}

// Validate requires at least one quick fix or some notes, and only catalog fixes
func (r Revision) Validate() error {
	verr := validateStruct("revision", r)
	if len(r.Fixes) == 0 && strings.TrimSpace(r.Notes) == "" {
		verr.Add("fixes", "or notes are required")
	}
	return verr.orNil()
}
