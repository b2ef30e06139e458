// Package wizard collects a brief over five linear steps and tracks the
// generation credits of the current user.
package wizard

import (
	"errors"
	"strings"

	"github.com/meltingprovince/virtualset/internal/types"
)

// Step is one page of the brief wizard
type Step int

// Wizard steps, in order
const (
	StepType Step = iota
	StepMood
	StepColors
	StepElements
	StepDetails
)

// StepCount is the number of wizard steps
const StepCount = 5

// DefaultCredits is the generation allowance of a new user
const DefaultCredits = 10

var stepNames = [StepCount]string{"Type", "Mood", "Colors", "Elements", "Details"}

// String returns the step title
func (s Step) String() string {
	if s < 0 || int(s) >= StepCount {
		return "Unknown"
	}
	return stepNames[s]
}

// ErrNoCredits is returned when a generation is requested with no credits left
var ErrNoCredits = errors.New("no credits left")

// Wizard holds the form state. The zero value is not ready; use New.
type Wizard struct {
	step    Step
	brief   types.Brief
	credits int
}

// New returns a wizard on the first step with the default credits
func New() *Wizard {
	return &Wizard{credits: DefaultCredits}
}

// Step returns the current step
func (w *Wizard) Step() Step {
	return w.step
}

// CanProceed reports whether the current step has what it needs
func (w *Wizard) CanProceed() bool {
	switch w.step {
	case StepType:
		return strings.TrimSpace(w.brief.ShowType) != "" || strings.TrimSpace(w.brief.ShowTypeCustom) != ""
	case StepMood:
		return w.brief.Mood != ""
	case StepColors:
		return w.brief.ColorPreset != ""
	case StepElements:
		return len(w.brief.Elements) > 0
	default:
		return true
	}
}

// IsLast reports whether the wizard is on the details step
func (w *Wizard) IsLast() bool {
	return w.step == StepDetails
}

// Next advances one step. It returns false when the current step is
// incomplete or already the last one.
func (w *Wizard) Next() bool {
	if w.IsLast() || !w.CanProceed() {
		return false
	}
	w.step++
	return true
}

// Back returns to the previous step; false on the first step
func (w *Wizard) Back() bool {
	if w.step == StepType {
		return false
	}
	w.step--
	return true
}

// SetShowType picks a preset show type
func (w *Wizard) SetShowType(showType string) {
	w.brief.ShowType = showType
}

// SetShowTypeCustom sets the free text show type, which wins over the preset
func (w *Wizard) SetShowTypeCustom(custom string) {
	w.brief.ShowTypeCustom = custom
}

// SetMood picks a mood
func (w *Wizard) SetMood(mood types.Mood) {
	w.brief.Mood = mood
}

// SetMoodNotes sets the mood notes
func (w *Wizard) SetMoodNotes(notes string) {
	w.brief.MoodNotes = notes
}

// SetColorPreset picks a color preset
func (w *Wizard) SetColorPreset(preset string) {
	w.brief.ColorPreset = preset
}

// ToggleElement adds element or removes it if already selected
func (w *Wizard) ToggleElement(element string) {
	for i, e := range w.brief.Elements {
		if e == element {
			w.brief.Elements = append(w.brief.Elements[:i:i], w.brief.Elements[i+1:]...)
			return
		}
	}
	w.brief.Elements = append(w.brief.Elements, element)
}

// SetElementNotes sets the element notes
func (w *Wizard) SetElementNotes(notes string) {
	w.brief.ElementNotes = notes
}

// SetReferenceURLs sets the reference links
func (w *Wizard) SetReferenceURLs(urls string) {
	w.brief.ReferenceURLs = urls
}

// SetAdditionalNotes sets the closing notes
func (w *Wizard) SetAdditionalNotes(notes string) {
	w.brief.AdditionalNotes = notes
}

// Brief returns a copy of the collected brief
func (w *Wizard) Brief() types.Brief {
	b := w.brief
	b.Elements = append([]string(nil), w.brief.Elements...)
	return b
}

// Reset clears the form and returns to the first step. Credits are kept.
func (w *Wizard) Reset() {
	w.step = StepType
	w.brief = types.Brief{}
}

// Credits returns the remaining generation credits
func (w *Wizard) Credits() int {
	return w.credits
}

// Spend deducts one credit for a generation. Revisions are free and do not
// call Spend.
func (w *Wizard) Spend() error {
	if w.credits <= 0 {
		return ErrNoCredits
	}
	w.credits--
	return nil
}
