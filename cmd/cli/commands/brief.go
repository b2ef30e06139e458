package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/meltingprovince/virtualset/internal/session"
	"github.com/meltingprovince/virtualset/internal/types"
	"github.com/meltingprovince/virtualset/internal/wizard"
)

// brief flag names
const (
	flagFile           = "file"
	flagShowType       = "show-type"
	flagShowTypeCustom = "show-type-custom"
	flagMood           = "mood"
	flagMoodNotes      = "mood-notes"
	flagColorPreset    = "color-preset"
	flagElement        = "element"
	flagElementNotes   = "element-notes"
	flagReferenceURLs  = "reference-urls"
	flagNotes          = "notes"
	flagWatch          = "watch"
)

func init() {
	briefCmd.AddCommand(submitBriefCmd)
	briefCmd.AddCommand(validateBriefCmd)

	addBriefFlags(submitBriefCmd.Flags())
	addBriefFlags(validateBriefCmd.Flags())
	submitBriefCmd.Flags().BoolP(flagWatch, "w", false, "Poll the job until it completes or fails")
}

func addBriefFlags(flags *pflag.FlagSet) {
	flags.StringP(flagFile, "f", "", "JSON file holding the brief; flags override its fields")
	flags.String(flagShowType, "", "Show type, e.g. \"Talk Show\"")
	flags.String(flagShowTypeCustom, "", "Free text show type, wins over --show-type")
	flags.String(flagMood, "", "Mood id: professional, warm, modern, dramatic, minimal or energetic")
	flags.String(flagMoodNotes, "", "Extra notes on the mood")
	flags.String(flagColorPreset, "", "Color preset name or Custom")
	flags.StringSlice(flagElement, nil, "Set element, repeatable")
	flags.String(flagElementNotes, "", "Extra notes on the elements")
	flags.String(flagReferenceURLs, "", "Reference URLs, free text")
	flags.String(flagNotes, "", "Additional notes")
}

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Build and submit set briefs",
}

var submitBriefCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a brief for generation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		brief, err := briefFromFlags(cmd)
		if err != nil {
			return err
		}

		watch, _ := cmd.Flags().GetBool(flagWatch)
		if watch {
			return watchSession(cmd, func(ctx context.Context, s *session.Session) error {
				return s.StartGeneration(ctx, brief)
			})
		}

		c, err := getAPIClient()
		if err != nil {
			return err
		}
		tokens, err := getTokenProvider()
		if err != nil {
			return err
		}
		token, err := tokens.Token()
		if err != nil {
			return err
		}

		handle, err := c.SubmitBrief(cmd.Context(), brief, token)
		if err != nil {
			return fmt.Errorf("error submitting brief: %w", err)
		}
		return printHandle(cmd, handle)
	},
}

var validateBriefCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a brief without submitting it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		brief, err := briefFromFlags(cmd)
		if err != nil {
			return err
		}

		fields := brief.Normalize()
		if jsonOutput {
			return printJSON(cmd, fields)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Brief for %q is valid (%d elements)\n", fields.ShowType, len(fields.Elements))
		return err
	},
}

// briefFromFlags reads the optional brief file, applies the flags on top and
// walks the result through the wizard steps
func briefFromFlags(cmd *cobra.Command) (types.Brief, error) {
	var base types.Brief
	if path, _ := cmd.Flags().GetString(flagFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return types.Brief{}, fmt.Errorf("error reading brief file: %w", err)
		}
		if err := json.Unmarshal(data, &base); err != nil {
			return types.Brief{}, fmt.Errorf("error parsing brief file: %w", err)
		}
	}

	flags := cmd.Flags()
	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override(flagShowType, &base.ShowType)
	override(flagShowTypeCustom, &base.ShowTypeCustom)
	override(flagMoodNotes, &base.MoodNotes)
	override(flagColorPreset, &base.ColorPreset)
	override(flagElementNotes, &base.ElementNotes)
	override(flagReferenceURLs, &base.ReferenceURLs)
	override(flagNotes, &base.AdditionalNotes)
	if flags.Changed(flagMood) {
		mood, _ := flags.GetString(flagMood)
		base.Mood = types.Mood(mood)
	}
	if flags.Changed(flagElement) {
		base.Elements, _ = flags.GetStringSlice(flagElement)
	}

	return fillWizard(base)
}

// fillWizard loads b into a fresh wizard and advances to the last step,
// reporting the first step that is missing a value
func fillWizard(b types.Brief) (types.Brief, error) {
	w := wizard.New()
	w.SetShowType(b.ShowType)
	w.SetShowTypeCustom(b.ShowTypeCustom)
	w.SetMood(b.Mood)
	w.SetMoodNotes(b.MoodNotes)
	w.SetColorPreset(b.ColorPreset)
	for _, e := range b.Elements {
		if !w.Brief().HasElement(e) {
			w.ToggleElement(e)
		}
	}
	w.SetElementNotes(b.ElementNotes)
	w.SetReferenceURLs(b.ReferenceURLs)
	w.SetAdditionalNotes(b.AdditionalNotes)

	for !w.IsLast() {
		if !w.Next() {
			return types.Brief{}, fmt.Errorf("brief incomplete: the %s step needs a value", w.Step())
		}
	}

	brief := w.Brief()
	if err := brief.Validate(); err != nil {
		return types.Brief{}, err
	}
	return brief, nil
}

// GetBriefCmd returns the brief command
func GetBriefCmd() *cobra.Command {
	return briefCmd
}
