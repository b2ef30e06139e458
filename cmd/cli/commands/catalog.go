package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/meltingprovince/virtualset/internal/types"
)

// catalogOutput is the JSON form of the catalogs
type catalogOutput struct {
	ShowTypes    []string            `json:"showTypes"`
	Moods        []types.MoodOption  `json:"moods"`
	ColorPresets []types.ColorPreset `json:"colorPresets"`
	Elements     []string            `json:"elements"`
	QuickFixes   []string            `json:"quickFixes"`
	CameraViews  []types.CameraView  `json:"cameraViews"`
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List show types, moods, color presets, elements and quick fixes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if jsonOutput {
			return printJSON(cmd, catalogOutput{
				ShowTypes:    types.ShowTypes,
				Moods:        types.MoodOptions,
				ColorPresets: types.ColorPresets,
				Elements:     types.Elements,
				QuickFixes:   types.QuickFixes,
				CameraViews:  types.CameraViews,
			})
		}

		listTable(cmd, "Show type", types.ShowTypes)

		mt := newTable(cmd)
		mt.AppendHeader(table.Row{"Mood", "Label", ""})
		for _, m := range types.MoodOptions {
			mt.AppendRow(table.Row{m.ID, m.Label, m.Emoji})
		}
		mt.Render()

		ct := newTable(cmd)
		ct.AppendHeader(table.Row{"Color preset", "Swatches", "Gradient"})
		for _, p := range types.ColorPresets {
			g := types.GradientForPreset(p.Name)
			ct.AppendRow(table.Row{p.Name, strings.Join(p.Colors, " "), g.From + " " + g.To})
		}
		ct.AppendRow(table.Row{types.CustomColorPreset, "", ""})
		ct.Render()

		listTable(cmd, "Element", types.Elements)
		listTable(cmd, "Quick fix", types.QuickFixes)
		return nil
	},
}

func listTable(cmd *cobra.Command, header string, rows []string) {
	tw := newTable(cmd)
	tw.AppendHeader(table.Row{header})
	for _, r := range rows {
		tw.AppendRow(table.Row{r})
	}
	tw.Render()
}

// GetCatalogCmd returns the catalog command
func GetCatalogCmd() *cobra.Command {
	return catalogCmd
}
