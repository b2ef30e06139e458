package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/meltingprovince/virtualset/internal/session"
	"github.com/meltingprovince/virtualset/internal/types"
)

// jobOutput is the JSON form of a job as printed by the CLI
type jobOutput struct {
	JobID         string          `json:"jobId"`
	PreviousJobID string          `json:"previousJobId,omitempty"`
	State         session.State   `json:"state,omitempty"`
	Status        types.JobStatus `json:"status"`
	Progress      float64         `json:"progress"`
	Stage         string          `json:"stage,omitempty"`
	Images        []imageOutput   `json:"images,omitempty"`
	Video         string          `json:"video,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// imageOutput pairs an image URL with its camera label
type imageOutput struct {
	Camera string `json:"camera"`
	URL    string `json:"url"`
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func newTable(cmd *cobra.Command) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)
	return tw
}

// imagesOf labels result images with the camera views in catalog order
func imagesOf(results *types.JobResults) []imageOutput {
	urls := results.Images()
	if len(urls) == 0 {
		return nil
	}

	out := make([]imageOutput, len(urls))
	for i, u := range urls {
		camera := fmt.Sprintf("View %d", i+1)
		if i < len(types.CameraViews) {
			camera = types.CameraViews[i].Label
		}
		out[i] = imageOutput{Camera: camera, URL: u}
	}
	return out
}

func videoOf(results *types.JobResults) string {
	if results == nil || results.Outputs == nil {
		return ""
	}
	video, _ := results.Outputs["video"].(string)
	return video
}

func snapshotOutput(snap session.Snapshot) jobOutput {
	out := jobOutput{
		JobID:         snap.JobID,
		PreviousJobID: snap.PreviousJobID,
		State:         snap.State,
		Status:        snap.Status,
		Progress:      snap.Progress,
		Stage:         snap.Stage,
		Images:        imagesOf(snap.Results),
		Video:         videoOf(snap.Results),
	}
	if out.Stage == "" {
		out.Stage = snap.ProgressStage().Label
	}
	if snap.Err != nil {
		out.Error = snap.Err.Error()
	}
	return out
}

func statusOutput(status *types.StatusResponse) jobOutput {
	out := jobOutput{
		JobID:    status.JobID,
		Status:   status.Status,
		Progress: types.ClampProgress(status.Progress),
		Stage:    status.Stage,
		Error:    status.Error,
	}
	if out.Stage == "" {
		out.Stage = types.StageForProgress(out.Progress).Label
	}
	return out
}

func resultsOutput(results *types.JobResults) jobOutput {
	return jobOutput{
		JobID:    results.JobID,
		Status:   types.JobStatusComplete,
		Progress: 100,
		Images:   imagesOf(results),
		Video:    videoOf(results),
	}
}

// printJob writes a job as JSON or as a summary table followed by its outputs
func printJob(cmd *cobra.Command, job jobOutput) error {
	if jsonOutput {
		return printJSON(cmd, job)
	}

	tw := newTable(cmd)
	tw.AppendHeader(table.Row{"Job", "Status", "Progress", "Stage"})
	tw.AppendRow(table.Row{job.JobID, job.Status, fmt.Sprintf("%.0f%%", job.Progress), job.Stage})
	tw.Render()

	if job.PreviousJobID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Revision of %s\n", job.PreviousJobID)
	}
	if job.Error != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Error: %s\n", job.Error)
	}

	if len(job.Images) > 0 {
		it := newTable(cmd)
		it.AppendHeader(table.Row{"Camera", "Image"})
		for _, img := range job.Images {
			it.AppendRow(table.Row{img.Camera, img.URL})
		}
		it.Render()
	}
	if job.Video != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Video: %s\n", job.Video)
	}
	return nil
}

// printHandle writes the response of a brief or revision submission
func printHandle(cmd *cobra.Command, handle *types.JobHandle) error {
	if jsonOutput {
		return printJSON(cmd, handle)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s\n", handle.JobID, handle.Status)
	return err
}
