package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/yourusername/f1-winner/internal/forecast"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/pipeline"
)

func renderTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printRunReport(w io.Writer, report *pipeline.RunReport) error {
	fmt.Fprintf(w, "Run %s: %s\n", report.RunID, report.Outcome)
	var data [][]string
	for _, s := range report.Stages {
		data = append(data, []string{
			string(s.Stage),
			string(s.State),
			strconv.Itoa(s.Rows),
			strconv.FormatInt(s.DurationMS, 10),
			s.Reason,
		})
	}
	return renderTable(w, []string{"Stage", "State", "Rows", "ms", "Reason"}, data)
}

func printModel(w io.Writer, meta *models.ModelMetadata) error {
	data := [][]string{
		{"name", meta.Name},
		{"digest", meta.Digest},
		{"trained_at", meta.TrainedAt.Format("2006-01-02 15:04:05")},
		{"training_rows", strconv.Itoa(meta.TrainingRows)},
		{"holdout_rows", strconv.Itoa(meta.HoldoutRows)},
		{"held_out", strconv.FormatBool(meta.HeldOut)},
		{"accuracy", fmt.Sprintf("%.3f", meta.Accuracy)},
	}
	if meta.ROCAUC != nil {
		data = append(data, []string{"roc_auc", fmt.Sprintf("%.3f", *meta.ROCAUC)})
	}
	if meta.TopPickAccuracy != nil {
		data = append(data, []string{"top_pick_accuracy", fmt.Sprintf("%.3f", *meta.TopPickAccuracy)})
	}
	for _, m := range meta.MissingMetrics {
		data = append(data, []string{"missing", m})
	}
	return renderTable(w, []string{"Field", "Value"}, data)
}

// printOutcomes lists participants by championship probability, then projected total
func printOutcomes(w io.Writer, season int, res *forecast.Result) error {
	outcomes := append([]forecast.Outcome(nil), res.Outcomes...)
	sort.SliceStable(outcomes, func(i, j int) bool {
		if outcomes[i].ChampionshipProbability != outcomes[j].ChampionshipProbability {
			return outcomes[i].ChampionshipProbability > outcomes[j].ChampionshipProbability
		}
		return outcomes[i].ProjectedTotal > outcomes[j].ProjectedTotal
	})

	fmt.Fprintf(w, "Season %d forecast (%d trials, seed %d, simulated %v)\n", season, res.Trials, res.Seed, res.Simulated)
	var data [][]string
	for i, o := range outcomes {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			o.DriverID,
			strconv.Itoa(o.CurrentPoints),
			fmt.Sprintf("%.1f", o.ExpectedPoints),
			fmt.Sprintf("%.1f", o.ProjectedTotal),
			fmt.Sprintf("%.2f%%", o.ChampionshipProbability*100),
		})
	}
	return renderTable(w, []string{"#", "Driver", "Points", "Expected", "Projected", "Title"}, data)
}

func printForecastRows(w io.Writer, rows []*models.ChampionshipForecast) error {
	sorted := append([]*models.ChampionshipForecast(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ChampionshipProbability > sorted[j].ChampionshipProbability
	})
	var data [][]string
	for i, r := range sorted {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			r.DriverID,
			strconv.Itoa(r.CurrentPoints),
			fmt.Sprintf("%.1f", r.ProjectedTotal),
			fmt.Sprintf("%.2f%%", r.ChampionshipProbability*100),
		})
	}
	return renderTable(w, []string{"#", "Driver", "Points", "Projected", "Title"}, data)
}

func printRuns(w io.Writer, runs []*models.PipelineRun) error {
	var data [][]string
	for _, r := range runs {
		finished := ""
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format("2006-01-02 15:04:05")
		}
		data = append(data, []string{
			r.RunID.String(),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			finished,
			r.Outcome,
		})
	}
	return renderTable(w, []string{"Run", "Started", "Finished", "Outcome"}, data)
}
