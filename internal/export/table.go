package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/mind-engage/mindengage-selection/internal/grading"
	"github.com/mind-engage/mindengage-selection/internal/ranking"
	"github.com/mind-engage/mindengage-selection/internal/selection"
)

var bucketColor = map[ranking.Bucket]tablewriter.Colors{
	ranking.BucketRejected: {tablewriter.FgRedColor},
	ranking.BucketSelected: {tablewriter.FgGreenColor},
	ranking.BucketWaiting:  {tablewriter.FgYellowColor},
}

func points(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// RenderRanklist prints the leaderboard with one coloured status column.
func RenderRanklist(w io.Writer, rows []ranking.Row) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "Chest No", "Name", "Dept", "S1", "S2", "S3", "w/o S1", "Final", "Status"})
	for _, r := range rows {
		cells := []string{
			strconv.Itoa(r.Rank), r.ChestNo, r.Name, r.Department,
			points(r.S1), points(r.S2), points(r.S3), points(r.WithoutS1), points(r.FinalTotal),
			string(r.Bucket),
		}
		colors := make([]tablewriter.Colors, len(cells))
		colors[len(cells)-1] = bucketColor[r.Bucket]
		table.Rich(cells, colors)
	}
	table.Render()
}

// RenderStudent prints one candidate with per-stage scores and grade summaries.
func RenderStudent(w io.Writer, r grading.Rubric, st *selection.Student) {
	head := color.New(color.FgCyan, color.Bold)
	head.Fprintf(w, "\n%s  (chest %s, admission %s)\n", st.Name, orDash(st.ChestNo), orDash(st.AdmissionNo))
	fmt.Fprintf(w, "Department: %s\n", orDash(st.Department))
	if st.Task.Role != "" || st.Task.Link != "" {
		fmt.Fprintf(w, "Task: %s %s\n", st.Task.Role, st.Task.Link)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Criterion", "Score", "Max", "Reason"})
	for _, stage := range r.Stages {
		ss := st.Stages[stage.Key]
		if ss == nil {
			continue
		}
		for _, c := range stage.Criteria {
			score := "-"
			if v, ok := ss.Scores[c.Key]; ok {
				score = points(v)
			}
			table.Append([]string{c.Label, score, points(c.MaxPoints), ss.Reasons[c.Key]})
		}
		table.Append([]string{stage.Title + " total", points(st.Totals.Stages[stage.Key]), points(stage.MaxPoints()), ""})
	}
	table.Append([]string{"Bonus", points(st.Totals.Bonus), points(r.Bonus.MaxPoints), st.BonusReason})
	table.SetFooter([]string{"Grand total", points(st.Totals.Grand), points(r.MaxTotal()), ""})
	table.Render()

	fmt.Fprintf(w, "Interview grade: %s\n", gradeLine(st.InterviewGrade))
	fmt.Fprintf(w, "Overall grade:   %s\n", gradeLine(st.OverallGrade))
}

func gradeLine(g grading.GradeSummary) string {
	if !g.Available {
		return color.New(color.Faint).Sprint(grading.NoGradesAvailable)
	}
	return fmt.Sprintf("%.2f%% %s", g.Percentage, g.Qualitative)
}

func orDash(s string) string {
	if s == "" {
		return ranking.Placeholder
	}
	return s
}
