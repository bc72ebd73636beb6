package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sivaangayarkanni/crm/internal/scoring"
	"golang.org/x/term"
)

var (
	hotColor  = color.New(color.FgRed, color.Bold)
	warmColor = color.New(color.FgYellow, color.Bold)
	coolColor = color.New(color.FgCyan)
	coldColor = color.New(color.FgHiBlack)

	highRiskColor   = color.New(color.FgRed, color.Bold)
	mediumRiskColor = color.New(color.FgYellow)
	lowRiskColor    = color.New(color.FgGreen)
)

// useColor reports whether w is a terminal.
func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func paint(c *color.Color, s string, enabled bool) string {
	if !enabled {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func gradeLabel(g scoring.Grade, enabled bool) string {
	switch g {
	case scoring.GradeHot:
		return paint(hotColor, string(g), enabled)
	case scoring.GradeWarm:
		return paint(warmColor, string(g), enabled)
	case scoring.GradeCool:
		return paint(coolColor, string(g), enabled)
	default:
		return paint(coldColor, string(g), enabled)
	}
}

func riskLabel(r scoring.RiskLevel, enabled bool) string {
	switch r {
	case scoring.RiskHigh:
		return paint(highRiskColor, string(r), enabled)
	case scoring.RiskMedium:
		return paint(mediumRiskColor, string(r), enabled)
	default:
		return paint(lowRiskColor, string(r), enabled)
	}
}

func percent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 0, 64) + "%"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// writeLeadTable prints the score summary followed by the factor breakdown.
func writeLeadTable(w io.Writer, r scoring.LeadResult, enabled bool) error {
	summary := [][]string{
		{"Score", strconv.Itoa(r.Score)},
		{"Grade", gradeLabel(r.Grade, enabled)},
		{"Conversion", percent(r.ConversionProbability)},
		{"Action", r.RecommendedAction},
		{"Next step", r.NextBestStep},
	}
	if err := renderTable(w, []string{"Field", "Value"}, summary); err != nil {
		return err
	}

	factors := make([][]string, 0, len(r.Factors))
	for _, f := range r.Factors {
		factors = append(factors, []string{f.Name, strconv.Itoa(f.Points), f.Description})
	}
	return renderTable(w, []string{"Factor", "Points", "Description"}, factors)
}

func writeDealTable(w io.Writer, r scoring.DealResult, enabled bool) error {
	rows := [][]string{
		{"Deal score", strconv.Itoa(r.DealScore)},
		{"Win probability", percent(r.WinProbability)},
		{"Risk", riskLabel(r.RiskLevel, enabled)},
		{"Sentiment", string(r.Sentiment)},
		{"Risk factors", joinOrDash(r.RiskFactors)},
		{"Next steps", joinOrDash(r.SuggestedNextSteps)},
	}
	return renderTable(w, []string{"Field", "Value"}, rows)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, "\n")
}

func writeSummary(w io.Writer, format string, args ...interface{}) error {
	_, err := fmt.Fprintf(w, format+"\n", args...)
	return err
}
