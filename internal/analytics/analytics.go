// Package analytics reduces persisted leads and deals into dashboard
// reports. It reads the stored score fields and never calls the scoring
// engine, so reports always agree with what the records show.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/internal/scoring"
)

const (
	recentWindow = 30 * 24 * time.Hour
	trendMonths  = 12
	// PipelineTopDeals is the number of deals listed under each pipeline stage.
	PipelineTopDeals = 10
)

type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type KeyScore struct {
	Key      string  `json:"key"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

type Bucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type LeadSummary struct {
	Total     int     `json:"total"`
	New       int     `json:"new"`
	Qualified int     `json:"qualified"`
	Converted int     `json:"converted"`
	AvgScore  float64 `json:"avg_score"`
	HotLeads  int     `json:"hot_leads"`
}

type SourcePerformance struct {
	Source         string  `json:"source"`
	Count          int     `json:"count"`
	AvgScore       float64 `json:"avg_score"`
	Converted      int     `json:"converted"`
	ConversionRate float64 `json:"conversion_rate"`
}

type MonthTrend struct {
	Month     string  `json:"month"`
	Total     int     `json:"total"`
	Converted int     `json:"converted"`
	AvgScore  float64 `json:"avg_score"`
}

// LeadReport is the lead analytics view.
type LeadReport struct {
	Summary           LeadSummary         `json:"summary"`
	ScoreDistribution []Bucket            `json:"score_distribution"`
	GradeDistribution []KeyCount          `json:"grade_distribution"`
	BySource          []KeyScore          `json:"by_source"`
	StatusFunnel      []KeyScore          `json:"status_funnel"`
	SourcePerformance []SourcePerformance `json:"source_performance"`
	MonthlyTrends     []MonthTrend        `json:"monthly_trends"`
}

type DealSummary struct {
	Total         int     `json:"total"`
	Open          int     `json:"open"`
	Won           int     `json:"won"`
	Lost          int     `json:"lost"`
	OnHold        int     `json:"on_hold"`
	TotalValue    float64 `json:"total_value"`
	WeightedValue float64 `json:"weighted_value"`
	AvgDealScore  float64 `json:"avg_deal_score"`
}

type StatusValue struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	TotalValue float64 `json:"total_value"`
}

type StageRevenue struct {
	Stage   string  `json:"stage"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type DealSize struct {
	AvgValue     float64 `json:"avg_value"`
	TotalRevenue float64 `json:"total_revenue"`
	Count        int     `json:"count"`
}

type CycleTime struct {
	AvgDays float64 `json:"avg_days"`
	MinDays float64 `json:"min_days"`
	MaxDays float64 `json:"max_days"`
	Count   int     `json:"count"`
}

type StageConversion struct {
	Stage string `json:"stage"`
	Total int    `json:"total"`
	Won   int    `json:"won"`
	Lost  int    `json:"lost"`
}

// DealReport is the deal analytics view.
type DealReport struct {
	Summary           DealSummary       `json:"summary"`
	WinLoss           []StatusValue     `json:"win_loss"`
	RiskDistribution  []KeyCount        `json:"risk_distribution"`
	RevenueByStage    []StageRevenue    `json:"revenue_by_stage"`
	AvgDealSize       DealSize          `json:"avg_deal_size"`
	CycleTime         CycleTime         `json:"cycle_time"`
	ConversionByStage []StageConversion `json:"conversion_by_stage"`
}

// StageSummary aggregates the open deals of one pipeline stage.
type StageSummary struct {
	Stage          scoring.DealStage `json:"stage"`
	Count          int               `json:"count"`
	Value          float64           `json:"value"`
	WeightedValue  float64           `json:"weighted_value"`
	AvgProbability float64           `json:"avg_probability"`
	AvgDealScore   float64           `json:"avg_deal_score"`
}

// Dashboard is the landing page summary of a tenant.
type Dashboard struct {
	Leads           LeadSummary    `json:"leads"`
	Deals           DealSummary    `json:"deals"`
	NewLeads30Days  int            `json:"new_leads_30_days"`
	LeadsBySource   []KeyScore     `json:"leads_by_source"`
	LeadsByStatus   []KeyScore     `json:"leads_by_status"`
	PipelineByStage []StageSummary `json:"pipeline_by_stage"`
	MonthlyTrends   []MonthTrend   `json:"monthly_trends"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// SummarizeLeads reduces leads into the lead analytics report.
func SummarizeLeads(leads []*models.Lead) LeadReport {
	report := LeadReport{Summary: summarizeLeadCounts(leads)}

	buckets := make(map[string]int, len(scoring.ScoreBuckets))
	grades := make(map[scoring.Grade]int, len(scoring.Grades))
	bySource := newScoreGroups()
	byStatus := newScoreGroups()
	converted := make(map[string]int)

	for _, lead := range leads {
		buckets[scoring.ScoreBucket(lead.AIScore)]++
		grades[scoring.GradeFor(lead.AIScore)]++
		bySource.add(string(lead.Source), float64(lead.AIScore))
		byStatus.add(string(lead.Status), float64(lead.AIScore))
		if lead.Converted {
			converted[string(lead.Source)]++
		}
	}

	report.ScoreDistribution = make([]Bucket, 0, len(scoring.ScoreBuckets))
	for _, label := range scoring.ScoreBuckets {
		report.ScoreDistribution = append(report.ScoreDistribution, Bucket{Range: label, Count: buckets[label]})
	}

	report.GradeDistribution = make([]KeyCount, 0, len(scoring.Grades))
	for _, grade := range scoring.Grades {
		report.GradeDistribution = append(report.GradeDistribution, KeyCount{Key: string(grade), Count: grades[grade]})
	}

	report.BySource = bySource.byCount()
	report.StatusFunnel = byStatus.inOrder(leadStatusOrder())

	report.SourcePerformance = make([]SourcePerformance, 0, len(report.BySource))
	for _, group := range report.BySource {
		perf := SourcePerformance{
			Source:    group.Key,
			Count:     group.Count,
			AvgScore:  group.AvgScore,
			Converted: converted[group.Key],
		}
		if group.Count > 0 {
			perf.ConversionRate = round2(float64(perf.Converted) / float64(group.Count))
		}
		report.SourcePerformance = append(report.SourcePerformance, perf)
	}

	report.MonthlyTrends = monthlyTrends(leads)
	return report
}

// SummarizeDeals reduces deals into the deal analytics report.
func SummarizeDeals(deals []*models.Deal) DealReport {
	report := DealReport{Summary: summarizeDealCounts(deals)}

	statusCount := make(map[models.DealStatus]*StatusValue)
	risk := make(map[scoring.RiskLevel]int)
	revenue := make(map[scoring.DealStage]*StageRevenue)
	conversion := make(map[scoring.DealStage]*StageConversion)
	var cycle []float64

	for _, deal := range deals {
		sv, ok := statusCount[deal.Status]
		if !ok {
			sv = &StatusValue{Status: string(deal.Status)}
			statusCount[deal.Status] = sv
		}
		sv.Count++
		sv.TotalValue += deal.Value

		if deal.RiskLevel != "" {
			risk[deal.RiskLevel]++
		}

		if deal.Status == models.DealWon {
			rv, ok := revenue[deal.Stage]
			if !ok {
				rv = &StageRevenue{Stage: string(deal.Stage)}
				revenue[deal.Stage] = rv
			}
			rv.Count++
			rv.Revenue += deal.Value

			report.AvgDealSize.Count++
			report.AvgDealSize.TotalRevenue += deal.Value

			if deal.ActualCloseDate != nil {
				cycle = append(cycle, deal.ActualCloseDate.Sub(deal.CreatedAt).Hours()/24)
			}
		}

		if deal.Status.IsClosed() {
			sc, ok := conversion[deal.Stage]
			if !ok {
				sc = &StageConversion{Stage: string(deal.Stage)}
				conversion[deal.Stage] = sc
			}
			sc.Total++
			if deal.Status == models.DealWon {
				sc.Won++
			} else {
				sc.Lost++
			}
		}
	}

	report.WinLoss = make([]StatusValue, 0, len(statusCount))
	for _, status := range models.DealStatuses {
		if sv, ok := statusCount[status]; ok {
			sv.TotalValue = round2(sv.TotalValue)
			report.WinLoss = append(report.WinLoss, *sv)
		}
	}

	report.RiskDistribution = make([]KeyCount, 0, len(scoring.RiskLevels))
	for _, level := range scoring.RiskLevels {
		report.RiskDistribution = append(report.RiskDistribution, KeyCount{Key: string(level), Count: risk[level]})
	}

	report.RevenueByStage = make([]StageRevenue, 0, len(revenue))
	for _, rv := range revenue {
		rv.Revenue = round2(rv.Revenue)
		report.RevenueByStage = append(report.RevenueByStage, *rv)
	}
	sort.Slice(report.RevenueByStage, func(i, j int) bool {
		a, b := report.RevenueByStage[i], report.RevenueByStage[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.Stage < b.Stage
	})

	if report.AvgDealSize.Count > 0 {
		report.AvgDealSize.AvgValue = round2(report.AvgDealSize.TotalRevenue / float64(report.AvgDealSize.Count))
		report.AvgDealSize.TotalRevenue = round2(report.AvgDealSize.TotalRevenue)
	}

	if len(cycle) > 0 {
		sum, lo, hi := 0.0, math.Inf(1), math.Inf(-1)
		for _, days := range cycle {
			sum += days
			lo = math.Min(lo, days)
			hi = math.Max(hi, days)
		}
		report.CycleTime = CycleTime{
			AvgDays: round2(sum / float64(len(cycle))),
			MinDays: round2(lo),
			MaxDays: round2(hi),
			Count:   len(cycle),
		}
	}

	report.ConversionByStage = make([]StageConversion, 0, len(conversion))
	for _, stage := range scoring.DealStages {
		if sc, ok := conversion[stage]; ok {
			report.ConversionByStage = append(report.ConversionByStage, *sc)
		}
	}

	return report
}

// PipelineByStage aggregates open deals per stage in canonical stage order.
// Every open stage is present, empty ones with zero counts.
func PipelineByStage(deals []*models.Deal) []StageSummary {
	type acc struct {
		StageSummary
		probability float64
		score       float64
	}
	byStage := make(map[scoring.DealStage]*acc, len(scoring.OpenStages))
	for _, stage := range scoring.OpenStages {
		byStage[stage] = &acc{StageSummary: StageSummary{Stage: stage}}
	}

	for _, deal := range deals {
		if deal.Status != models.DealOpen {
			continue
		}
		a, ok := byStage[deal.Stage]
		if !ok {
			continue
		}
		a.Count++
		a.Value += deal.Value
		a.WeightedValue += weighted(deal)
		a.probability += float64(deal.Probability)
		a.score += float64(deal.DealScore)
	}

	out := make([]StageSummary, 0, len(scoring.OpenStages))
	for _, stage := range scoring.OpenStages {
		a := byStage[stage]
		s := a.StageSummary
		s.Value = round2(s.Value)
		s.WeightedValue = round2(s.WeightedValue)
		if s.Count > 0 {
			s.AvgProbability = round2(a.probability / float64(s.Count))
			s.AvgDealScore = round2(a.score / float64(s.Count))
		}
		out = append(out, s)
	}
	return out
}

// BuildDashboard assembles the dashboard of one tenant.
func BuildDashboard(leads []*models.Lead, deals []*models.Deal, now time.Time) Dashboard {
	d := Dashboard{
		Leads:           summarizeLeadCounts(leads),
		Deals:           summarizeDealCounts(deals),
		PipelineByStage: PipelineByStage(deals),
		MonthlyTrends:   monthlyTrends(leads),
		GeneratedAt:     now,
	}

	bySource := newScoreGroups()
	byStatus := newScoreGroups()
	cutoff := now.Add(-recentWindow)
	for _, lead := range leads {
		bySource.add(string(lead.Source), float64(lead.AIScore))
		byStatus.add(string(lead.Status), float64(lead.AIScore))
		if !lead.CreatedAt.Before(cutoff) {
			d.NewLeads30Days++
		}
	}
	d.LeadsBySource = bySource.byCount()
	d.LeadsByStatus = byStatus.byCount()

	return d
}

func summarizeLeadCounts(leads []*models.Lead) LeadSummary {
	var s LeadSummary
	var total float64
	for _, lead := range leads {
		s.Total++
		total += float64(lead.AIScore)
		switch lead.Status {
		case scoring.StatusNew:
			s.New++
		case scoring.StatusQualified:
			s.Qualified++
		}
		if lead.Converted {
			s.Converted++
		}
		if scoring.GradeFor(lead.AIScore) == scoring.GradeHot {
			s.HotLeads++
		}
	}
	if s.Total > 0 {
		s.AvgScore = round2(total / float64(s.Total))
	}
	return s
}

func summarizeDealCounts(deals []*models.Deal) DealSummary {
	var s DealSummary
	var score float64
	for _, deal := range deals {
		s.Total++
		switch deal.Status {
		case models.DealOpen:
			s.Open++
		case models.DealWon:
			s.Won++
		case models.DealLost:
			s.Lost++
		case models.DealOnHold:
			s.OnHold++
		}
		s.TotalValue += deal.Value
		s.WeightedValue += weighted(deal)
		score += float64(deal.DealScore)
	}
	s.TotalValue = round2(s.TotalValue)
	s.WeightedValue = round2(s.WeightedValue)
	if s.Total > 0 {
		s.AvgDealScore = round2(score / float64(s.Total))
	}
	return s
}

// monthlyTrends groups leads by creation month, keeping the latest 12.
func monthlyTrends(leads []*models.Lead) []MonthTrend {
	type acc struct {
		MonthTrend
		score float64
	}
	byMonth := make(map[string]*acc)
	for _, lead := range leads {
		month := lead.CreatedAt.UTC().Format("2006-01")
		a, ok := byMonth[month]
		if !ok {
			a = &acc{MonthTrend: MonthTrend{Month: month}}
			byMonth[month] = a
		}
		a.Total++
		a.score += float64(lead.AIScore)
		if lead.Converted {
			a.Converted++
		}
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	if len(months) > trendMonths {
		months = months[len(months)-trendMonths:]
	}

	out := make([]MonthTrend, 0, len(months))
	for _, month := range months {
		a := byMonth[month]
		t := a.MonthTrend
		t.AvgScore = round2(a.score / float64(t.Total))
		out = append(out, t)
	}
	return out
}

func weighted(deal *models.Deal) float64 {
	return deal.Value * float64(deal.Probability) / 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// scoreGroups accumulates count and average score per key.
type scoreGroups struct {
	counts map[string]int
	totals map[string]float64
}

func newScoreGroups() *scoreGroups {
	return &scoreGroups{counts: make(map[string]int), totals: make(map[string]float64)}
}

func (g *scoreGroups) add(key string, score float64) {
	g.counts[key]++
	g.totals[key] += score
}

func (g *scoreGroups) get(key string) KeyScore {
	ks := KeyScore{Key: key, Count: g.counts[key]}
	if ks.Count > 0 {
		ks.AvgScore = round2(g.totals[key] / float64(ks.Count))
	}
	return ks
}

// byCount lists groups by descending count, ties by key.
func (g *scoreGroups) byCount() []KeyScore {
	out := make([]KeyScore, 0, len(g.counts))
	for key := range g.counts {
		out = append(out, g.get(key))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// inOrder lists groups in the given key order, then any unknown keys.
func (g *scoreGroups) inOrder(order []string) []KeyScore {
	out := make([]KeyScore, 0, len(g.counts))
	seen := make(map[string]bool, len(order))
	for _, key := range order {
		seen[key] = true
		if g.counts[key] > 0 {
			out = append(out, g.get(key))
		}
	}
	var rest []string
	for key := range g.counts {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		out = append(out, g.get(key))
	}
	return out
}

func leadStatusOrder() []string {
	order := make([]string, len(scoring.LeadStatuses))
	for i, status := range scoring.LeadStatuses {
		order[i] = string(status)
	}
	return order
}
