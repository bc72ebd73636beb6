package scoring

// Rule tables. Adding an enum member means adding one row here; the table
// tests fail when a member is missing.

var sourcePoints = map[LeadSource]int{
	SourceReferral: 25,
	SourcePartner:  22,
	SourceEmail:    20,
	SourceEvent:    18,
	SourceWebsite:  15,
	SourceSocial:   12,
	SourceAds:      10,
	SourceOther:    5,
}

var statusPoints = map[LeadStatus]int{
	StatusWon:         35,
	StatusQualified:   30,
	StatusProposal:    25,
	StatusNegotiation: 20,
	StatusContacted:   15,
	StatusNew:         10,
	StatusLost:        -10,
}

var priorityPoints = map[Priority]int{
	PriorityUrgent: 10,
	PriorityHigh:   7,
	PriorityMedium: 5,
	PriorityLow:    2,
}

// gradeThresholds is ordered from the highest floor down.
var gradeThresholds = []struct {
	floor int
	grade Grade
}{
	{80, GradeHot},
	{60, GradeWarm},
	{40, GradeCool},
}

type leadAdvice struct {
	recommendedAction string
	nextBestStep      string
}

var gradeAdvice = map[Grade]leadAdvice{
	GradeHot: {
		recommendedAction: "High conversion probability. Prioritize follow-up.",
		nextBestStep:      "Schedule a demo call within 24 hours",
	},
	GradeWarm: {
		recommendedAction: "Good potential. Regular nurturing recommended.",
		nextBestStep:      "Send personalized follow-up email",
	},
	GradeCool: {
		recommendedAction: "Moderate interest. Consider engagement campaigns.",
		nextBestStep:      "Add to nurturing email sequence",
	},
	GradeCold: {
		recommendedAction: "Low engagement. May need re-evaluation or reactivation.",
		nextBestStep:      "Research and prepare re-engagement strategy",
	},
}

var stageWinProbability = map[DealStage]float64{
	StageQualification: 0.15,
	StageDiscovery:     0.25,
	StageProposal:      0.50,
	StageNegotiation:   0.75,
	StageClosedWon:     1.0,
	StageClosedLost:    0.0,
}

var stageNextSteps = map[DealStage][]string{
	StageQualification: {"Schedule discovery call", "Gather requirements"},
	StageDiscovery:     {"Prepare proposal", "Identify decision makers"},
	StageProposal:      {"Follow up on proposal", "Address questions"},
	StageNegotiation:   {"Prepare negotiation strategy", "Discuss internally about discounts"},
	StageClosedWon:     {},
	StageClosedLost:    {},
}

// Ordered member lists, used for validation messages and stable reporting.
var (
	LeadSources  = []LeadSource{SourceWebsite, SourceReferral, SourceSocial, SourceAds, SourceEmail, SourceEvent, SourcePartner, SourceOther}
	LeadStatuses = []LeadStatus{StatusNew, StatusContacted, StatusQualified, StatusProposal, StatusNegotiation, StatusWon, StatusLost}
	Priorities   = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	Grades       = []Grade{GradeCold, GradeCool, GradeWarm, GradeHot}
	DealStages   = []DealStage{StageQualification, StageDiscovery, StageProposal, StageNegotiation, StageClosedWon, StageClosedLost}
	OpenStages   = DealStages[:4:4]
	RiskLevels   = []RiskLevel{RiskLow, RiskMedium, RiskHigh}
	ScoreBuckets = []string{"0-19", "20-39", "40-59", "60-79", "80-99", "100"}
)
