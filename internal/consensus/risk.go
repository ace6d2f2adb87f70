package consensus

import (
	"sort"
	"strings"

	"argos/internal/domain/decision"
)

// Risk-limit gates: overall risk must stay below the ceiling and fewer than
// two factors may score in the severe band.
const (
	riskCeiling       = 50.0
	severeFactorScore = 7.0
	maxSevereFactors  = 2
	unmatchedSeverity = 4.0 // middle of the 3-5 band for unclassified strings
)

// keywordSeverity maps risk-string keywords to severity scores. Checked in
// order; the first match wins.
var keywordSeverity = []struct {
	keyword  string
	severity float64
}{
	{"fraud", 10},
	{"critical", 9},
	{"veto", 9},
	{"avoid", 8},
	{"elevated", 6},
	{"warning", 5},
	{"caution", 4},
	{"potential", 3},
	{"note", 2},
	{"minor", 1},
}

// assessRisk scores every risk string across all responses by keyword
// severity, ranks the factors, and normalizes the sum to 0-100.
func (e *Engine) assessRisk(responses []*decision.AgentResponse) RiskAssessment {
	factors := make([]RiskFactor, 0)
	for _, r := range responses {
		for _, risk := range r.Risks {
			factors = append(factors, RiskFactor{
				Description: risk,
				Severity:    severityOf(risk),
			})
		}
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Severity > factors[j].Severity
	})

	var sum float64
	severe := 0
	for _, f := range factors {
		sum += f.Severity
		if f.Severity > severeFactorScore {
			severe++
		}
	}

	overall := 0.0
	if len(factors) > 0 {
		overall = decision.Clamp(sum/(float64(len(factors))*10)*100, 0, 100)
	}

	return RiskAssessment{
		OverallRisk:  overall,
		Factors:      factors,
		WithinLimits: overall < riskCeiling && severe < maxSevereFactors,
	}
}

// severityOf scores one risk string by keyword
func severityOf(risk string) float64 {
	lower := strings.ToLower(risk)
	for _, ks := range keywordSeverity {
		if strings.Contains(lower, ks.keyword) {
			return ks.severity
		}
	}
	return unmatchedSeverity
}
