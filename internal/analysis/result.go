package analysis

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Result wraps the loosely typed analysis document. Every accessor
// tolerates missing keys and unexpected types.
type Result struct {
	raw  map[string]any
	data map[string]any
}

// NewResult wraps doc. Fields may live at the top level or under "data".
func NewResult(doc map[string]any) *Result {
	r := &Result{raw: doc, data: doc}
	if inner, ok := doc["data"].(map[string]any); ok {
		r.data = inner
	}
	return r
}

// Raw returns the decoded document.
func (r *Result) Raw() map[string]any { return r.raw }

// BusinessInfo is the analysed business overview.
type BusinessInfo struct {
	Industry      string
	EmployeeCount string
	Description   string
}

// Savings is an estimated monthly saving.
type Savings struct {
	Hours float64
	Money float64
}

// Positive reports whether both hours and money are above zero.
func (s Savings) Positive() bool { return s.Hours > 0 && s.Money > 0 }

// TaskAnalysis is the recommendation for one submitted task.
type TaskAnalysis struct {
	Task        string
	Description string
	Suggestion  string
	Action      string
	CaseStudies []string
	Savings     Savings
}

// Opportunity is a recommendation derived from a pain point.
type Opportunity struct {
	Suggestion  string
	Action      string
	CaseStudies []string
}

// BusinessInfo returns the business section.
func (r *Result) BusinessInfo() BusinessInfo {
	m := asMap(r.data["business_info"])
	return BusinessInfo{
		Industry:      asString(m["industry"]),
		EmployeeCount: asString(m["employee_count"]),
		Description:   asString(m["description"]),
	}
}

// TaskAnalyses returns one entry per analysed task. A plain string in
// place of the list is reported by TasksNote instead.
func (r *Result) TaskAnalyses() []TaskAnalysis {
	list, ok := r.data["custom_tasks_analysis"].([]any)
	if !ok {
		return nil
	}
	out := make([]TaskAnalysis, 0, len(list))
	for _, item := range list {
		m := asMap(item)
		if m == nil {
			continue
		}
		out = append(out, TaskAnalysis{
			Task:        asString(m["task"]),
			Description: asString(m["description"]),
			Suggestion:  asString(m["automation_suggestion"]),
			Action:      asString(m["refined_custom_call_action"]),
			CaseStudies: caseStudies(m["case_study"]),
			Savings:     savings(m["total_savings"]),
		})
	}
	return out
}

// TasksNote returns the free-text task analysis some responses carry
// instead of a list.
func (r *Result) TasksNote() string {
	return asString(r.data["custom_tasks_analysis"])
}

// Opportunities returns the pain point analyses. A single object is
// treated as a one-element list.
func (r *Result) Opportunities() []Opportunity {
	var items []any
	switch v := r.data["pain_points_analysis"].(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil
	}
	out := make([]Opportunity, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		out = append(out, Opportunity{
			Suggestion:  asString(m["automation_suggestion"]),
			Action:      asString(m["refined_custom_call_action"]),
			CaseStudies: caseStudies(m["case_study"]),
		})
	}
	return out
}

// OpportunitiesTitle is the heading for the pain point section.
func (r *Result) OpportunitiesTitle() string {
	if len(r.TaskAnalyses()) > 0 {
		return "Extra Suggestions"
	}
	return "Automation Opportunities"
}

// TotalSavings returns the overall estimate. It is reported only when
// task analyses exist and both figures are positive.
func (r *Result) TotalSavings() (Savings, bool) {
	if len(r.TaskAnalyses()) == 0 {
		return Savings{}, false
	}
	s := savings(r.data["total_savings"])
	return s, s.Positive()
}

func savings(v any) Savings {
	m := asMap(v)
	return Savings{
		Hours: asFloat(m["time_saved"]),
		Money: asFloat(m["savings"]),
	}
}

// caseStudies normalises {"link": string | []string} to a list.
func caseStudies(v any) []string {
	m := asMap(v)
	switch link := m["link"].(type) {
	case string:
		if link = strings.TrimSpace(link); link != "" {
			return []string{link}
		}
	case []any:
		var out []string
		for _, l := range link {
			if s := strings.TrimSpace(asString(l)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(n), "$"), 64)
		return f
	default:
		return 0
	}
}

// FormatAmount renders a savings figure without trailing zeros.
func FormatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
