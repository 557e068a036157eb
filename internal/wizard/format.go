package wizard

import (
	"strings"
	"time"
)

// Payload is the document posted to the analysis API.
type Payload struct {
	Metadata        Metadata      `json:"metadata"`
	ContactInfo     ContactInfo   `json:"contactInfo"`
	BusinessInfo    BusinessInfo  `json:"businessInfo"`
	AutomationTasks []TaskPayload `json:"automationTasks,omitempty"`
}

// Metadata describes the payload itself.
type Metadata struct {
	Timestamp string `json:"timestamp"`
}

// ContactInfo is the verified contact. Blank fields are null.
type ContactInfo struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Code  *string `json:"code"`
}

// BusinessInfo is the business overview.
type BusinessInfo struct {
	Industry         *string  `json:"industry"`
	Description      *string  `json:"description"`
	EmployeeCount    *string  `json:"employeeCount"`
	PainPoints       []string `json:"painPoints"`
	Tools            []string `json:"tools"`
	HasSpecificTasks bool     `json:"hasSpecificTasks"`
}

// TaskPayload is one automation task.
type TaskPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	HourlyCost  *float64 `json:"hourlyCost"`
	DailyHours  *float64 `json:"dailyHours"`
}

// Format builds the submission payload for st at now. It never modifies st
// and the result shares no memory with it. Tasks without both a title and
// a description are dropped, and the task list is omitted entirely when
// the prospect has no specific tasks or none survive filtering.
func Format(st *State, now time.Time) Payload {
	ind := st.Industry()
	contact := st.Contact()
	biz := st.Business()

	p := Payload{
		Metadata: Metadata{Timestamp: now.UTC().Format(time.RFC3339)},
		ContactInfo: ContactInfo{
			Name:  nullable(contact.Name),
			Email: nullable(contact.Email),
			Code:  nullable(contact.Code),
		},
		BusinessInfo: BusinessInfo{
			Industry:         nullable(ind.Industry),
			Description:      nullable(biz.Description),
			EmployeeCount:    nullable(biz.EmployeeCount),
			PainPoints:       painPointLabels(biz.PainPoints),
			Tools:            biz.ToolList(),
			HasSpecificTasks: biz.Interest == PreferenceInterested,
		},
	}

	if !p.BusinessInfo.HasSpecificTasks {
		return p
	}

	for _, t := range st.Tasks().Tasks {
		if !t.Complete() {
			continue
		}
		p.AutomationTasks = append(p.AutomationTasks, TaskPayload{
			Title:       strings.TrimSpace(t.Title),
			Description: strings.TrimSpace(t.Description),
			HourlyCost:  amount(t.HourlyCost),
			DailyHours:  amount(t.DailyHours),
		})
	}
	return p
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func amount(s string) *float64 {
	f, ok := parseAmount(s)
	if !ok {
		return nil
	}
	return &f
}

// painPointLabels maps pain point codes to their labels, keeping unknown
// codes as-is.
func painPointLabels(codes []string) []string {
	labels := make([]string, 0, len(codes))
	for _, c := range codes {
		if l := PainPoints.Label(c); l != "" {
			labels = append(labels, l)
		} else {
			labels = append(labels, c)
		}
	}
	return labels
}
