package wizard

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gabrielmiguelok/intakewizard/pkg/security"
)

const notProvided = "Not provided"

// maxAnswerLength caps each free-text answer in the summary, in runes.
const maxAnswerLength = 500

// SchedulingSummary renders every answer as plain text for the scheduling
// widget's free-text prefill field.
func SchedulingSummary(st *State) string {
	ind := st.Industry()
	contact := st.Contact()
	biz := st.Business()

	sections := []struct {
		title   string
		content string
	}{
		{"Business Information", "Industry: " + orNotProvided(ind.Label())},
		{"Contact Information", fmt.Sprintf("Name: %s\nEmail: %s",
			orNotProvided(answer(contact.Name)), orNotProvided(contact.Email))},
		{"Business Overview", fmt.Sprintf("Business Description: %s\nEmployee Count: %s\nPain Points: %s\nTools Used: %s",
			orNotProvided(answer(biz.Description)),
			orNotProvided(biz.EmployeeCount),
			orNotProvided(strings.Join(painPointLabels(biz.PainPoints), ", ")),
			orNotProvided(answer(strings.Join(biz.ToolList(), ", "))))},
		{"Automation Tasks", taskSummary(st)},
	}

	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = "=== " + s.title + " ===\n" + s.content
	}
	return strings.Join(parts, "\n\n")
}

func taskSummary(st *State) string {
	if st.Preference() != PreferenceInterested {
		return "No tasks provided"
	}
	var b strings.Builder
	n := 0
	for _, t := range st.Tasks().Tasks {
		if !t.Complete() {
			continue
		}
		if n > 0 {
			b.WriteString("\n\n")
		}
		n++
		fmt.Fprintf(&b, "Task %d: %s\nDescription: %s\nHourly Cost: $%s\nDaily Hours: %s",
			n, answer(t.Title), answer(t.Description),
			orZero(t.HourlyCost), orZero(t.DailyHours))
	}
	if n == 0 {
		return "No tasks provided"
	}
	return b.String()
}

// SchedulingURL adds the name, email and summary prefill parameters to the
// widget's base URL.
func SchedulingURL(base string, st *State) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse scheduling url: %w", err)
	}
	contact := st.Contact()
	q := u.Query()
	q.Set("name", strings.TrimSpace(contact.Name))
	q.Set("email", strings.TrimSpace(contact.Email))
	q.Set("a1", SchedulingSummary(st))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// answer flattens a free-text answer onto one line and caps its length.
func answer(s string) string {
	return security.TruncateText(security.NormalizeWhitespace(s), maxAnswerLength)
}

func orNotProvided(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return notProvided
	}
	return s
}

func orZero(s string) string {
	if s = strings.TrimPrefix(strings.TrimSpace(s), "$"); s == "" {
		return "0"
	}
	return s
}
