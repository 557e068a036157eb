package wizard

import "time"

var t0 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// filledState returns a state with every step before review valid.
func filledState(pref AutomationPreference) *State {
	st := NewState()
	Edit(st, func(r *IndustryRecord) { r.Industry = "LAW" })
	Edit(st, func(r *ContactRecord) {
		r.Name = "Ada Lovelace"
		r.Email = "ada@example.com"
		r.Code = "123456"
		r.OTP.Email = r.Email
		r.OTP.Requested = true
		r.OTP.Verified = true
	})
	Edit(st, func(r *BusinessRecord) {
		r.Description = "Boutique law firm"
		r.EmployeeCount = "11-50"
		r.TogglePainPoint("data_entry")
		r.TogglePainPoint("email")
		r.Tools = "Clio, Outlook"
		r.Interest = pref
	})
	if pref == PreferenceInterested {
		Edit(st, func(r *TasksRecord) {
			r.Tasks = []Task{
				{Title: "Intake", Description: "Copy client details", HourlyCost: "40", DailyHours: "2"},
			}
		})
	}
	return st
}
