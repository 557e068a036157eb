package wizard

// Document is a flat, file-friendly description of a prospect's answers,
// used to build a State outside the interactive wizard.
type Document struct {
	Industry         string   `yaml:"industry" json:"industry"`
	Name             string   `yaml:"name" json:"name"`
	Email            string   `yaml:"email" json:"email"`
	Code             string   `yaml:"code" json:"code"`
	Description      string   `yaml:"description" json:"description"`
	EmployeeCount    string   `yaml:"employee_count" json:"employeeCount"`
	PainPoints       []string `yaml:"pain_points" json:"painPoints"`
	Tools            string   `yaml:"tools" json:"tools"`
	HasSpecificTasks *bool    `yaml:"has_specific_tasks" json:"hasSpecificTasks"`
	Tasks            []Task   `yaml:"tasks" json:"tasks"`
}

// State converts the document into a wizard state. The email is treated
// as verified when a well-formed code is present.
func (d Document) State() *State {
	st := NewState()
	Edit(st, func(r *IndustryRecord) { r.Industry = d.Industry })
	Edit(st, func(r *ContactRecord) {
		r.Name = d.Name
		r.Email = d.Email
		r.Code = d.Code
		if r.Code != "" {
			r.OTP.Email = d.Email
			r.OTP.Requested = true
			r.OTP.Verified = true
		}
	})
	Edit(st, func(r *BusinessRecord) {
		r.Description = d.Description
		r.EmployeeCount = d.EmployeeCount
		for _, p := range d.PainPoints {
			r.TogglePainPoint(p)
		}
		r.Tools = d.Tools
		if d.HasSpecificTasks != nil {
			if *d.HasSpecificTasks {
				r.Interest = PreferenceInterested
			} else {
				r.Interest = PreferenceNotInterested
			}
		}
	})
	Edit(st, func(r *TasksRecord) { r.Tasks = append([]Task(nil), d.Tasks...) })
	return st
}
