package intake

// Slots must not nest: the runtime diffs each data-slot region on its own.
const pageHTML = `
{{define "wizard" -}}
<div data-live-view="intake" class="wizard" data-step="{{.Step}}">
	<ol class="wizard-progress" data-slot="progress">{{template "progress" .}}</ol>
	<div class="wizard-alert" data-slot="alert">{{template "alert" .}}</div>
	<section class="wizard-step" data-slot="step">{{template "step" .}}</section>
	<div class="wizard-actions" data-slot="actions">{{template "actions" .}}</div>
</div>
{{- end}}

{{define "progress" -}}
{{range .Progress}}<li class="{{if .Active}}active{{else if .Done}}done{{end}}{{if .Skipped}} skipped{{end}}"><span class="num">{{.Number}}</span> {{.Title}}</li>{{end}}
{{- end}}

{{define "alert" -}}
{{with .Failure}}<div class="alert alert-error" role="alert">
	<strong>{{.Title}}</strong>
	<p>{{.Text}}</p>
	<button type="button" id="retry" lv-click="retry">Try again</button>
	<button type="button" id="dismiss" class="link" lv-click="dismiss">Dismiss</button>
	{{with $.SupportEmail}}<p class="support">Still stuck? <a href="mailto:{{.}}">Contact support</a></p>{{end}}
</div>{{end}}
{{- end}}

{{define "step" -}}
<h2>{{.Title}}</h2>
{{with .Notice}}<p class="notice" role="status">{{.}}</p>{{end}}
{{if eq .Step "welcome"}}{{template "welcome" .}}
{{else if eq .Step "industry"}}{{template "industry" .}}
{{else if eq .Step "contact"}}{{template "contact" .}}
{{else if eq .Step "business"}}{{template "business" .}}
{{else if eq .Step "tasks"}}{{template "tasks" .}}
{{else if eq .Step "review"}}{{template "review" .}}
{{else if eq .Step "schedule"}}{{template "schedule" .}}
{{else}}{{template "completed" .}}{{end}}
{{- end}}

{{define "welcome" -}}
<p class="lead">Discover which parts of your business can run on autopilot.</p>
<p>Answer a few questions about your company and the work that eats your team's time. We will analyze your answers and suggest concrete automations, with an estimate of the hours and money they could save.</p>
<p>It takes about five minutes.</p>
{{- end}}

{{define "industry" -}}
<p>Which industry is your business in?</p>
<div class="options" role="radiogroup">
{{- $sel := .Industry.Industry}}
{{range .Industries}}<button type="button" class="option{{if eq .Value $sel}} selected{{end}}" role="radio" aria-checked="{{if eq .Value $sel}}true{{else}}false{{end}}" lv-click="select_industry" lv-value-industry="{{.Value}}">{{.Label}}</button>
{{end}}</div>
{{with .Err "industry"}}<p class="field-error">{{.}}</p>{{end}}
{{- end}}

{{define "contact" -}}
{{$c := .Contact}}
<label for="name">Full name</label>
<input id="name" name="name" type="text" autocomplete="name" value="{{$c.Name}}" lv-change="field">
{{with .Err "name"}}<p class="field-error">{{.}}</p>{{end}}

<label for="email">Work email</label>
<input id="email" name="email" type="email" autocomplete="email" value="{{$c.Email}}" lv-change="field">
{{with .Err "email"}}<p class="field-error">{{.}}</p>{{end}}

{{if $c.OTP.Verified}}<p class="verified">Email verified</p>
{{else if not $c.OTP.Requested}}<button type="button" id="send-code" lv-click="send_code"{{if not .CanSend}} disabled{{end}}>{{if .Pending "send"}}Sending...{{else}}{{with .ResendIn}}Send code in {{seconds .}}{{else}}Send verification code{{end}}{{end}}</button>
{{else}}<label for="code">Verification code</label>
<input id="code" name="code" type="text" inputmode="numeric" autocomplete="one-time-code" maxlength="6" value="{{$c.Code}}" lv-change="field">
{{with .Err "code"}}<p class="field-error">{{.}}</p>{{end}}
<button type="button" id="verify-code" lv-click="verify_code"{{if not .CanVerify}} disabled{{end}}>{{if .Pending "verify"}}Verifying...{{else}}Verify{{end}}</button>
{{$wait := .ResendIn}}<button type="button" id="resend-code" class="link" lv-click="resend_code"{{if or $wait (.Pending "send")}} disabled{{end}}>{{if $wait}}Resend code in {{seconds $wait}}{{else}}Resend code{{end}}</button>
{{end}}
{{- end}}

{{define "business" -}}
{{$b := .Business}}
<label for="description">What does your business do?</label>
<textarea id="description" name="description" rows="4" lv-change="field">{{$b.Description}}</textarea>
{{with .Err "description"}}<p class="field-error">{{.}}</p>{{end}}

<label for="employee_count">Number of employees</label>
<select id="employee_count" name="employee_count" lv-change="field">
<option value="">Select...</option>
{{range .EmployeeCounts}}<option value="{{.Value}}"{{if eq .Value $b.EmployeeCount}} selected{{end}}>{{.Label}}</option>
{{end}}</select>
{{with .Err "employee_count"}}<p class="field-error">{{.}}</p>{{end}}

<fieldset>
<legend>Where does your team lose the most time?</legend>
{{range .PainPoints}}<label class="check"><input type="checkbox" lv-click="toggle_pain_point" lv-value-point="{{.Value}}"{{if $b.HasPainPoint .Value}} checked{{end}}> {{.Label}}</label>
{{end}}</fieldset>

<label for="tools">Tools you use today (comma separated)</label>
<textarea id="tools" name="tools" rows="2" lv-change="field">{{$b.Tools}}</textarea>

<fieldset>
<legend>Do you have specific tasks you want to automate?</legend>
<button type="button" id="interest-yes" class="option{{if .Interested}} selected{{end}}" lv-click="set_interest" lv-value-interest="yes">Yes, I have tasks in mind</button>
<button type="button" id="interest-no" class="option{{if .NotInterested}} selected{{end}}" lv-click="set_interest" lv-value-interest="no">No, suggest ideas for me</button>
</fieldset>
{{with .Err "interest"}}<p class="field-error">{{.}}</p>{{end}}
{{- end}}

{{define "tasks" -}}
<p>Describe up to {{.MaxTasks}} tasks your team repeats every day.</p>
{{$v := .}}
{{range $i, $t := .Tasks}}<fieldset class="task">
<legend>Task {{inc $i}}</legend>
<input id="task-{{$i}}-title" name="task.{{$i}}.title" type="text" placeholder="Title" value="{{$t.Title}}" lv-change="field">
<textarea id="task-{{$i}}-description" name="task.{{$i}}.description" rows="2" placeholder="What happens, step by step?" lv-change="field">{{$t.Description}}</textarea>
<input id="task-{{$i}}-hourly_cost" name="task.{{$i}}.hourly_cost" type="text" inputmode="decimal" placeholder="Hourly cost ($)" value="{{$t.HourlyCost}}" lv-change="field">
{{with $v.TaskErr "hourly_cost" $i}}<p class="field-error">{{.}}</p>{{end}}
<input id="task-{{$i}}-daily_hours" name="task.{{$i}}.daily_hours" type="text" inputmode="decimal" placeholder="Hours per day" value="{{$t.DailyHours}}" lv-change="field">
{{with $v.TaskErr "daily_hours" $i}}<p class="field-error">{{.}}</p>{{end}}
<button type="button" class="link" lv-click="remove_task" lv-value-index="{{$i}}">Remove</button>
</fieldset>
{{end}}
<button type="button" id="add-task" lv-click="add_task"{{if not .CanAddTask}} disabled{{end}}>Add a task</button>
{{with .Err "tasks"}}<p class="field-error">{{.}}</p>{{end}}
{{- end}}

{{define "review" -}}
{{with .Result}}{{template "results" $}}
{{else}}{{if .Submitted}}<p>Your answers were analyzed. Book a consultation to walk through the recommendations.</p>
{{else}}<p>Check your answers, then request your analysis.</p>
<pre class="summary">{{.Summary}}</pre>
{{end}}{{end}}
{{- end}}

{{define "results" -}}
{{$r := .Result}}
{{with .Savings}}<div class="savings">
<h3>Estimated monthly savings</h3>
<p><strong>{{amount .Hours}}</strong> hours and <strong>${{amount .Money}}</strong></p>
</div>{{end}}
{{with $r.BusinessInfo}}<div class="business-info">
<h3>Your business</h3>
<dl><dt>Industry</dt><dd>{{.Industry}}</dd><dt>Employees</dt><dd>{{.EmployeeCount}}</dd><dt>Description</dt><dd>{{.Description}}</dd></dl>
</div>{{end}}
{{with $r.TaskAnalyses}}<h3>Your tasks</h3>
{{range .}}<article class="analysis">
<h4>{{.Task}}</h4>
{{with .Description}}<p class="muted">{{.}}</p>{{end}}
<div class="suggestion">{{$.Safe .Suggestion}}</div>
{{with .Action}}<div class="action">{{$.Safe .}}</div>{{end}}
{{if .Savings.Positive}}<p class="saving">Saves about {{amount .Savings.Hours}} hours and ${{amount .Savings.Money}} a month</p>{{end}}
{{range .CaseStudies}}<a class="case-study" href="{{.}}" target="_blank" rel="noopener">Case study</a> {{end}}
</article>
{{end}}{{else}}{{with $r.TasksNote}}<p>{{.}}</p>{{end}}{{end}}
{{with $r.Opportunities}}<h3>{{$r.OpportunitiesTitle}}</h3>
{{range .}}<article class="analysis">
<div class="suggestion">{{$.Safe .Suggestion}}</div>
{{with .Action}}<div class="action">{{$.Safe .}}</div>{{end}}
{{range .CaseStudies}}<a class="case-study" href="{{.}}" target="_blank" rel="noopener">Case study</a> {{end}}
</article>
{{end}}{{end}}
{{- end}}

{{define "schedule" -}}
{{if .Scheduled}}<div class="success">
<h3>Meeting Scheduled Successfully!</h3>
<p>We look forward to discussing your automation needs with you, {{.Contact.Name}}. You will receive a calendar invitation shortly.</p>
</div>
{{else}}{{with .SchedulingURL}}<iframe id="scheduler" class="scheduler" src="{{.}}" title="Schedule your consultation" loading="lazy"></iframe>
{{else}}<p>Scheduling is not available right now. We will reach out by email.</p>{{end}}
{{end}}
{{- end}}

{{define "completed" -}}
<p class="lead">Thank you, {{.Contact.Name}}.</p>
<p>Your consultation is booked. Check your inbox for the details.</p>
{{- end}}

{{define "actions" -}}
{{if eq .Step "welcome"}}<button type="button" id="next" class="primary" lv-click="next">Get started</button>
{{else if eq .Step "completed"}}<button type="button" id="reset" lv-click="reset">Start over</button>
{{else}}<button type="button" id="back" lv-click="back"{{if not .CanGoBack}} disabled{{end}}>Back</button>
{{if eq .Step "review"}}{{if .Submitted}}<button type="button" id="next" class="primary" lv-click="next">Book consultation</button>
{{else}}<button type="button" id="submit" class="primary" lv-click="submit"{{if .Pending "submit"}} disabled{{end}}>{{if .Pending "submit"}}Analyzing...{{else}}Get my analysis{{end}}</button>
{{end}}{{else if eq .Step "schedule"}}<button type="button" id="next" class="primary" lv-click="next"{{if not .CanAdvance}} disabled{{end}}>Finish</button>
{{else}}<button type="button" id="next" class="primary" lv-click="next"{{if not .CanAdvance}} disabled{{end}}>Next</button>
{{end}}<button type="button" id="start-over" class="link" lv-click="reset">Start over</button>
{{end}}
{{- end}}
`
