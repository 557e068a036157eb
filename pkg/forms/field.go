package forms

// Option represents a select/radio/checkbox option.
type Option struct {
	Value string
	Label string
}

// Options is an ordered option list.
type Options []Option

// Label returns the display label for value, or "" if unknown.
func (o Options) Label(value string) string {
	for _, opt := range o {
		if opt.Value == value {
			return opt.Label
		}
	}
	return ""
}

// Has reports whether value is one of the options.
func (o Options) Has(value string) bool {
	for _, opt := range o {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// FieldError represents a validation error on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Errors is an ordered set of field errors, one per field.
type Errors []FieldError

// Add records msg for field, replacing any previous error for it.
func (e *Errors) Add(field, msg string) {
	e.Remove(field)
	*e = append(*e, FieldError{Field: field, Message: msg})
}

// Remove clears the error for field.
func (e *Errors) Remove(field string) {
	out := (*e)[:0]
	for _, fe := range *e {
		if fe.Field != field {
			out = append(out, fe)
		}
	}
	*e = out
}

// Get returns the error for field, or "".
func (e Errors) Get(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Set records msg for field when non-empty and clears it otherwise.
func (e *Errors) Set(field, msg string) {
	if msg == "" {
		e.Remove(field)
		return
	}
	e.Add(field, msg)
}
