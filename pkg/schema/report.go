package schema

import "fmt"

// Severity classifies an issue found in a machine definition.
type Severity string

const (
	// SeverityError marks a definition that cannot be executed.
	SeverityError Severity = "error"
	// SeverityWarning marks a definition that executes but probably
	// does not do what its author intended.
	SeverityWarning Severity = "warning"
)

// Issue represents a single finding about a machine definition.
type Issue struct {
	Severity Severity // error or warning
	Code     string   // stable machine-readable identifier
	Message  string   // human-readable explanation
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s]: %s", i.Severity, i.Code, i.Message)
}

// Report aggregates every issue found during a check.
type Report struct {
	Machine string
	Issues  []Issue
}

// OK reports whether the definition has no error-severity issues.
// A definition with only warnings is still executable.
func (r *Report) OK() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// Err converts the report into an error when it contains errors,
// so callers can treat a failed check like any other failure.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return fmt.Errorf("machine %q: %s", r.Machine, errs[0].Message)
	}
	msg := fmt.Sprintf("machine %q: %d errors:\n", r.Machine, len(errs))
	for i, issue := range errs {
		msg += fmt.Sprintf("  %d. %s\n", i+1, issue.Message)
	}
	return fmt.Errorf("%s", msg)
}

func (r *Report) add(sev Severity, code, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	})
}
