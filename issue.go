package txclient

// IssueSeverity represents the severity of an OperationOutcome issue.
type IssueSeverity string

const (
	// SeverityFatal indicates the server could not process the request at all.
	SeverityFatal IssueSeverity = "fatal"
	// SeverityError indicates the operation failed.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a potential problem that should be reviewed.
	SeverityWarning IssueSeverity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation IssueSeverity = "information"
)

// IssueType represents OperationOutcome.issue.code.
type IssueType string

const (
	IssueTypeInvalid      IssueType = "invalid"
	IssueTypeRequired     IssueType = "required"
	IssueTypeValue        IssueType = "value"
	IssueTypeProcessing   IssueType = "processing"
	IssueTypeNotFound     IssueType = "not-found"
	IssueTypeCodeInvalid  IssueType = "code-invalid"
	IssueTypeNotSupported IssueType = "not-supported"
	IssueTypeTooCostly    IssueType = "too-costly"
	IssueTypeTimeout      IssueType = "timeout"
	IssueTypeException    IssueType = "exception"
	IssueTypeInformation  IssueType = "informational"
)

// IssueDetails is the subset of CodeableConcept carried in issue.details.
type IssueDetails struct {
	Text string `json:"text,omitempty"`
}

// Issue is a single OperationOutcome.issue as reported by a terminology server.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Code     IssueType     `json:"code"`

	// Details holds the coded or textual explanation, when the server sends one.
	Details *IssueDetails `json:"details,omitempty"`

	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
	Location    []string `json:"location,omitempty"`
}

// IsError returns true if this is an error or fatal issue.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// Message returns the most specific human readable text of the issue:
// diagnostics first, then details.text.
func (i Issue) Message() string {
	if i.Diagnostics != "" {
		return i.Diagnostics
	}
	if i.Details != nil {
		return i.Details.Text
	}
	return ""
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	path := ""
	if len(i.Expression) > 0 {
		path = " at " + i.Expression[0]
	}
	return string(i.Severity) + ": " + i.Message() + path
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity IssueSeverity, code IssueType) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Error creates an error issue.
func Error(code IssueType) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue.
func Warning(code IssueType) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Diagnostics sets the diagnostic message.
func (b *IssueBuilder) Diagnostics(msg string) *IssueBuilder {
	b.issue.Diagnostics = msg
	return b
}

// Text sets details.text.
func (b *IssueBuilder) Text(text string) *IssueBuilder {
	b.issue.Details = &IssueDetails{Text: text}
	return b
}

// At sets the expression path.
func (b *IssueBuilder) At(path string) *IssueBuilder {
	b.issue.Expression = []string{path}
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
