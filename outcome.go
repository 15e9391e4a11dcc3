package txclient

// ResourceTypeOperationOutcome is the resourceType of an OperationOutcome.
const ResourceTypeOperationOutcome = "OperationOutcome"

// OperationOutcome is the error payload a FHIR server returns with a
// non-success status. Only the members used for error reporting are modeled.
type OperationOutcome struct {
	ResourceType string  `json:"resourceType"`
	Issues       []Issue `json:"issue"`
}

// NewOperationOutcome creates an OperationOutcome holding issues.
func NewOperationOutcome(issues ...Issue) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: ResourceTypeOperationOutcome,
		Issues:       issues,
	}
}

// HasErrors returns true if there are any error or fatal issues.
func (o *OperationOutcome) HasErrors() bool {
	for _, issue := range o.Issues {
		if issue.IsError() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error and fatal issues.
func (o *OperationOutcome) ErrorCount() int {
	count := 0
	for _, issue := range o.Issues {
		if issue.IsError() {
			count++
		}
	}
	return count
}

// Errors returns all error and fatal issues.
func (o *OperationOutcome) Errors() []Issue {
	var errs []Issue
	for _, issue := range o.Issues {
		if issue.IsError() {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns all warning issues.
func (o *OperationOutcome) Warnings() []Issue {
	var warnings []Issue
	for _, issue := range o.Issues {
		if issue.IsWarning() {
			warnings = append(warnings, issue)
		}
	}
	return warnings
}
