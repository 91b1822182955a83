package core

import "time"

// Record is one support-log entry. ID and CreatedAt are assigned by storage
// and are never taken from imported data.
type Record struct {
	ID        int64
	CreatedAt time.Time

	ClientRef     string
	PluginName    string
	PluginVersion string
	WPVersion     string
	WCVersion     string

	IssueType     string
	IssueCategory string
	Summary       string

	Description      string
	StepsToReproduce string
	ErrorLogs        string
	Troubleshooting  string
	Resolution       string
	AssignedAgent    string

	TimeSpent int
	Escalated bool
	Recurring bool
	Status    string
}

// textField returns a pointer to the string attribute behind col, or nil when
// col is not a string attribute.
func (r *Record) textField(col Column) *string {
	switch col {
	case ColClientRef:
		return &r.ClientRef
	case ColPluginName:
		return &r.PluginName
	case ColPluginVersion:
		return &r.PluginVersion
	case ColWPVersion:
		return &r.WPVersion
	case ColWCVersion:
		return &r.WCVersion
	case ColIssueType:
		return &r.IssueType
	case ColIssueCategory:
		return &r.IssueCategory
	case ColIssueSummary:
		return &r.Summary
	case ColDescription:
		return &r.Description
	case ColStepsReproduce:
		return &r.StepsToReproduce
	case ColErrorLogs:
		return &r.ErrorLogs
	case ColTroubleshooting:
		return &r.Troubleshooting
	case ColResolution:
		return &r.Resolution
	case ColAssignedAgent:
		return &r.AssignedAgent
	case ColStatus:
		return &r.Status
	}
	return nil
}

// flagField returns a pointer to the boolean attribute behind col, or nil.
func (r *Record) flagField(col Column) *bool {
	switch col {
	case ColEscalated:
		return &r.Escalated
	case ColRecurring:
		return &r.Recurring
	}
	return nil
}

// Text returns the string attribute for col, or "" for non-string columns.
func (r *Record) Text(col Column) string {
	if p := r.textField(col); p != nil {
		return *p
	}
	return ""
}

// Flag returns the boolean attribute for col.
func (r *Record) Flag(col Column) bool {
	if p := r.flagField(col); p != nil {
		return *p
	}
	return false
}

// KeyValue returns the value of the variant's uniqueness key, or "" when the
// variant has none.
func (r *Record) KeyValue(s *Schema) string {
	if s.UniqueKey == "" {
		return ""
	}
	return r.Text(s.UniqueKey)
}

// AttributeColumns lists every stored attribute in table order, excluding the
// storage-assigned id and creation time.
var AttributeColumns = []Column{
	ColClientRef, ColPluginName, ColPluginVersion, ColWPVersion, ColWCVersion,
	ColIssueType, ColIssueCategory, ColIssueSummary, ColDescription,
	ColStepsReproduce, ColErrorLogs, ColTroubleshooting, ColResolution,
	ColAssignedAgent, ColTimeSpent, ColEscalated, ColRecurring, ColStatus,
}

// Values returns the attribute values in AttributeColumns order, ready to be
// bound as SQL arguments.
func (r *Record) Values() []any {
	vals := make([]any, len(AttributeColumns))
	for i, col := range AttributeColumns {
		switch col {
		case ColTimeSpent:
			vals[i] = r.TimeSpent
		case ColEscalated, ColRecurring:
			vals[i] = r.Flag(col)
		default:
			vals[i] = r.Text(col)
		}
	}
	return vals
}

// ScanTargets returns pointers to the attributes in AttributeColumns order.
func (r *Record) ScanTargets() []any {
	dest := make([]any, len(AttributeColumns))
	for i, col := range AttributeColumns {
		switch col {
		case ColTimeSpent:
			dest[i] = &r.TimeSpent
		case ColEscalated, ColRecurring:
			dest[i] = r.flagField(col)
		default:
			dest[i] = r.textField(col)
		}
	}
	return dest
}
