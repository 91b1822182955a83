package core

// Variant keys accepted by SCHEMA_VARIANT.
const (
	VariantLegacy  = "legacy"
	VariantRevised = "revised"
)

var (
	legacyStatuses  = []string{"Open", "Resolved", "Escalated"}
	revisedStatuses = []string{"Open", "Resolved", "Escalated", "Closed"}
	issueTypes      = []string{"Technical", "Pre-sale", "Account/Billing"}
	yesNo           = []string{FlagYes, FlagNo}
)

// LegacySchema is the original field set: client reference as the unique key,
// flags stored as booleans.
func LegacySchema() *Schema {
	return &Schema{
		Key:          VariantLegacy,
		Label:        "Legacy support log",
		UniqueKey:    ColClientRef,
		CreatedLabel: "Date Created",
		CreatedKey:   "date_created",
		Flags:        FlagBool,
		Fields: []FieldSpec{
			{Name: "Client Ref", Key: "client_ref", Column: ColClientRef, Type: FieldText, Required: true, MaxLen: 255},
			{Name: "Plugin Name", Key: "plugin_name", Column: ColPluginName, Type: FieldText, Required: true, MaxLen: 255},
			{Name: "Plugin Version", Key: "plugin_version", Column: ColPluginVersion, Type: FieldText, MaxLen: 100},
			{Name: "WordPress Version", Key: "wp_version", Column: ColWPVersion, Type: FieldText, MaxLen: 100},
			{Name: "WooCommerce Version", Key: "wc_version", Column: ColWCVersion, Type: FieldText, MaxLen: 100},
			{Name: "Issue Category", Key: "issue_category", Column: ColIssueCategory, Type: FieldText, Required: true, MaxLen: 255},
			{Name: "Issue Summary", Key: "issue_summary", Column: ColIssueSummary, Type: FieldText, Required: true, MinLen: 3, MaxLen: 500},
			{Name: "Detailed Description", Key: "detailed_description", Column: ColDescription, Type: FieldText},
			{Name: "Steps to Reproduce", Key: "steps_reproduce", Column: ColStepsReproduce, Type: FieldText},
			{Name: "Errors/Logs", Key: "errors_logs", Column: ColErrorLogs, Type: FieldText},
			{Name: "Troubleshooting Steps", Key: "troubleshooting_steps", Column: ColTroubleshooting, Type: FieldText},
			{Name: "Resolution", Key: "resolution", Column: ColResolution, Type: FieldText},
			{Name: "Time Spent", Key: "time_spent", Column: ColTimeSpent, Type: FieldInt},
			{Name: "Escalated", Key: "escalated", Column: ColEscalated, Type: FieldFlag},
			{Name: "Status", Key: "status", Column: ColStatus, Type: FieldEnum, Required: true, EnumValues: legacyStatuses, Default: "Open"},
			{Name: "Recurring", Key: "recurring", Column: ColRecurring, Type: FieldFlag},
		},
	}
}

// RevisedSchema is the later field set: no uniqueness key, an issue type
// enumeration, an assigned agent and Yes/No flags.
func RevisedSchema() *Schema {
	return &Schema{
		Key:          VariantRevised,
		Label:        "Revised support log",
		CreatedLabel: "Date Submitted",
		CreatedKey:   "date_submitted",
		Flags:        FlagYesNo,
		Fields: []FieldSpec{
			{Name: "Issue Type", Key: "issue_type", Column: ColIssueType, Type: FieldEnum, Required: true, EnumValues: issueTypes},
			{Name: "Plugin Name", Key: "plugin_name", Column: ColPluginName, Type: FieldText, Required: true, MaxLen: 255},
			{Name: "Plugin Version", Key: "plugin_version", Column: ColPluginVersion, Type: FieldText, MaxLen: 100},
			{Name: "WordPress Version", Key: "wp_version", Column: ColWPVersion, Type: FieldText, MaxLen: 100},
			{Name: "WooCommerce Version", Key: "wc_version", Column: ColWCVersion, Type: FieldText, MaxLen: 100},
			{Name: "Concern Area", Key: "concern_area", Column: ColIssueCategory, Type: FieldText, Required: true, MaxLen: 255},
			{Name: "Query Title", Key: "query_title", Column: ColIssueSummary, Type: FieldText, Required: true, MinLen: 3, MaxLen: 500},
			{Name: "Description", Key: "description", Column: ColDescription, Type: FieldText},
			{Name: "Steps to Reproduce", Key: "steps_reproduce", Column: ColStepsReproduce, Type: FieldText},
			{Name: "Error Logs", Key: "error_logs", Column: ColErrorLogs, Type: FieldText},
			{Name: "Assigned Agent", Key: "assigned_agent", Column: ColAssignedAgent, Type: FieldText, MaxLen: 255},
			{Name: "Resolution Notes", Key: "resolution_notes", Column: ColResolution, Type: FieldText},
			{Name: "Time Spent", Key: "time_spent", Column: ColTimeSpent, Type: FieldInt},
			{Name: "Escalated to Dev", Key: "escalated_to_dev", Column: ColEscalated, Type: FieldFlag, EnumValues: yesNo},
			{Name: "Recurring Issue", Key: "recurring_issue", Column: ColRecurring, Type: FieldFlag, EnumValues: yesNo},
			{Name: "Status", Key: "status", Column: ColStatus, Type: FieldEnum, Required: true, EnumValues: revisedStatuses, Default: "Open"},
		},
	}
}

func init() {
	Register(LegacySchema())
	Register(RevisedSchema())
}
