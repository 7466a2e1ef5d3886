package timenorm

// Table is one parsed tabular input: column names plus rows of cell values.
// When the source file had no header row, Headerless is true and Columns
// holds synthetic positional names assigned by the reader.
type Table struct {
	Columns    []string
	Rows       [][]string
	Headerless bool
}

// ColumnRole is the semantic meaning a source column can serve.
type ColumnRole string

const (
	RoleContractor        ColumnRole = "contractor"
	RoleJobTitle          ColumnRole = "role"
	RolePersonIdentity    ColumnRole = "person_identity"
	RolePersonSecondaryID ColumnRole = "person_secondary_id"
	RoleStartTime         ColumnRole = "start_time"
	RoleEndTime           ColumnRole = "end_time"
	RoleArea              ColumnRole = "area"
	RoleDuration          ColumnRole = "duration"
)

// NormalizedRecord is one row in the canonical shape every input variant is
// normalized into. Duration is in minutes and may be NaN when the source
// carried an unparseable value. Period is always populated; rows whose
// timestamp could not be read carry PeriodUnknown.
type NormalizedRecord struct {
	Contractor string  `json:"contractor"`
	Role       string  `json:"role"`
	PersonID   string  `json:"person_identifier"`
	Area       string  `json:"area"`
	Duration   float64 `json:"duration_minutes"`
	Period     string  `json:"period"`
}

// AggregatedRecord is one row of the canonical output table: the number of
// distinct workers seen for a (Period, Role, Contractor) group.
type AggregatedRecord struct {
	Period      string `json:"period"`
	Role        string `json:"role"`
	Contractor  string `json:"contractor"`
	WorkerCount int    `json:"worker_count"`
}

// Dataset couples the two output shapes the dashboard layer consumes.
// Synthetic marks the demo dataset emitted on total pipeline failure.
type Dataset struct {
	Normalized []NormalizedRecord `json:"normalized"`
	Aggregated []AggregatedRecord `json:"aggregated"`
	Synthetic  bool               `json:"synthetic"`
}

// PeriodUnknown is the fallback period label for rows whose timestamp could
// not be extracted by any strategy.
const PeriodUnknown = "Unknown Week"

// Default values assigned when a required column cannot be resolved.
const (
	DefaultContractor      = "Unknown Contractor"
	DefaultRole            = "Worker"
	DefaultArea            = "Site"
	DefaultPersonIdentity  = "Unknown"
	DefaultDurationMinutes = 60.0
)
