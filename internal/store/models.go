package store

import "time"

// DefaultProjectID is the sentinel partition assigned to records loaded
// from snapshots that predate multi-project support.
const DefaultProjectID = "default-project"

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProcurementRecord tracks one purchase-request milestone. All dates are
// YYYY-MM-DD strings; empty means the event has not occurred. Variance,
// severity and the like are derived on read and never stored here.
type ProcurementRecord struct {
	ID                    string `json:"id"`
	ProjectID             string `json:"projectId"`
	EngineeringItem       string `json:"engineeringItem"`
	ScheduledRequestDate  string `json:"scheduledRequestDate"`
	ActualRequestDate     string `json:"actualRequestDate"`
	SiteOrganizer         string `json:"siteOrganizer"`
	ProcurementOrganizer  string `json:"procurementOrganizer"`
	ReturnDate            string `json:"returnDate"`
	ReturnReason          string `json:"returnReason"`
	ResubmissionDate      string `json:"resubmissionDate"`
	ContractorConfirmDate string `json:"contractorConfirmDate"`
	ContractorName        string `json:"contractorName"`
	Remarks               string `json:"remarks"`
}

// OperationRecord tracks one stage-range item on the operations control
// table. Category is one of OperationStages or free text; unrecognized
// categories group under "uncategorized" at render time.
type OperationRecord struct {
	ID                 string `json:"id"`
	ProjectID          string `json:"projectId"`
	Category           string `json:"category"`
	Item               string `json:"item"`
	ScheduledStartDate string `json:"scheduledStartDate"`
	ScheduledEndDate   string `json:"scheduledEndDate"`
	ActualStartDate    string `json:"actualStartDate"`
	ActualEndDate      string `json:"actualEndDate"`
	Remarks            string `json:"remarks"`
}

// OperationStages is the fixed lifecycle stage order, used both for
// grouping on the operations table and for terminal-stage detection.
var OperationStages = []string{
	"設計階段",
	"假設工程",
	"地工工程",
	"結構工程",
	"外牆工程",
	"內裝工程",
	"設備工程",
	"使用執照",
	"交屋驗收",
}

// TerminalStage is the handover-inspection stage whose scheduled/actual end
// anchors whole-project progress.
const TerminalStage = "交屋驗收"

// IsKnownStage reports whether category is one of the fixed stages.
func IsKnownStage(category string) bool {
	for _, stage := range OperationStages {
		if stage == category {
			return true
		}
	}
	return false
}
