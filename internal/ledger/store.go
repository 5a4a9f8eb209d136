// Package ledger archives quality reports so past assessments can be
// retrieved by report id after the process that produced them is gone.
package ledger

type Store interface {
	WithTx(fn func(Tx) error) error

	PutReport(rec ReportRecord) error
	GetReport(reportID string) (ReportRecord, bool)
	ListReports(limit int) ([]ReportRecord, error)
}

type Tx interface {
	PutReport(rec ReportRecord) error
	GetReport(reportID string) (ReportRecord, bool)
}

// ReportRecord is the stored form of a report. BodyJSON holds the full
// report as written by the report package.
type ReportRecord struct {
	ReportID      string
	Score         int
	Level         string
	DocumentTitle string
	DocumentURL   string
	RulesHash     string
	BodyJSON      []byte
	CreatedAt     string
}

const defaultListLimit = 50

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
