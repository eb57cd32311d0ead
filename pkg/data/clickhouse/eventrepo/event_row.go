package eventrepo

import "time"

// EventRow is the ClickHouse representation of a captured event. Timestamps
// are converted from the wire's epoch milliseconds before rows reach this
// package; callers build rows, this package only moves them.
type EventRow struct {
	ID              uint64
	SourceApp       string
	SourceChain     string
	Timestamp       time.Time
	EventType       string
	Data            string
	TransactionHash string
	BlockHeight     uint64
	Severity        string
	ContentHash     string
}
