package messages

// Alert is published to the alerts topic for every admitted event at or
// above the configured severity floor.
type Alert struct {
	EventID         uint64 `json:"event_id"`
	SourceApp       string `json:"source_app"`
	SourceChain     string `json:"source_chain"`
	EventType       string `json:"event_type"`
	Severity        string `json:"severity"`
	Timestamp       uint64 `json:"timestamp"`
	TransactionHash string `json:"transaction_hash,omitempty"`
}
