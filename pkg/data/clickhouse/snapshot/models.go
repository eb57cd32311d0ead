package snapshot

// Snapshot is a periodic capture of the monitor's in-memory state, used to
// recover the service after a restart without replaying the whole topic.
// State carries the full serialized service state as JSON; the remaining
// fields are denormalized for cheap inspection queries. Timestamp tracks the
// last time the snapshot was written.
type Snapshot struct {
	CapturedTotal uint64 `json:"captured_total"`
	EventCount    uint64 `json:"event_count"`
	MerkleRoot    string `json:"merkle_root"`
	NextEventID   uint64 `json:"next_event_id"`
	CurrentBlock  uint64 `json:"current_block"`
	Paused        bool   `json:"paused"`
	State         string `json:"state"`
	Timestamp     int64  `json:"timestamp"`
}
