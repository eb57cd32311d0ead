package message

import "encoding/json"

// Envelope is the versioned wire frame around every operation published to
// the monitor topics. Caller is the identity the operation is authorized as.
type Envelope struct {
	Type    string          `json:"type"`
	Version int             `json:"version"`
	ID      string          `json:"id,omitempty"`
	TS      string          `json:"ts,omitempty"`
	Caller  string          `json:"caller,omitempty"`
	Data    json.RawMessage `json:"data"`
}

func Open(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func New(msgType string, version int, id, ts, caller string, data json.RawMessage) *Envelope {
	return &Envelope{
		Type:    msgType,
		Version: version,
		ID:      id,
		TS:      ts,
		Caller:  caller,
		Data:    data,
	}
}
