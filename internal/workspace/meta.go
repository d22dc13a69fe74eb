package workspace

import "encoding/json"

// Workspace statuses. Status is user-settable and otherwise opaque;
// these are the values the UI conventionally uses.
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
)

// Meta is the bookkeeping record stored in a workspace's meta.json.
// Timestamps are RFC 3339 UTC strings.
type Meta struct {
	TitleOriginal string `json:"title_original"`
	Slug          string `json:"slug"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	RefsCount     int    `json:"refs_count"`
	Status        string `json:"status"`
}

// decodeMeta parses a meta.json payload with defined defaults: missing
// fields keep their zero value, unknown fields are ignored, and an
// empty status falls back to "processing". Only malformed JSON errors.
func decodeMeta(data []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, err
	}
	if m.Status == "" {
		m.Status = StatusProcessing
	}
	return m, nil
}

// encodeMeta serializes metadata as indented, human-readable JSON.
func encodeMeta(m Meta) []byte {
	data, _ := json.MarshalIndent(m, "", "  ")
	return append(data, '\n')
}
