package limiter

import "time"

// Decision is the outcome of one admission check. It is ephemeral; only the
// audit record emitted alongside it is durable.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Algorithm string `json:"algorithm"`
}

// AuditRecord captures one decision for the log sink, append-only.
type AuditRecord struct {
	ID        string    `json:"id"`
	APIKey    string    `json:"api_key"`
	Endpoint  string    `json:"endpoint"`
	Algorithm string    `json:"algorithm"`
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining_quota"`
	Timestamp time.Time `json:"timestamp"`
}
