package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditEntry records the terminal state of one generation request.
type AuditEntry struct {
	RequestID        string          `json:"request_id"`
	Day              string          `json:"day"`
	RequestType      string          `json:"request_type"`
	Destination      string          `json:"destination"`
	Model            string          `json:"model,omitempty"`
	Provider         string          `json:"provider,omitempty"`
	State            string          `json:"state"`
	ErrorKind        string          `json:"error_kind,omitempty"`
	Prompt           string          `json:"prompt,omitempty"`
	PromptTokens     int64           `json:"prompt_tokens"`
	CompletionTokens int64           `json:"completion_tokens"`
	Cost             decimal.Decimal `json:"cost"`
	Attempts         int             `json:"attempts"`
	LatencyMs        int64           `json:"latency_ms"`
	CreatedAt        time.Time       `json:"created_at"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled        bool   `yaml:"enabled"`
	DBPath         string `yaml:"db_path"`
	RetentionDays  int    `yaml:"retention_days"`
	IncludePrompts bool   `yaml:"include_prompts"`
	MaxPromptSize  int    `yaml:"max_prompt_size"` // bytes
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	Day         string
	State       string
	RequestType string
	RequestID   string
	Since       time.Time
	Limit       int
}

// AuditStat holds aggregate audit counts for a day/state combination.
type AuditStat struct {
	Day   string
	State string
	Count int
}
