package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GenerationResult is returned to the caller after a successful generation.
type GenerationResult struct {
	RequestID   string          `json:"request_id"`
	Content     string          `json:"content"`
	Model       string          `json:"model"`
	Provider    string          `json:"provider"`
	RequestType string          `json:"request_type"`
	Usage       TokenUsage      `json:"usage"`
	Cost        decimal.Decimal `json:"cost"`
	Day         string          `json:"day"`
	Attempts    int             `json:"attempts"`
	Latency     time.Duration   `json:"latency_ns"`
}
