// Package outbox journals every order, transfer and withdrawal the agent
// submits, one JSON object per line. The journal is the durable audit
// trail and backs a dedupe window that stops a crashed-and-restarted
// cycle from resubmitting the same order.
package outbox

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry kinds.
const (
	KindOrder      = "order"
	KindTransfer   = "transfer"
	KindWithdrawal = "withdrawal"
	KindSkip       = "skip"
)

// Record is one journaled action or skip.
type Record struct {
	Kind           string    `json:"kind"`
	Account        string    `json:"account"` // exchange id
	Symbol         string    `json:"symbol,omitempty"`
	Asset          string    `json:"asset,omitempty"`
	Side           string    `json:"side,omitempty"`
	Amount         float64   `json:"amount,omitempty"`
	Address        string    `json:"address,omitempty"`
	Network        string    `json:"network,omitempty"`
	Reason         string    `json:"reason"`
	ReceiptID      string    `json:"receipt_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Outbox appends records to a jsonl file.
type Outbox struct {
	path         string
	dedupeWindow time.Duration
}

// New creates the journal, making the parent directory as needed.
func New(path string, dedupeWindow time.Duration) (*Outbox, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Outbox{path: path, dedupeWindow: dedupeWindow}, nil
}

// Append writes one record, stamping the time if unset.
func (o *Outbox) Append(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}

// HasRecent reports whether an action with the same idempotency key was
// journaled inside the dedupe window.
func (o *Outbox) HasRecent(idempotencyKey string) (bool, error) {
	if idempotencyKey == "" {
		return false, nil
	}
	data, err := os.ReadFile(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	cutoff := time.Now().UTC().Add(-o.dedupeWindow)
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.Kind == KindSkip || rec.Timestamp.Before(cutoff) {
			continue
		}
		if rec.IdempotencyKey == idempotencyKey {
			return true, nil
		}
	}
	return false, nil
}
