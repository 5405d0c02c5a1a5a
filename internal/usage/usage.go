// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package usage keeps a running count of tokens spent, in total and for the
// current day.
//
// # Key Types
//
//   - Ledger: The persisted counters, safe for concurrent use
//   - Snapshot: A copy of the counters
//
// # Usage
//
//	ledger, err := usage.Open(cfg.Storage.UsagePath, nil)
//	total, today := ledger.Add(reply.TotalTokens)
//	fmt.Println(usage.FormatNumber(today))
package usage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/rigchat/internal/util"
)

const dateLayout = "2006-01-02"

// Snapshot is a point-in-time copy of the ledger.
type Snapshot struct {
	Total int64  `json:"total"`
	Today int64  `json:"today"`
	Date  string `json:"date"`
}

// Ledger persists token counters to a small JSON file.
type Ledger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
	data Snapshot
}

// Open loads the ledger at path. A missing file starts at zero. A file
// holding fractional numbers (an older format that tracked cost) or that
// cannot be parsed is reset to zero and rewritten. now may be nil.
func Open(path string, now func() time.Time) (*Ledger, error) {
	if now == nil {
		now = time.Now
	}
	l := &Ledger{path: path, now: now}
	l.data.Date = l.today()

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read usage file: %w", err)
	}

	snap, err := decode(raw)
	if err != nil {
		slog.Warn("resetting token stats", "path", path, "reason", err)
		return l, l.save()
	}
	l.data = snap
	if l.data.Date == "" {
		l.data.Date = l.today()
	}
	if err := l.rollover(); err != nil {
		return nil, err
	}
	return l, nil
}

var errLegacyCurrency = errors.New("fractional values from an older cost format")

func decode(raw []byte) (Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return Snapshot{}, fmt.Errorf("corrupt file: %w", err)
	}

	total, err := integer(doc["total"])
	if err != nil {
		return Snapshot{}, err
	}
	today, err := integer(doc["today"])
	if err != nil {
		return Snapshot{}, err
	}
	date, _ := doc["date"].(string)
	return Snapshot{Total: total, Today: today, Date: date}, nil
}

func integer(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("corrupt file: counter is %T", v)
	}
	if strings.ContainsAny(n.String(), ".eE") {
		return 0, errLegacyCurrency
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("corrupt file: %w", err)
	}
	return i, nil
}

func (l *Ledger) today() string {
	return l.now().Format(dateLayout)
}

// rollover resets today's counter on a new day. Caller holds mu or owns l.
func (l *Ledger) rollover() error {
	if d := l.today(); d != l.data.Date {
		l.data.Today = 0
		l.data.Date = d
		return l.save()
	}
	return nil
}

func (l *Ledger) save() error {
	if err := util.WriteJSONAtomic(l.path, l.data, 0644); err != nil {
		return fmt.Errorf("save token stats: %w", err)
	}
	return nil
}

// Add records n tokens and returns the new totals. Negative counts are
// ignored. A failed save is logged; the in-memory counters still advance.
func (l *Ledger) Add(n int64) (total, today int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rollover(); err != nil {
		slog.Warn("token stats rollover not saved", "error", err)
	}
	if n > 0 {
		l.data.Total += n
		l.data.Today += n
		if err := l.save(); err != nil {
			slog.Warn("token stats not saved", "error", err)
		}
	}
	return l.data.Total, l.data.Today
}

// Snapshot returns the current counters after a rollover check.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.rollover(); err != nil {
		slog.Warn("token stats rollover not saved", "error", err)
	}
	return l.data
}

// Reset zeroes both counters and saves.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = Snapshot{Date: l.today()}
	return l.save()
}

// FormatNumber renders a token count the way the status line shows it:
// 1.2M, 3.4k or the plain number.
func FormatNumber(n int64) string {
	return util.FormatCount(n)
}
