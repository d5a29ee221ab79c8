// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/fairway/internal/domain/metric"
)

// RoundRow is one row of the per-round statistics feed. A metric missing
// from Stats is absent for that round.
type RoundRow struct {
	CompetitorID int64                 `json:"competitor_id"`
	Name         string                `json:"name,omitempty"`
	EventID      string                `json:"event_id"`
	Round        int                   `json:"round"`
	Stats        map[metric.ID]float64 `json:"stats"`
}

// ApproachRow is one row of the approach-shot feed.
type ApproachRow struct {
	CompetitorID int64                 `json:"competitor_id"`
	Name         string                `json:"name,omitempty"`
	Stats        map[metric.ID]float64 `json:"stats"`
	Shots        map[metric.Bucket]int `json:"shots,omitempty"`
}

// FinishStatus describes how a competitor's tournament ended.
type FinishStatus int

const (
	Finished FinishStatus = iota
	Cut
	Withdrawn
	Disqualified
	DidNotStart
	MadeCutDidNotFinish
)

var statusCodes = map[FinishStatus]string{
	Cut:                 "CUT",
	Withdrawn:           "WD",
	Disqualified:        "DQ",
	DidNotStart:         "DNS",
	MadeCutDidNotFinish: "MDF",
}

var statusByCode = map[string]FinishStatus{
	"CUT": Cut,
	"MC":  Cut,
	"WD":  Withdrawn,
	"DQ":  Disqualified,
	"DNS": DidNotStart,
	"MDF": MadeCutDidNotFinish,
}

func (s FinishStatus) String() string {
	if s == Finished {
		return "finished"
	}
	if code, ok := statusCodes[s]; ok {
		return code
	}
	return "unknown"
}

// ErrInvalidFinish is returned for finish text that is neither a position
// nor a known status code.
var ErrInvalidFinish = errors.New("invalid finish")

// Finish is a realized tournament outcome. Position is only meaningful when
// Status is Finished.
type Finish struct {
	Position int
	Tied     bool
	Status   FinishStatus
}

// ParseFinish parses finish text such as "1", "T5", "=12", "CUT" or "WD".
func ParseFinish(s string) (Finish, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if t == "" {
		return Finish{}, fmt.Errorf("%w: empty", ErrInvalidFinish)
	}
	if st, ok := statusByCode[t]; ok {
		return Finish{Status: st}, nil
	}

	tied := false
	if strings.HasPrefix(t, "T") || strings.HasPrefix(t, "=") {
		tied = true
		t = t[1:]
	}
	pos, err := strconv.Atoi(t)
	if err != nil || pos < 1 {
		return Finish{}, fmt.Errorf("%w: %q", ErrInvalidFinish, s)
	}
	return Finish{Position: pos, Tied: tied, Status: Finished}, nil
}

// Finished reports whether the competitor has a numeric finish position.
func (f Finish) Finished() bool {
	return f.Status == Finished && f.Position > 0
}

func (f Finish) String() string {
	if f.Status != Finished {
		return f.Status.String()
	}
	if f.Tied {
		return "T" + strconv.Itoa(f.Position)
	}
	return strconv.Itoa(f.Position)
}

func (f Finish) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Finish) UnmarshalText(text []byte) error {
	v, err := ParseFinish(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Result is one row of the tournament results feed.
type Result struct {
	CompetitorID int64  `json:"competitor_id"`
	Name         string `json:"name,omitempty"`
	Finish       Finish `json:"finish"`
}
