// Package smoke drives a running fairway server with synthetic fields: it
// ranks each field, replays the request to check idempotency, reads the
// stored ranking back and validates it against the field's results.
package smoke

import (
	"time"

	"github.com/okian/fairway/internal/domain/templates"
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL     string          // Base URL of the service
	Fields      int             // Number of synthetic fields to submit
	Competitors int             // Competitors per field
	Seed        int64           // Seed of the first field; field i uses Seed+i
	TopN        int             // Entries to read back per ranking
	Workers     int             // Concurrent submitters
	Timeout     time.Duration   // HTTP request timeout
	Template    templates.Query // Template every ranking asks for
}

// Stats holds smoke run statistics.
type Stats struct {
	FieldsGenerated int
	RankingsCreated int
	Duplicates      int // replays rejected with 409
	Failed          int
	Validations     int
	MeanSpearman    float64 // over validations with a defined correlation
	StartTime       time.Time
	Duration        time.Duration
}
