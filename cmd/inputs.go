package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/okian/fairway/internal/adapters/feed"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/templates"
	"github.com/spf13/cobra"
)

// feedFlags name the CSV inputs of a command.
type feedFlags struct {
	rounds   string
	approach string
	results  string
	eventID  string
	comma    string
}

func (f *feedFlags) register(cmd *cobra.Command, results bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.rounds, "rounds", "", "per-round statistics CSV")
	fl.StringVar(&f.approach, "approach", "", "approach statistics CSV")
	fl.StringVar(&f.eventID, "event", "", "event id for round rows without an event column")
	fl.StringVar(&f.comma, "comma", ",", "CSV field separator")
	if results {
		fl.StringVar(&f.results, "results", "", "tournament results CSV")
	}
}

func (f *feedFlags) options() ([]feed.Option, error) {
	r, size := utf8.DecodeRuneInString(f.comma)
	if size == 0 || size != len(f.comma) {
		return nil, fmt.Errorf("--comma must be a single character, got %q", f.comma)
	}
	return []feed.Option{feed.WithComma(r), feed.WithEventID(f.eventID)}, nil
}

// stats reads the rounds and approach feeds. At least one must be given.
func (f *feedFlags) stats(ctx context.Context) ([]model.RoundRow, []model.ApproachRow, []feed.Report, error) {
	if f.rounds == "" && f.approach == "" {
		return nil, nil, nil, fmt.Errorf("%w: give --rounds, --approach or both", feed.ErrMissingInput)
	}
	opts, err := f.options()
	if err != nil {
		return nil, nil, nil, err
	}
	var (
		rounds   []model.RoundRow
		approach []model.ApproachRow
		reports  []feed.Report
	)
	if f.rounds != "" {
		err := withFile(f.rounds, func(r io.Reader) error {
			rows, rep, err := feed.ReadRounds(ctx, r, opts...)
			rounds, reports = rows, append(reports, rep)
			return err
		})
		if err != nil {
			return nil, nil, nil, err
		}
	}
	if f.approach != "" {
		err := withFile(f.approach, func(r io.Reader) error {
			rows, rep, err := feed.ReadApproach(ctx, r, opts...)
			approach, reports = rows, append(reports, rep)
			return err
		})
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return rounds, approach, reports, nil
}

func (f *feedFlags) readResults(ctx context.Context) ([]model.Result, error) {
	if f.results == "" {
		return nil, fmt.Errorf("%w: --results is required", feed.ErrMissingInput)
	}
	opts, err := f.options()
	if err != nil {
		return nil, err
	}
	var out []model.Result
	err = withFile(f.results, func(r io.Reader) error {
		rows, _, err := feed.ReadResults(ctx, r, opts...)
		out = rows
		return err
	})
	return out, err
}

func withFile(path string, fn func(io.Reader) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := fn(file); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// templateFlags select a weight template.
type templateFlags struct {
	id        string
	version   int
	venue     string
	archetype string
}

func (t *templateFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&t.id, "template", "", "template id")
	fl.IntVar(&t.version, "template-version", 0, "template version (default latest)")
	fl.StringVar(&t.venue, "venue", "", "venue name; picks the venue template when one exists")
	fl.StringVar(&t.archetype, "archetype", "", "course archetype to fall back on")
}

func (t *templateFlags) query() templates.Query {
	return templates.Query{TemplateID: t.id, Version: t.version, Venue: t.venue, Archetype: t.archetype}
}

// event returns --event, or the event of the round rows when not given.
func (f *feedFlags) event(rounds []model.RoundRow) string {
	if f.eventID != "" || len(rounds) == 0 {
		return f.eventID
	}
	return rounds[0].EventID
}
