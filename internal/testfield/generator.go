// Package testfield generates reproducible synthetic tournament fields: round
// and approach feeds plus realized results driven by a hidden skill level.
package testfield

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/model"
)

// Field is one generated event.
type Field struct {
	EventID  string
	Rounds   []model.RoundRow
	Approach []model.ApproachRow
	Results  []model.Result
	Skill    map[int64]float64 // hidden overall skill per competitor
}

// Option configures Generate.
type Option func(*settings)

type settings struct {
	competitors int
	rounds      int
	seed        int64
	noise       float64
	missing     float64
	cutShare    float64
	eventID     string
}

const (
	DefaultCompetitors = 72
	DefaultRounds      = 4
	DefaultNoise       = 0.6
	DefaultMissingRate = 0.03
	DefaultCutShare    = 0.1
	baseCompetitorID   = 10000
)

// WithCompetitors sets the field size.
func WithCompetitors(n int) Option {
	return func(s *settings) { s.competitors = n }
}

// WithRounds sets the rounds each competitor plays.
func WithRounds(n int) Option {
	return func(s *settings) { s.rounds = n }
}

// WithSeed sets the seed the whole field derives from.
func WithSeed(seed int64) Option {
	return func(s *settings) { s.seed = seed }
}

// WithNoise sets how far realized finishes stray from hidden skill.
func WithNoise(sd float64) Option { return func(s *settings) { s.noise = sd } }

// WithMissingRate sets the probability that any one stat cell is absent.
func WithMissingRate(p float64) Option { return func(s *settings) { s.missing = p } }

// WithCutShare sets the share of the field, worst first, that misses the cut.
func WithCutShare(p float64) Option { return func(s *settings) { s.cutShare = p } }

func WithEventID(id string) Option { return func(s *settings) { s.eventID = id } }

type profile struct {
	id       int64
	name     string
	overall  float64
	drive    float64
	accuracy float64
	iron     float64
	short    float64
	putt     float64
}

// Generate builds a field. The same options always produce the same field.
func Generate(opts ...Option) Field {
	s := settings{
		competitors: DefaultCompetitors,
		rounds:      DefaultRounds,
		seed:        1,
		noise:       DefaultNoise,
		missing:     DefaultMissingRate,
		cutShare:    DefaultCutShare,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.eventID == "" {
		s.eventID = fmt.Sprintf("synthetic-%d", s.seed)
	}
	rng := rand.New(rand.NewSource(s.seed))

	players := make([]profile, s.competitors)
	for i := range players {
		overall := rng.NormFloat64()
		players[i] = profile{
			id:       int64(baseCompetitorID + i),
			name:     fmt.Sprintf("Player %03d", i+1),
			overall:  overall,
			drive:    0.6*overall + 0.8*rng.NormFloat64(),
			accuracy: 0.4*overall + 0.9*rng.NormFloat64(),
			iron:     0.8*overall + 0.6*rng.NormFloat64(),
			short:    0.5*overall + 0.8*rng.NormFloat64(),
			putt:     0.5*overall + 0.9*rng.NormFloat64(),
		}
	}

	f := Field{EventID: s.eventID, Skill: make(map[int64]float64, len(players))}
	for _, p := range players {
		f.Skill[p.id] = p.overall
		for r := 1; r <= s.rounds; r++ {
			f.Rounds = append(f.Rounds, roundRow(rng, s, p, r))
		}
		f.Approach = append(f.Approach, approachRow(rng, s, p))
	}
	f.Results = results(rng, s, players)
	return f
}

func roundRow(rng *rand.Rand, s settings, p profile, round int) model.RoundRow {
	n := func(sd float64) float64 { return sd * rng.NormFloat64() }
	ott := 0.30*p.drive + 0.15*p.accuracy + n(0.5)
	app := 0.45*p.iron + n(0.7)
	arg := 0.25*p.short + n(0.4)
	putt := 0.35*p.putt + n(0.8)
	total := ott + app + arg + putt

	stats := map[metric.ID]float64{
		metric.DrivingDistance:    295 + 9*p.drive + n(6),
		metric.DrivingAccuracy:    clamp(0.60+0.06*p.accuracy-0.02*p.drive+n(0.08), 0, 1),
		metric.SGOffTee:           ott,
		metric.SGApproach:         app,
		metric.SGAroundGreen:      arg,
		metric.SGPutting:          putt,
		metric.SGTeeToGreen:       ott + app + arg,
		metric.SGTotal:            total,
		metric.GreensInRegulation: clamp(0.66+0.05*p.iron+n(0.07), 0, 1),
		metric.Scrambling:         clamp(0.58+0.06*p.short+n(0.1), 0, 1),
		metric.Proximity:          math.Max(15, 36-3*p.iron+n(4)),
		metric.ScoringAverage:     71 - total + n(0.5),
		metric.BirdiesPerRound:    math.Max(0, 3.8+0.6*total+n(1)),
		metric.BogeysPerRound:     math.Max(0, 2.6-0.4*total+n(0.9)),
		metric.PuttsPerRound:      math.Max(22, 29-0.7*p.putt+n(1.2)),
	}
	drop(rng, s, stats)
	return model.RoundRow{CompetitorID: p.id, Name: p.name, EventID: s.eventID, Round: round, Stats: stats}
}

func approachRow(rng *rand.Rand, s settings, p profile) model.ApproachRow {
	row := model.ApproachRow{
		CompetitorID: p.id,
		Name:         p.name,
		Stats:        make(map[metric.ID]float64),
		Shots:        make(map[metric.Bucket]int),
	}
	for i, b := range metric.ApproachBuckets() {
		n := func(sd float64) float64 { return sd * rng.NormFloat64() }
		dist := float64(i + 1)
		row.Shots[b] = 8 + rng.Intn(70)
		row.Stats[metric.Approach(b, metric.FieldGIR)] = clamp(0.85-0.08*dist+0.05*p.iron+n(0.05), 0, 1)
		row.Stats[metric.Approach(b, metric.FieldGoodShot)] = clamp(0.25+0.05*p.iron+n(0.05), 0, 1)
		row.Stats[metric.Approach(b, metric.FieldPoorAvoid)] = clamp(0.85+0.03*p.iron+n(0.04), 0, 1)
		row.Stats[metric.Approach(b, metric.FieldProximity)] = math.Max(5, 12+6*dist-2*p.iron+n(3))
		row.Stats[metric.Approach(b, metric.FieldSGPerShot)] = 0.04*p.iron + n(0.05)
	}
	drop(rng, s, row.Stats)
	return row
}

// drop removes cells at the missing rate, in metric order so generation
// stays deterministic.
func drop(rng *rand.Rand, s settings, stats map[metric.ID]float64) {
	if s.missing <= 0 {
		return
	}
	ids := make([]metric.ID, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if rng.Float64() < s.missing {
			delete(stats, id)
		}
	}
}

func results(rng *rand.Rand, s settings, players []profile) []model.Result {
	type perf struct {
		p     profile
		value float64
	}
	field := make([]perf, len(players))
	for i, p := range players {
		field[i] = perf{p: p, value: p.overall + s.noise*rng.NormFloat64()}
	}
	sort.SliceStable(field, func(i, j int) bool { return field[i].value > field[j].value })

	cut := int(math.Round(float64(len(field)) * s.cutShare))
	out := make([]model.Result, 0, len(field))
	pos := 0
	for i, f := range field {
		r := model.Result{CompetitorID: f.p.id, Name: f.p.name}
		switch {
		case i >= len(field)-cut:
			r.Finish = model.Finish{Status: model.Cut}
		case rng.Float64() < 0.01:
			r.Finish = model.Finish{Status: model.Withdrawn}
		default:
			pos++
			r.Finish = model.Finish{Position: pos, Status: model.Finished}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompetitorID < out[j].CompetitorID })
	return out
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
