// Package course defines the course archetypes weight templates are keyed by.
package course

import (
	"errors"
	"fmt"
	"strings"
)

// Archetype classifies what a course rewards.
type Archetype int

const (
	Balanced Archetype = iota
	DistanceDominant
	PrecisionDominant
	ShortGameDominant

	archetypeEnd
)

var ErrUnknownArchetype = errors.New("unknown course archetype")

var archetypeNames = [archetypeEnd]string{
	Balanced:          "balanced",
	DistanceDominant:  "distance_dominant",
	PrecisionDominant: "precision_dominant",
	ShortGameDominant: "short_game_dominant",
}

// Archetypes returns every archetype in declaration order.
func Archetypes() []Archetype {
	return []Archetype{Balanced, DistanceDominant, PrecisionDominant, ShortGameDominant}
}

func (a Archetype) Valid() bool { return a >= Balanced && a < archetypeEnd }

func (a Archetype) String() string {
	if !a.Valid() {
		return fmt.Sprintf("archetype(%d)", int(a))
	}
	return archetypeNames[a]
}

// ParseArchetype accepts the canonical names plus the short forms
// "distance", "precision" and "short_game".
func ParseArchetype(s string) (Archetype, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	n = strings.ReplaceAll(n, " ", "_")
	for a, name := range archetypeNames {
		if n == name || n+"_dominant" == name {
			return Archetype(a), nil
		}
	}
	return Balanced, fmt.Errorf("%w: %q", ErrUnknownArchetype, s)
}

func (a Archetype) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, ErrUnknownArchetype
	}
	return []byte(a.String()), nil
}

func (a *Archetype) UnmarshalText(text []byte) error {
	v, err := ParseArchetype(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
