package metric

import (
	"fmt"
	"strings"
	"unicode"
)

// Strategy names the resolution step that matched a metric name.
type Strategy int

const (
	// StrategyCanonical matched the canonical name exactly.
	StrategyCanonical Strategy = iota + 1
	// StrategyAlias matched an entry of the alias table exactly.
	StrategyAlias
	// StrategyNormalized matched after folding case, whitespace and
	// punctuation.
	StrategyNormalized
)

func (s Strategy) String() string {
	switch s {
	case StrategyCanonical:
		return "canonical"
	case StrategyAlias:
		return "alias"
	case StrategyNormalized:
		return "normalized"
	default:
		return "none"
	}
}

var (
	byCanonical  map[string]ID
	byAlias      map[string]ID
	byNormalized map[string]ID

	bucketByNormalized map[string]Bucket
)

// shot count column suffixes, longest first
var shotSuffixes = []string{"_shot_count", "_shots", "_count"}

func buildIndex() {
	byCanonical = make(map[string]ID, Count)
	byAlias = make(map[string]ID)
	byNormalized = make(map[string]ID)

	addNormalized := func(s string, id ID) {
		n := Normalize(s)
		if prev, ok := byNormalized[n]; ok && prev != id {
			panic(fmt.Sprintf("metric: %q normalizes to %q for both %s and %s", s, n, prev, id))
		}
		byNormalized[n] = id
	}

	for id, def := range definitions {
		byCanonical[def.name] = id
		addNormalized(def.name, id)
		for _, a := range def.aliases {
			byAlias[a] = id
			addNormalized(a, id)
		}
	}

	bucketByNormalized = make(map[string]Bucket)
	for _, b := range ApproachBuckets() {
		bd := buckets[b]
		for _, s := range append([]string{bd.name, bd.label}, bd.aliases...) {
			n := Normalize(s)
			if prev, ok := bucketByNormalized[n]; ok && prev != b {
				panic(fmt.Sprintf("metric: bucket alias %q is ambiguous", s))
			}
			bucketByNormalized[n] = b
		}
	}
}

// Normalize folds a metric name: lower case, every run of non-alphanumeric
// characters becomes a single underscore, leading and trailing underscores
// are dropped.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pending = true
	}
	return b.String()
}

// Resolve maps a metric name to its ID. The steps are tried in order:
// canonical name, alias table, normalized form. No partial matching is
// done; unknown names return ErrUnknownMetric.
func Resolve(name string) (ID, Strategy, error) {
	if id, ok := byCanonical[name]; ok {
		return id, StrategyCanonical, nil
	}
	if id, ok := byAlias[name]; ok {
		return id, StrategyAlias, nil
	}
	if n := Normalize(name); n != "" {
		if id, ok := byNormalized[n]; ok {
			return id, StrategyNormalized, nil
		}
	}
	return Unknown, 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

// MustResolve is Resolve for names known at compile time.
func MustResolve(name string) ID {
	id, _, err := Resolve(name)
	if err != nil {
		panic(err)
	}
	return id
}

// ResolveBucket maps an approach bucket name to its Bucket.
func ResolveBucket(name string) (Bucket, error) {
	if b, ok := bucketByNormalized[Normalize(name)]; ok {
		return b, nil
	}
	return Rounds, fmt.Errorf("%w: %q", ErrUnknownBucket, name)
}

// ResolveShotColumn maps a shot count column such as "fw_100_150_shots"
// to its bucket.
func ResolveShotColumn(name string) (Bucket, bool) {
	n := Normalize(name)
	for _, suffix := range shotSuffixes {
		if !strings.HasSuffix(n, suffix) {
			continue
		}
		if b, ok := bucketByNormalized[strings.TrimSuffix(n, suffix)]; ok {
			return b, true
		}
	}
	return Rounds, false
}
