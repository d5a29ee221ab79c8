// Package metric defines the closed set of performance metrics the engine
// understands, their sample buckets and their direction.
//
// Metric names coming from feeds are resolved to an ID once, at load time.
// Everything past the loaders works with IDs only.
package metric

// ID identifies a metric.
type ID int

// Round-level metrics.
const (
	Unknown ID = iota
	DrivingDistance
	DrivingAccuracy
	SGTotal
	SGOffTee
	SGApproach
	SGAroundGreen
	SGPutting
	SGTeeToGreen
	GreensInRegulation
	Scrambling
	Proximity
	ScoringAverage
	BirdiesPerRound
	BogeysPerRound
	PuttsPerRound

	roundEnd
)

// Bucket is a sample bucket. Round metrics are counted in Rounds; approach
// metrics in their distance/lie band.
type Bucket int

const (
	Rounds Bucket = iota
	Fairway50to100
	Fairway100to150
	Fairway150to200
	Fairway200Plus
	RoughUnder150
	Rough150Plus

	bucketEnd
)

// Field is one of the statistics reported per approach bucket.
type Field int

const (
	FieldGIR Field = iota
	FieldGoodShot
	FieldPoorAvoid
	FieldProximity
	FieldSGPerShot

	fieldEnd
)

const approachCount = int(bucketEnd-1) * int(fieldEnd)

// Count is the number of valid metric IDs.
const Count = int(roundEnd) - 1 + approachCount

// Approach returns the ID of field f in bucket b, or Unknown.
func Approach(b Bucket, f Field) ID {
	if b <= Rounds || b >= bucketEnd || f < 0 || f >= fieldEnd {
		return Unknown
	}
	return roundEnd + ID(int(b-1)*int(fieldEnd)+int(f))
}

// Valid reports whether id is a known metric.
func (id ID) Valid() bool {
	return id > Unknown && int(id) < int(roundEnd)+approachCount
}

// IsApproach reports whether id is an approach-bucket metric.
func (id ID) IsApproach() bool {
	return id.Valid() && id >= roundEnd
}

// Bucket returns the sample bucket id is counted in.
func (id ID) Bucket() Bucket {
	if !id.IsApproach() {
		return Rounds
	}
	return Bucket(int(id-roundEnd)/int(fieldEnd)) + 1
}

// Field returns the approach field of id. It is only meaningful when
// IsApproach is true.
func (id ID) Field() Field {
	if !id.IsApproach() {
		return -1
	}
	return Field(int(id-roundEnd) % int(fieldEnd))
}

// String returns the canonical metric name.
func (id ID) String() string {
	if !id.Valid() {
		return "unknown"
	}
	return definitions[id].name
}

// Label returns a human readable name.
func (id ID) Label() string {
	if !id.Valid() {
		return "Unknown"
	}
	return definitions[id].label
}

// LowerIsBetter reports whether smaller raw values are better for id.
func (id ID) LowerIsBetter() bool {
	return lowerIsBetter[id]
}

// MarshalText implements encoding.TextMarshaler so IDs can key JSON maps.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, ErrUnknownMetric
	}
	return []byte(id.String()), nil
}

// UnmarshalText resolves text through the full resolution policy.
func (id *ID) UnmarshalText(text []byte) error {
	v, _, err := Resolve(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// All returns every valid metric in ID order.
func All() []ID {
	out := make([]ID, 0, Count)
	for id := Unknown + 1; int(id) < int(roundEnd)+approachCount; id++ {
		out = append(out, id)
	}
	return out
}

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	return b >= Rounds && b < bucketEnd
}

// String returns the canonical bucket name.
func (b Bucket) String() string {
	if !b.Valid() {
		return "unknown"
	}
	return buckets[b].name
}

// Label returns a human readable bucket name.
func (b Bucket) Label() string {
	if !b.Valid() {
		return "Unknown"
	}
	return buckets[b].label
}

func (b Bucket) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, ErrUnknownBucket
	}
	return []byte(b.String()), nil
}

func (b *Bucket) UnmarshalText(text []byte) error {
	v, err := ResolveBucket(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// ApproachBuckets returns the approach buckets in order.
func ApproachBuckets() []Bucket {
	out := make([]Bucket, 0, int(bucketEnd)-1)
	for b := Rounds + 1; b < bucketEnd; b++ {
		out = append(out, b)
	}
	return out
}

func (f Field) String() string {
	if f < 0 || f >= fieldEnd {
		return "unknown"
	}
	return fields[f].name
}
