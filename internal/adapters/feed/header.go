package feed

import (
	"fmt"
	"strings"

	"github.com/okian/fairway/internal/domain/metric"
)

type role int

const (
	roleUnknown role = iota
	roleID
	roleName
	roleEvent
	roleRound
	roleFinish
	roleMetric
	roleShots
)

// Identity columns by normalized header.
var identity = map[string]role{
	"competitor_id": roleID,
	"player_id":     roleID,
	"dg_id":         roleID,
	"id":            roleID,
	"name":          roleName,
	"player_name":   roleName,
	"player":        roleName,
	"event_id":      roleEvent,
	"event":         roleEvent,
	"round":         roleRound,
	"round_num":     roleRound,
	"finish":        roleFinish,
	"fin_text":      roleFinish,
	"finish_text":   roleFinish,
	"position":      roleFinish,
	"pos":           roleFinish,
}

type column struct {
	index  int
	name   string
	role   role
	metric metric.ID
	bucket metric.Bucket
}

// layout is a classified header row.
type layout struct {
	columns  []column
	byRole   map[role]int
	unknown  []string
	resolved map[string]metric.Strategy
}

func classify(header []string, shots bool) (layout, error) {
	l := layout{byRole: make(map[role]int), resolved: make(map[string]metric.Strategy)}
	seenMetric := make(map[metric.ID]string)
	seenBucket := make(map[metric.Bucket]string)
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		c := column{index: i, name: name}
		n := metric.Normalize(name)
		switch r, ok := identity[n]; {
		case ok:
			if prev, dup := l.byRole[r]; dup {
				return layout{}, fmt.Errorf("%w: %q and %q name the same column", ErrBadHeader, header[prev], name)
			}
			c.role = r
			l.byRole[r] = i
		default:
			if b, ok := metric.ResolveShotColumn(name); ok && shots {
				if prev, dup := seenBucket[b]; dup {
					return layout{}, fmt.Errorf("%w: %q and %q both count %s shots", ErrBadHeader, prev, name, b)
				}
				seenBucket[b] = name
				c.role, c.bucket = roleShots, b
				break
			}
			id, strategy, err := metric.Resolve(name)
			if err != nil {
				l.unknown = append(l.unknown, name)
				break
			}
			if prev, dup := seenMetric[id]; dup {
				return layout{}, fmt.Errorf("%w: %q and %q both resolve to %s", ErrBadHeader, prev, name, id)
			}
			seenMetric[id] = name
			c.role, c.metric = roleMetric, id
			l.resolved[name] = strategy
		}
		l.columns = append(l.columns, c)
	}
	return l, nil
}

func (l layout) has(r role) bool {
	_, ok := l.byRole[r]
	return ok
}

func (l layout) require(feed string, roles ...role) error {
	for _, r := range roles {
		if !l.has(r) {
			return fmt.Errorf("%w: %s feed has no %s column", ErrMissingInput, feed, r)
		}
	}
	return nil
}

func (r role) String() string {
	switch r {
	case roleID:
		return "competitor id"
	case roleName:
		return "name"
	case roleEvent:
		return "event"
	case roleRound:
		return "round"
	case roleFinish:
		return "finish"
	case roleMetric:
		return "metric"
	case roleShots:
		return "shot count"
	default:
		return "unknown"
	}
}
