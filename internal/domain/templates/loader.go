package templates

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/okian/fairway/internal/domain/course"
	"github.com/okian/fairway/internal/domain/metric"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/okian/fairway/pkg/logger"
)

//go:embed defaults.yaml
var defaultYAML []byte

type document struct {
	Templates []rawTemplate `koanf:"templates"`
}

type rawTemplate struct {
	ID          string     `koanf:"id"`
	Version     int        `koanf:"version"`
	Kind        string     `koanf:"kind"`
	Archetype   string     `koanf:"archetype"`
	Venue       string     `koanf:"venue"`
	Description string     `koanf:"description"`
	Groups      []rawGroup `koanf:"groups"`
}

type rawGroup struct {
	Name    string      `koanf:"name"`
	Weight  float64     `koanf:"weight"`
	Metrics []rawMetric `koanf:"metrics"`
}

type rawMetric struct {
	Metric string  `koanf:"metric"`
	Weight float64 `koanf:"weight"`
}

// Load builds a Store from the built-in templates and any extra files.
func Load(ctx context.Context, opts ...Option) (*Store, error) {
	s := settings{defaults: true, log: logger.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	var configs []weights.Config
	if s.defaults {
		cs, err := parse(ctx, "defaults.yaml", rawbytes.Provider(defaultYAML), s.log)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cs...)
	}
	for _, path := range s.files {
		cs, err := parse(ctx, path, file.Provider(path), s.log)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cs...)
	}

	store, err := NewStore(configs...)
	if err != nil {
		return nil, err
	}
	store.log = s.log
	return store, nil
}

// Parse decodes a YAML template document.
func Parse(ctx context.Context, data []byte) ([]weights.Config, error) {
	return parse(ctx, "inline", rawbytes.Provider(data), logger.Default())
}

func parse(ctx context.Context, source string, p koanf.Provider, log logger.Logger) ([]weights.Config, error) {
	// lists do not merge across koanf loads, so every source gets its own instance
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadTemplates, source, err)
	}
	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadTemplates, source, err)
	}

	out := make([]weights.Config, 0, len(doc.Templates))
	for i, raw := range doc.Templates {
		c, err := raw.build(ctx, log)
		if err != nil {
			return nil, fmt.Errorf("%s template #%d: %w", source, i+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (r rawTemplate) build(ctx context.Context, log logger.Logger) (weights.Config, error) {
	c := weights.Config{
		ID:          strings.TrimSpace(r.ID),
		Version:     r.Version,
		Kind:        weights.Kind(strings.ToLower(strings.TrimSpace(r.Kind))),
		Venue:       NormalizeVenue(r.Venue),
		Description: r.Description,
	}
	if c.Version <= 0 {
		c.Version = 1
	}
	switch c.Kind {
	case "":
		c.Kind = weights.KindCustom
	case weights.KindArchetype, weights.KindVenue, weights.KindCustom:
	default:
		return weights.Config{}, fmt.Errorf("%w: %s kind %q", ErrInvalidTemplate, c.Key(), r.Kind)
	}
	if c.Kind == weights.KindVenue && c.Venue == "" {
		return weights.Config{}, fmt.Errorf("%w: %s is a venue template without a venue", ErrInvalidTemplate, c.Key())
	}
	if r.Archetype != "" {
		a, err := course.ParseArchetype(r.Archetype)
		if err != nil {
			return weights.Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidTemplate, c.Key(), err)
		}
		c.Archetype = a
	}

	for _, rg := range r.Groups {
		g := weights.Group{Name: strings.TrimSpace(rg.Name), Weight: rg.Weight}
		for _, rm := range rg.Metrics {
			id, strategy, err := metric.Resolve(rm.Metric)
			if err != nil {
				return weights.Config{}, fmt.Errorf("%w: %s group %q: %w", weights.ErrUnknownMetric, c.Key(), g.Name, err)
			}
			if strategy != metric.StrategyCanonical {
				log.Debug(ctx, "template metric resolved by alias",
					logger.String("template", c.Key()),
					logger.String("name", rm.Metric),
					logger.String("metric", id.String()),
					logger.String("strategy", strategy.String()),
				)
			}
			g.Metrics = append(g.Metrics, weights.MetricWeight{Metric: id, Weight: rm.Weight})
		}
		c.Groups = append(c.Groups, g)
	}

	norm, err := weights.Normalize(c)
	if err != nil {
		return weights.Config{}, err
	}
	return norm, nil
}

// NormalizeVenue lowercases a venue name and joins its words with '_'.
func NormalizeVenue(v string) string {
	fields := strings.FieldsFunc(strings.ToLower(v), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.'
	})
	return strings.Join(fields, "_")
}
