package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/healthtrack/healthtrack/internal/domain/eligibility"
	"github.com/healthtrack/healthtrack/internal/platform/metrics"
)

const (
	KindVaccine   = "vaccine"
	KindProcedure = "procedure"
)

//go:embed data/*.yaml
var builtin embed.FS

var builtinFiles = map[string]string{
	KindVaccine:   "data/vaccines.yaml",
	KindProcedure: "data/procedures.yaml",
}

// ErrUnknownKind is returned for a catalog kind other than vaccine or procedure.
var ErrUnknownKind = errors.New("unknown catalog kind")

// document is the on-disk YAML layout.
type document struct {
	Kind     string                    `yaml:"kind"`
	Items    []eligibility.CatalogItem `yaml:"items"`
	Schedule []struct {
		AgeRange string   `yaml:"age_range"`
		Items    []string `yaml:"items"`
	} `yaml:"schedule"`
}

// Reference is a loaded catalog together with its schedule.
type Reference struct {
	Kind     string
	Catalog  *eligibility.Catalog
	Schedule eligibility.Schedule
	// Unparsed lists labels that resolved to 0 months by fallback.
	Unparsed []string
}

// Loader reads reference documents and reports label problems.
type Loader struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewLoader(logger zerolog.Logger, m *metrics.Metrics) *Loader {
	return &Loader{logger: logger, metrics: m}
}

// Load decodes one YAML document. Every schedule label is parsed here once.
func (l *Loader) Load(r io.Reader) (*Reference, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if doc.Kind != KindVaccine && doc.Kind != KindProcedure {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, doc.Kind)
	}

	cat, err := eligibility.NewCatalog(doc.Items)
	if err != nil {
		return nil, fmt.Errorf("%s catalog: %w", doc.Kind, err)
	}

	ref := &Reference{Kind: doc.Kind, Catalog: cat}
	for _, it := range doc.Items {
		for _, label := range it.AgeRanges {
			l.check(ref, label, it.ID)
		}
	}
	for _, e := range doc.Schedule {
		entry := eligibility.NewScheduleEntry(e.AgeRange, e.Items...)
		if !entry.AgeRange.Parsed {
			l.check(ref, e.AgeRange, "")
		}
		for _, id := range e.Items {
			if _, ok := cat.Lookup(id); !ok {
				l.logger.Warn().Str("kind", doc.Kind).Str("item_id", id).Str("age_range", e.AgeRange).
					Msg("schedule references an item missing from the catalog")
			}
		}
		ref.Schedule = append(ref.Schedule, entry)
	}
	return ref, nil
}

func (l *Loader) check(ref *Reference, label, itemID string) {
	if eligibility.ParseAgeRange(label).Parsed {
		return
	}
	ref.Unparsed = append(ref.Unparsed, label)
	l.metrics.IncrementParseFallback(ref.Kind)
	evt := l.logger.Warn().Str("kind", ref.Kind).Str("label", label)
	if itemID != "" {
		evt = evt.Str("item_id", itemID)
	}
	evt.Msg("age range label not understood, treating as 0 months")
}

// LoadFile reads a catalog document from disk.
func (l *Loader) LoadFile(path string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return l.Load(f)
}

// Builtin returns the catalog shipped with the binary.
func (l *Loader) Builtin(kind string) (*Reference, error) {
	name, ok := builtinFiles[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	f, err := builtin.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open builtin %s catalog: %w", kind, err)
	}
	defer f.Close()
	return l.Load(f)
}

// Resolve loads kind from dir/<kind>s.yaml when dir is set and the file
// exists, otherwise from the builtin copy.
func (l *Loader) Resolve(dir, kind string) (*Reference, error) {
	if dir != "" {
		path := filepath.Join(dir, kind+"s.yaml")
		if _, err := os.Stat(path); err == nil {
			l.logger.Info().Str("kind", kind).Str("path", path).Msg("loading catalog override")
			ref, err := l.LoadFile(path)
			if err != nil {
				return nil, err
			}
			if ref.Kind != kind {
				return nil, fmt.Errorf("%s declares kind %q, want %q", path, ref.Kind, kind)
			}
			return ref, nil
		}
	}
	return l.Builtin(kind)
}
