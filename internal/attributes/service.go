// =============================================================================
// Export Converter - Attribute Translation Service
// =============================================================================
//
// Resolves option codes of select attributes to their labels in a given
// language. The full label map is fetched from a LabelSource the first time
// it is needed and kept for the lifetime of the Service:
//
//   attribute -> option code -> language -> label
//
// FETCH PROTOCOL (fixed, agreed with the label source):
//   1. Probe each attribute with limit=1, page=1 to learn items_count.
//   2. Fetch ceil(items_count / 100) pages of 100 options each.
//
// MISSING LABELS:
//   A lookup never fails. When the attribute, the code or the language is
//   unknown, a diagnostic is logged and recorded, and the code is returned
//   unchanged.
//
// =============================================================================

package attributes

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// probeLimit is the page size of the first request per attribute.
	probeLimit = 1

	// PageSize is the page size used to collect options.
	PageSize = 100
)

// LabelMap is the cached nested lookup: attribute -> code -> language -> label.
type LabelMap map[string]map[string]map[string]string

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// DiagnosticKind identifies which level of the lookup failed.
type DiagnosticKind string

const (
	MissingAttribute DiagnosticKind = "attribute"
	MissingCode      DiagnosticKind = "code"
	MissingLanguage  DiagnosticKind = "language"
)

// Diagnostic describes one failed lookup.
type Diagnostic struct {
	Kind      DiagnosticKind
	Attribute string
	Code      string
	Language  string
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case MissingAttribute:
		return fmt.Sprintf("no label definitions for field [%s]", d.Attribute)
	case MissingCode:
		return fmt.Sprintf("no label for field [%s] and value [%s]", d.Attribute, d.Code)
	default:
		return fmt.Sprintf("no label translation for field [%s], value [%s] and lang [%s]",
			d.Attribute, d.Code, d.Language)
	}
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the attribute translation service.
type Service struct {
	source     LabelSource
	attributes []string
	logger     *zap.Logger

	group singleflight.Group

	mu          sync.Mutex
	built       bool
	labels      LabelMap
	buildErr    error
	diagnostics []Diagnostic
}

// NewService creates a Service for the given attribute identifiers.
// Nothing is fetched until the first Load or Lookup.
func NewService(source LabelSource, attributes []string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	attrs := make([]string, len(attributes))
	copy(attrs, attributes)

	return &Service{
		source:     source,
		attributes: attrs,
		logger:     logger.Named("attributes"),
	}
}

// Load builds the label map if it has not been built yet and returns it.
// The map is built at most once per Service; a failed build is not retried
// and its error is returned to every later caller.
func (s *Service) Load(ctx context.Context) (LabelMap, error) {
	s.mu.Lock()
	if s.built {
		labels, err := s.labels, s.buildErr
		s.mu.Unlock()
		return labels, err
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("labels", func() (interface{}, error) {
		s.mu.Lock()
		if s.built {
			labels, err := s.labels, s.buildErr
			s.mu.Unlock()
			return labels, err
		}
		s.mu.Unlock()

		labels, err := s.buildMap(ctx)

		s.mu.Lock()
		s.built = true
		s.labels = labels
		s.buildErr = err
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("attribute labels unavailable", zap.Error(err))
		}
		return labels, err
	})
	if err != nil {
		return nil, err
	}
	return v.(LabelMap), nil
}

// buildMap walks every configured attribute through the label source.
func (s *Service) buildMap(ctx context.Context) (LabelMap, error) {
	labels := make(LabelMap, len(s.attributes))

	for _, attribute := range s.attributes {
		codes := make(map[string]map[string]string)
		labels[attribute] = codes

		probe, err := s.source.Fetch(ctx, attribute, probeLimit, 1)
		if err != nil {
			return nil, fmt.Errorf("probe attribute %s: %w", attribute, err)
		}

		pages := (probe.ItemsCount + PageSize - 1) / PageSize
		for page := 1; page <= pages; page++ {
			resp, err := s.source.Fetch(ctx, attribute, PageSize, page)
			if err != nil {
				return nil, fmt.Errorf("fetch attribute %s page %d: %w", attribute, page, err)
			}
			for _, opt := range resp.Items {
				translated := make(map[string]string, len(opt.Labels))
				for lang, label := range opt.Labels {
					if label == nil {
						continue
					}
					translated[lang] = *label
				}
				codes[opt.Code] = translated
			}
		}

		s.logger.Debug("attribute labels loaded",
			zap.String("attribute", attribute),
			zap.Int("options", len(codes)),
			zap.Int("pages", pages))
	}

	return labels, nil
}

// Lookup returns the label of code for attribute in language. When any level
// of the lookup is missing it records a diagnostic and returns code.
//
// If the label map cannot be built code is returned. The build failure is
// logged once, when it happens; call Load first to surface it as an error.
func (s *Service) Lookup(attribute, code, language string) string {
	labels, err := s.Load(context.Background())
	if err != nil {
		return code
	}

	codes, ok := labels[attribute]
	if !ok {
		s.report(Diagnostic{Kind: MissingAttribute, Attribute: attribute, Code: code, Language: language})
		return code
	}

	translations, ok := codes[code]
	if !ok {
		s.report(Diagnostic{Kind: MissingCode, Attribute: attribute, Code: code, Language: language})
		return code
	}

	label, ok := translations[language]
	if !ok {
		s.report(Diagnostic{Kind: MissingLanguage, Attribute: attribute, Code: code, Language: language})
		return code
	}

	return label
}

// Has reports whether the nested keys exist in the label map, e.g.
// Has("color"), Has("color", "red") or Has("color", "red", "en_GB").
func (s *Service) Has(ctx context.Context, keys ...string) bool {
	labels, err := s.Load(ctx)
	if err != nil || len(keys) == 0 {
		return false
	}

	codes, ok := labels[keys[0]]
	if !ok {
		return false
	}
	if len(keys) == 1 {
		return true
	}

	translations, ok := codes[keys[1]]
	if !ok {
		return false
	}
	if len(keys) == 2 {
		return true
	}

	_, ok = translations[keys[2]]
	return ok && len(keys) == 3
}

// Diagnostics returns a copy of the diagnostics recorded so far.
func (s *Service) Diagnostics() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

func (s *Service) report(d Diagnostic) {
	s.mu.Lock()
	s.diagnostics = append(s.diagnostics, d)
	s.mu.Unlock()

	s.logger.Warn("attribute label missing",
		zap.String("kind", string(d.Kind)),
		zap.String("attribute", d.Attribute),
		zap.String("code", d.Code),
		zap.String("language", d.Language),
		zap.String("detail", d.String()))
}
