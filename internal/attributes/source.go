// =============================================================================
// Export Converter - Attribute Label Sources
// =============================================================================
//
// A LabelSource is the external system holding the option codes of "select"
// attributes and their per-language labels. The contract is paginated with
// 1-indexed pages:
//
//   Fetch(attribute, limit, page) -> {items_count, items: [{code, labels}]}
//
// Three implementations live here:
//   - HTTPSource   : the PIM REST API (attribute options endpoint)
//   - FileSource   : a YAML label dump, paginated in memory
//   - StaticSource : an in-memory map, mostly for tests
//
// =============================================================================

package attributes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Option is one option code of an attribute with its labels.
// A nil label pointer means the source returned null for that language.
type Option struct {
	Code   string             `json:"code" yaml:"code"`
	Labels map[string]*string `json:"labels" yaml:"labels"`
}

// Page is one page of options returned by a LabelSource.
type Page struct {
	ItemsCount int
	Items      []Option
}

// LabelSource fetches attribute options page by page.
type LabelSource interface {
	Fetch(ctx context.Context, attribute string, limit, page int) (Page, error)
}

// =============================================================================
// HTTP SOURCE
// =============================================================================

// HTTPSource reads attribute options from a PIM REST API.
type HTTPSource struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPSource creates an HTTPSource with its own client.
// A zero timeout leaves requests unbounded.
func NewHTTPSource(baseURL, token string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

type optionListResponse struct {
	ItemsCount int `json:"items_count"`
	Embedded   struct {
		Items []Option `json:"items"`
	} `json:"_embedded"`
}

// Fetch implements LabelSource.
func (s *HTTPSource) Fetch(ctx context.Context, attribute string, limit, page int) (Page, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("page", strconv.Itoa(page))
	query.Set("with_count", "true")

	endpoint := fmt.Sprintf("%s/api/rest/v1/attributes/%s/options?%s",
		s.BaseURL, url.PathEscape(attribute), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request for %s: %w", attribute, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch options of %s: %w", attribute, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Page{}, fmt.Errorf("fetch options of %s: unexpected status %d: %s",
			attribute, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded optionListResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Page{}, fmt.Errorf("decode options of %s: %w", attribute, err)
	}

	return Page{ItemsCount: decoded.ItemsCount, Items: decoded.Embedded.Items}, nil
}

// =============================================================================
// STATIC AND FILE SOURCES
// =============================================================================

// StaticSource serves options from memory: attribute -> code -> lang -> label.
type StaticSource map[string]map[string]map[string]string

// Fetch implements LabelSource.
func (s StaticSource) Fetch(_ context.Context, attribute string, limit, page int) (Page, error) {
	codes := s[attribute]

	options := make([]Option, 0, len(codes))
	for code, labels := range codes {
		opt := Option{Code: code, Labels: make(map[string]*string, len(labels))}
		for lang, label := range labels {
			label := label
			opt.Labels[lang] = &label
		}
		options = append(options, opt)
	}

	return paginate(options, limit, page), nil
}

// FileSource serves options from a YAML file of the form:
//
//	color:
//	  - code: red
//	    labels: {en_GB: Red, de_DE: Rot}
//
// The file is read on every Fetch; the Service cache makes that a one-off.
type FileSource struct {
	Path string
}

// Fetch implements LabelSource.
func (s FileSource) Fetch(_ context.Context, attribute string, limit, page int) (Page, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Page{}, fmt.Errorf("read label file: %w", err)
	}

	var dump map[string][]Option
	if err := yaml.Unmarshal(data, &dump); err != nil {
		return Page{}, fmt.Errorf("parse label file %s: %w", s.Path, err)
	}

	return paginate(dump[attribute], limit, page), nil
}

// paginate slices options into a 1-indexed page, sorted by code so that
// pages are stable between calls.
func paginate(options []Option, limit, page int) Page {
	sorted := make([]Option, len(options))
	copy(sorted, options)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	result := Page{ItemsCount: len(sorted)}
	if limit <= 0 || page <= 0 {
		return result
	}

	start := (page - 1) * limit
	if start >= len(sorted) {
		return result
	}
	end := start + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	result.Items = sorted[start:end]
	return result
}
