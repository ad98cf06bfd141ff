package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Catalog maps each category to its news items, ordered by id.
type Catalog map[Category][]*NewsItem

type catalogRecord struct {
	URL       string             `json:"url"`
	Summaries map[ModelID]string `json:"summaries"`
}

type catalogDoc struct {
	NewsData map[string]map[string]catalogRecord `json:"news_data"`
}

// CatalogService fetches the news catalog document once per process and caches it.
// The source is either a local file path or an http(s) URL.
type CatalogService struct {
	source string
	client *http.Client

	mu     sync.Mutex
	cached Catalog
}

func NewCatalogService(source string) *CatalogService {
	return &CatalogService{
		source: source,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Load returns the catalog, fetching it on first use. Unreachable or malformed sources
// surface as ErrCatalogUnavailable.
func (s *CatalogService) Load() (Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached, nil
	}
	data, err := s.fetch()
	if err != nil {
		return nil, err
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	s.cached = catalog
	return catalog, nil
}

func (s *CatalogService) fetch() ([]byte, error) {
	if strings.TrimSpace(s.source) == "" {
		return nil, fmt.Errorf("%w: no source configured", ErrCatalogUnavailable)
	}
	if strings.HasPrefix(s.source, "http://") || strings.HasPrefix(s.source, "https://") {
		resp, err := s.client.Get(s.source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: unexpected status %d", ErrCatalogUnavailable, resp.StatusCode)
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		return b, nil
	}
	b, err := os.ReadFile(s.source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return b, nil
}

// ParseCatalog flattens the nested category→id→record document into id-tagged items,
// preserving the category tag on each item.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc catalogDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if len(doc.NewsData) == 0 {
		return nil, fmt.Errorf("%w: document has no news_data", ErrCatalogUnavailable)
	}
	out := Catalog{}
	for cat, entries := range doc.NewsData {
		category := Category(cat)
		items := make([]*NewsItem, 0, len(entries))
		for id, rec := range entries {
			if strings.TrimSpace(rec.URL) == "" || len(rec.Summaries) == 0 {
				return nil, fmt.Errorf("%w: item %s/%s missing url or summaries", ErrCatalogUnavailable, cat, id)
			}
			items = append(items, &NewsItem{
				ID:        id,
				Category:  category,
				URL:       rec.URL,
				Summaries: rec.Summaries,
			})
		}
		// keep stable order by id
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		out[category] = items
	}
	return out, nil
}
