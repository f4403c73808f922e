package services

import (
	_ "embed"
	"fmt"
	"os"

	"technews/internal/models"
	"technews/internal/store"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog default categories, sources and tags plus the tag vocabulary
type Catalog struct {
	Categories []CatalogCategory `yaml:"categories"`
	Sources    []CatalogSource   `yaml:"sources"`
	Tags       []CatalogTag      `yaml:"tags"`
	Vocabulary []string          `yaml:"vocabulary"`
}

// CatalogCategory default category entry
type CatalogCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

// CatalogSource default feed, linked to a category by name
type CatalogSource struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	FeedURL     string `yaml:"feed_url"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
}

// CatalogTag seed tag
type CatalogTag struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// InitResult counts of an initialize run
type InitResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// LoadCatalog reads path, or the embedded default when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML and rejects sources without a feed URL
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, s := range c.Sources {
		if s.Name == "" || s.FeedURL == "" {
			return nil, fmt.Errorf("catalog source %d: name and feed_url are required", i)
		}
	}
	return &c, nil
}

// InitializeSources upserts the catalog categories and sources, reactivating
// sources that already exist
func (c *Catalog) InitializeSources(st *store.Store) (*InitResult, error) {
	categoryIDs := make(map[string]uint, len(c.Categories))
	for _, cc := range c.Categories {
		cat, err := st.UpsertCategory(&models.Category{Name: cc.Name, Description: cc.Description, Color: cc.Color})
		if err != nil {
			return nil, err
		}
		categoryIDs[cat.Name] = cat.ID
	}

	result := &InitResult{Total: len(c.Sources)}
	for _, cs := range c.Sources {
		src := &models.Source{
			Name:        cs.Name,
			URL:         cs.URL,
			FeedURL:     cs.FeedURL,
			Description: cs.Description,
			IsActive:    true,
		}
		if cs.Category != "" {
			id, ok := categoryIDs[cs.Category]
			if !ok {
				cat, err := st.UpsertCategory(&models.Category{Name: cs.Category, Description: "أخبار " + cs.Category})
				if err != nil {
					return nil, err
				}
				id = cat.ID
				categoryIDs[cs.Category] = id
			}
			src.CategoryID = &id
		}

		_, created, err := st.UpsertSource(src)
		if err != nil {
			return nil, err
		}
		if created {
			result.Added++
		} else {
			result.Updated++
		}
	}

	log.Info().Int("added", result.Added).Int("updated", result.Updated).Msg("sources initialized")
	return result, nil
}

// SeedTags creates the catalog tags that do not exist yet
func (c *Catalog) SeedTags(st *store.Store) (int, error) {
	for _, t := range c.Tags {
		if _, err := st.UpsertTag(t.Name, t.Description); err != nil {
			return 0, err
		}
	}
	return len(c.Tags), nil
}
