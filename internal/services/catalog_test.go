package services

import (
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Categories) == 0 || len(c.Sources) == 0 || len(c.Tags) == 0 || len(c.Vocabulary) == 0 {
		t.Fatalf("catalog incomplete: %d categories, %d sources, %d tags, %d vocabulary",
			len(c.Categories), len(c.Sources), len(c.Tags), len(c.Vocabulary))
	}
	seen := make(map[string]bool)
	for _, v := range c.Vocabulary {
		if seen[v] {
			t.Errorf("duplicate vocabulary entry %q", v)
		}
		seen[v] = true
	}
}

func TestParseCatalogRequiresFeedURL(t *testing.T) {
	_, err := ParseCatalog([]byte("sources:\n  - name: Nameless\n"))
	if err == nil {
		t.Fatal("expected error for source without feed_url")
	}
	if _, err := ParseCatalog([]byte("sources: [unterminated")); err == nil {
		t.Fatal("expected yaml error")
	}
}

func TestInitializeSources(t *testing.T) {
	st := newTestStore(t)
	c, err := ParseCatalog([]byte(`
categories:
  - name: تقنية
    color: "#3B82F6"
sources:
  - name: TechCrunch
    url: https://techcrunch.com
    feed_url: https://techcrunch.com/feed/
    category: تقنية
  - name: Ars Technica
    url: https://arstechnica.com
    feed_url: https://feeds.arstechnica.com/arstechnica/index
    category: علوم
tags:
  - name: ذكاء اصطناعي
  - name: سحابة
`))
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.InitializeSources(st)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 2 || res.Updated != 0 || res.Total != 2 {
		t.Errorf("first run = %+v", res)
	}

	// deactivated sources come back on the next initialize
	sources, _ := st.ListSources()
	if _, err := st.SetSourceActive(sources[0].ID, false); err != nil {
		t.Fatal(err)
	}
	res, err = c.InitializeSources(st)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Updated != 2 {
		t.Errorf("second run = %+v", res)
	}
	active, _ := st.ActiveFeedSources()
	if len(active) != 2 {
		t.Errorf("active sources = %d", len(active))
	}

	// unknown category names are created on the fly
	cats, _ := st.ListCategories()
	if len(cats) != 2 {
		t.Errorf("categories = %+v", cats)
	}

	n, err := c.SeedTags(st)
	if err != nil || n != 2 {
		t.Fatalf("SeedTags = %d, %v", n, err)
	}
	if _, err := c.SeedTags(st); err != nil {
		t.Fatalf("second SeedTags: %v", err)
	}
	tags, _ := st.ListTags(10)
	if len(tags) != 2 {
		t.Errorf("tags = %+v", tags)
	}
}
