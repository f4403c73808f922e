// Package feedparser extracts items from raw RSS markup by pattern matching.
// It never fails: malformed input yields fewer items or none.
package feedparser

import (
	"html"
	"iter"
	"regexp"
	"strings"
	"time"

	"technews/internal/utils"

	"github.com/microcosm-cc/bluemonday"
)

// Item candidate article extracted from a feed
type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PubDate     time.Time `json:"pubDate"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	ImageURL    *string   `json:"imageUrl"`
}

var (
	itemOpenRe    = regexp.MustCompile(`<item(?:\s[^>]*)?>`)
	titleRe       = regexp.MustCompile(`(?s)<title(?:\s[^>]*)?>(.*?)</title>`)
	linkRe        = regexp.MustCompile(`(?s)<link(?:\s[^>]*)?>(.*?)</link>`)
	pubDateRe     = regexp.MustCompile(`(?s)<pubDate>(.*?)</pubDate>`)
	descriptionRe = regexp.MustCompile(`(?s)<description(?:\s[^>]*)?>(.*?)</description>`)
	contentRe     = regexp.MustCompile(`(?s)<content:encoded>(.*?)</content:encoded>`)
	cdataRe       = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	spaceRe       = regexp.MustCompile(`\s+`)

	imageRes = []*regexp.Regexp{
		regexp.MustCompile(`(?s)<media:thumbnail[^>]*?\burl="(.*?)"`),
		regexp.MustCompile(`(?s)<media:content[^>]*?\burl="([^"]*?)"[^>]*?medium="image"`),
		regexp.MustCompile(`(?s)<enclosure[^>]*?\burl="([^"]*?)"[^>]*?type="image/[^"]*"`),
	}

	textPolicy = bluemonday.StrictPolicy()
)

// Parser turns feed text into items
type Parser struct {
	// Now supplies the publish date for items without a usable one
	Now func() time.Time
}

// New returns a parser using the wall clock
func New() *Parser {
	return &Parser{Now: time.Now}
}

// Items lazily yields items in document order. The sequence can be ranged
// over any number of times.
func (p *Parser) Items(raw string) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		rest := raw
		for {
			block, next, ok := nextItem(rest)
			if !ok {
				return
			}
			rest = rest[next:]

			item, ok := p.parseItem(block)
			if !ok {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

const (
	itemClose  = "</item>"
	cdataOpen  = "<![CDATA["
	cdataClose = "]]>"
)

// nextItem returns the body of the first complete item in s and the offset
// just past it. A closing tag inside a CDATA section does not end the item.
func nextItem(s string) (block string, next int, ok bool) {
	loc := itemOpenRe.FindStringIndex(s)
	if loc == nil {
		return "", 0, false
	}
	start := loc[1]
	for i := start; ; {
		end := strings.Index(s[i:], itemClose)
		if end < 0 {
			return "", 0, false
		}
		end += i
		cdata := strings.Index(s[i:end], cdataOpen)
		if cdata < 0 {
			return s[start:end], end + len(itemClose), true
		}
		cdata += i + len(cdataOpen)
		closing := strings.Index(s[cdata:], cdataClose)
		if closing < 0 {
			// unterminated CDATA, fall back to the first closing tag
			return s[start:end], end + len(itemClose), true
		}
		i = cdata + closing + len(cdataClose)
	}
}

// Parse collects all items
func (p *Parser) Parse(raw string) []Item {
	items := make([]Item, 0)
	for item := range p.Items(raw) {
		items = append(items, item)
	}
	return items
}

// Parse with a default parser
func Parse(raw string) []Item {
	return New().Parse(raw)
}

func (p *Parser) parseItem(block string) (Item, bool) {
	title := strings.TrimSpace(html.UnescapeString(unwrapCDATA(firstGroup(titleRe, block))))
	link := strings.TrimSpace(unwrapCDATA(firstGroup(linkRe, block)))
	if title == "" || link == "" {
		return Item{}, false
	}

	descHTML := unwrapCDATA(firstGroup(descriptionRe, block))
	contentHTML := unwrapCDATA(firstGroup(contentRe, block))

	item := Item{
		Title:       title,
		Link:        html.UnescapeString(link),
		PubDate:     p.parseDate(firstGroup(pubDateRe, block)),
		Description: StripHTML(descHTML),
		Content:     StripHTML(contentHTML),
	}

	if img := findImage(block); img != "" {
		item.ImageURL = &img
	} else if img := utils.FirstImage(html.UnescapeString(contentHTML + descHTML)); img != "" {
		item.ImageURL = &img
	}
	return item, true
}

func findImage(block string) string {
	for _, re := range imageRes {
		if m := re.FindStringSubmatch(block); m != nil {
			if u := strings.TrimSpace(html.UnescapeString(m[1])); u != "" {
				return u
			}
		}
	}
	return ""
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (p *Parser) parseDate(raw string) time.Time {
	raw = strings.TrimSpace(unwrapCDATA(raw))
	if raw != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// StripHTML reduces markup to plain text with collapsed whitespace
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	// feeds often entity-encode their markup instead of using CDATA
	if strings.Contains(s, "&lt;") {
		s = html.UnescapeString(s)
	}
	text := html.UnescapeString(textPolicy.Sanitize(s))
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

func unwrapCDATA(s string) string {
	return cdataRe.ReplaceAllString(s, "$1")
}
