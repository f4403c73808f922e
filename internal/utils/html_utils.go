package utils

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FirstImage returns the src of the first <img> in an HTML fragment
func FirstImage(htmlStr string) string {
	if !strings.Contains(htmlStr, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

// EnhanceHTMLContent hardens images and links in rendered HTML
func EnhanceHTMLContent(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	// summaries are Arabic by default, keep embedded latin links readable
	doc.Find("a").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("dir", "auto")
	})

	// goquery renders full document tags if missing, we just want the body content
	html, _ := doc.Find("body").Html()
	if html == "" {
		html, _ = doc.Html()
	}

	return template.HTML(html)
}
