package web

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Creative is the parsed content of an HTML ad.
type Creative struct {
	Title    string
	ImageURL string
	ClickURL string
}

// IsEmpty reports whether nothing renderable was found.
func (c Creative) IsEmpty() bool {
	return c.Title == "" && c.ImageURL == "" && c.ClickURL == ""
}

func parseCreative(body []byte, baseURL string) (Creative, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Creative{}, fmt.Errorf("parse creative html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	c := Creative{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
	}

	image := firstNonEmpty(extract(`meta[property="og:image"]`))
	if image == "" {
		if src, ok := doc.Find("img[src]").First().Attr("src"); ok {
			image = src
		}
	}
	c.ImageURL = resolveURL(image, baseURL)

	if href, ok := doc.Find("a[href]").First().Attr("href"); ok {
		c.ClickURL = resolveURL(href, baseURL)
	}

	return c, nil
}

func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
