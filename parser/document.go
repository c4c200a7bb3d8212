package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	selectorCategories   = "div.side_categories ul.nav-list li a"
	selectorProductPod   = "article.product_pod"
	selectorProductLink  = "h3 a"
	selectorNextPage     = "li.next a"
	selectorTitle        = "div.product_main h1"
	selectorPrice        = "p.price_color"
	selectorAvailability = "p.availability"
	selectorRating       = "p.star-rating"
	selectorImage        = "div.item.active img"
)

// Document is a parsed page. Extraction functions only read from it.
type Document = goquery.Document

// Category is one entry of the catalog's category navigation.
type Category struct {
	Name string
	URL  string
}

// Detail is the field set extracted from one detail page.
type Detail struct {
	Title        string
	Price        float64
	Availability string
	Rating       int
	ImageURL     string

	// Issues lists value errors that were tolerated (the field fell back to its zero value).
	Issues []error
}

// ParseDocument parses raw markup into a queryable document.
func ParseDocument(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ExtractCategories reads the category navigation, skipping its leading "all items" entry.
// Names are trimmed, URLs resolved against rootURL; entries with an empty href or a name already
// seen are dropped.
func ExtractCategories(doc *Document, rootURL string) ([]Category, error) {
	links := doc.Find(selectorCategories)
	if links.Length() == 0 {
		return nil, ErrParse{Node: selectorCategories}
	}

	categories := make([]Category, 0, links.Length())
	seen := make(map[string]struct{}, links.Length())
	var resolveErr error
	links.Slice(1, links.Length()).Each(func(_ int, s *goquery.Selection) {
		if resolveErr != nil {
			return
		}
		name := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		abs, err := ResolveReference(rootURL, href)
		if err != nil {
			resolveErr = err
			return
		}
		seen[name] = struct{}{}
		categories = append(categories, Category{Name: name, URL: abs})
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return categories, nil
}

// ExtractDetailLinks returns the raw detail-page href of every item summary on a listing page,
// in document order. Summaries without a link are skipped.
func ExtractDetailLinks(doc *Document) []string {
	pods := doc.Find(selectorProductPod)
	links := make([]string, 0, pods.Length())
	pods.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find(selectorProductLink).First().Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, href)
	})
	return links
}

// NextPageHref returns the href of the "next page" control. ok is false when the control is
// absent or its href is empty, which ends the category.
func NextPageHref(doc *Document) (href string, ok bool) {
	next := doc.Find(selectorNextPage).First()
	if next.Length() == 0 {
		return "", false
	}
	href, _ = next.Attr("href")
	return href, href != ""
}

// ExtractDetail pulls a record's fields out of a detail page. A missing title or price node is an
// ErrParse; an unparsable price is tolerated as zero and reported in Issues.
func ExtractDetail(doc *Document, baseURL string) (Detail, error) {
	title := strings.TrimSpace(doc.Find(selectorTitle).First().Text())
	if title == "" {
		return Detail{}, ErrParse{Node: selectorTitle}
	}

	priceNode := doc.Find(selectorPrice).First()
	if priceNode.Length() == 0 {
		return Detail{}, ErrParse{Node: selectorPrice}
	}

	detail := Detail{Title: title}

	price, err := ParsePrice(priceNode.Text())
	if err != nil {
		detail.Issues = append(detail.Issues, err)
	}
	detail.Price = price

	detail.Availability = StockFallback
	if stock := doc.Find(selectorAvailability).First(); stock.Length() > 0 {
		detail.Availability = NormalizeAvailability(stock.Text())
	}

	if rating := doc.Find(selectorRating).First(); rating.Length() > 0 {
		class, _ := rating.Attr("class")
		detail.Rating = RatingToNumeric(RatingToken(class))
	}

	if img := doc.Find(selectorImage).First(); img.Length() > 0 {
		src, _ := img.Attr("src")
		detail.ImageURL = ResolveImageURL(baseURL, src)
	}

	return detail, nil
}
