package parser

import (
	"errors"
	"reflect"
	"testing"
)

const rootPage = `<html><body>
<div class="side_categories">
  <ul class="nav nav-list">
    <li><a href="catalogue/category/books_1/index.html">Books</a>
      <ul>
        <li><a href="catalogue/category/books/travel_2/index.html">
            Travel
        </a></li>
        <li><a href="catalogue/category/books/mystery_3/index.html"> Mystery </a></li>
        <li><a href="">Empty</a></li>
        <li><a href="catalogue/category/books/travel_99/index.html">Travel</a></li>
      </ul>
    </li>
  </ul>
</div>
</body></html>`

const detailPage = `<html><body>
<div class="item active"><img src="../../media/cache/fe/72/fe72.jpg" alt="x"></div>
<div class="col-sm-6 product_main">
  <h1>  A Light in the Attic </h1>
  <p class="price_color">£51.77</p>
  <p class="instock availability">
    <i class="icon-ok"></i>
    In stock (22 available)
  </p>
  <p class="star-rating Three"><i class="icon-star"></i></p>
</div>
</body></html>`

func mustParse(t *testing.T, markup string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(markup))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func TestExtractCategories(t *testing.T) {
	doc := mustParse(t, rootPage)

	got, err := ExtractCategories(doc, "http://example.test/")
	if err != nil {
		t.Fatalf("extract categories: %v", err)
	}

	want := []Category{
		{Name: "Travel", URL: "http://example.test/catalogue/category/books/travel_2/index.html"},
		{Name: "Mystery", URL: "http://example.test/catalogue/category/books/mystery_3/index.html"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("categories = %#v, want %#v", got, want)
	}
}

func TestExtractCategoriesMissingNav(t *testing.T) {
	doc := mustParse(t, "<html><body><p>maintenance</p></body></html>")

	_, err := ExtractCategories(doc, "http://example.test/")
	var parseErr ErrParse
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestExtractDetailLinksAndNext(t *testing.T) {
	doc := mustParse(t, `<html><body>
<article class="product_pod"><h3><a href="book-1/index.html" title="One">One</a></h3></article>
<article class="product_pod"><h3>no link</h3></article>
<article class="product_pod"><h3><a href="../../../book-2/index.html">Two</a></h3></article>
<ul class="pager"><li class="next"><a href="page-2.html">next</a></li></ul>
</body></html>`)

	links := ExtractDetailLinks(doc)
	want := []string{"book-1/index.html", "../../../book-2/index.html"}
	if !reflect.DeepEqual(links, want) {
		t.Fatalf("links = %v, want %v", links, want)
	}

	href, ok := NextPageHref(doc)
	if !ok || href != "page-2.html" {
		t.Fatalf("next = %q/%v, want page-2.html/true", href, ok)
	}
}

func TestNextPageHrefTerminal(t *testing.T) {
	tests := map[string]string{
		"absent":     `<html><body><ul class="pager"><li class="previous"><a href="page-1.html">prev</a></li></ul></body></html>`,
		"empty href": `<html><body><li class="next"><a href="">next</a></li></body></html>`,
	}
	for name, markup := range tests {
		t.Run(name, func(t *testing.T) {
			if href, ok := NextPageHref(mustParse(t, markup)); ok {
				t.Fatalf("expected terminal page, got next %q", href)
			}
		})
	}
}

func TestExtractDetail(t *testing.T) {
	doc := mustParse(t, detailPage)

	got, err := ExtractDetail(doc, "http://example.test/")
	if err != nil {
		t.Fatalf("extract detail: %v", err)
	}

	if got.Title != "A Light in the Attic" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.Price != 51.77 {
		t.Fatalf("price = %v, want 51.77", got.Price)
	}
	if got.Availability != "In stock (22 available)" {
		t.Fatalf("availability = %q", got.Availability)
	}
	if got.Rating != 3 {
		t.Fatalf("rating = %d, want 3", got.Rating)
	}
	if got.ImageURL != "http://example.test/media/cache/fe/72/fe72.jpg" {
		t.Fatalf("image = %q", got.ImageURL)
	}
	if len(got.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", got.Issues)
	}
}

func TestExtractDetailTolerances(t *testing.T) {
	doc := mustParse(t, `<html><body>
<div class="product_main"><h1>Sparse</h1><p class="price_color">N/A</p></div>
</body></html>`)

	got, err := ExtractDetail(doc, "http://example.test/")
	if err != nil {
		t.Fatalf("extract detail: %v", err)
	}
	if got.Price != 0 {
		t.Fatalf("price = %v, want 0", got.Price)
	}
	if len(got.Issues) != 1 {
		t.Fatalf("issues = %v, want one price issue", got.Issues)
	}
	if got.Availability != StockFallback {
		t.Fatalf("availability = %q, want fallback", got.Availability)
	}
	if got.Rating != 0 {
		t.Fatalf("rating = %d, want 0", got.Rating)
	}
	if got.ImageURL != "" {
		t.Fatalf("image = %q, want empty", got.ImageURL)
	}
}

func TestExtractDetailMissingNodes(t *testing.T) {
	tests := map[string]struct {
		markup string
		node   string
	}{
		"no title": {markup: `<div class="product_main"><p class="price_color">£1.00</p></div>`, node: selectorTitle},
		"no price": {markup: `<div class="product_main"><h1>Priceless</h1></div>`, node: selectorPrice},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractDetail(mustParse(t, tt.markup), "http://example.test/")
			var parseErr ErrParse
			if !errors.As(err, &parseErr) || parseErr.Node != tt.node {
				t.Fatalf("expected ErrParse for %s, got %v", tt.node, err)
			}
		})
	}
}
