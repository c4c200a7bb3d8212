package parser

import "testing"

const testBase = "http://example.test/"

func TestResolveDetailURL(t *testing.T) {
	tests := []struct {
		name    string
		current string
		href    string
		want    string
	}{
		{
			name:    "absolute passes through",
			current: testBase,
			href:    "https://mirror.test/catalogue/book_9/index.html",
			want:    "https://mirror.test/catalogue/book_9/index.html",
		},
		{
			name:    "parent markers rooted at archive",
			current: "http://example.test/catalogue/category/books/poetry_23/index.html",
			href:    "../../../a-light-in-the-attic_1000/index.html",
			want:    "http://example.test/catalogue/a-light-in-the-attic_1000/index.html",
		},
		{
			name:    "relative to root listing",
			current: testBase,
			href:    "catalogue/book-1/index.html",
			want:    "http://example.test/catalogue/book-1/index.html",
		},
		{
			name:    "relative to paginated listing",
			current: "http://example.test/catalogue/page-2.html",
			href:    "book-21/index.html",
			want:    "http://example.test/catalogue/book-21/index.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDetailURL(testBase, "catalogue/", tt.current, tt.href)
			if err != nil {
				t.Fatalf("ResolveDetailURL: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ResolveDetailURL(%q, %q) = %q, want %q", tt.current, tt.href, got, tt.want)
			}
		})
	}
}

func TestResolveImageURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		src  string
		want string
	}{
		{name: "parent markers", base: testBase, src: "../../media/x.jpg", want: "http://example.test/media/x.jpg"},
		{name: "base without slash", base: "http://example.test", src: "../../media/x.jpg", want: "http://example.test/media/x.jpg"},
		{name: "absolute", base: testBase, src: "https://cdn.test/x.jpg", want: "https://cdn.test/x.jpg"},
		{name: "bare path", base: testBase, src: "media/x.jpg", want: "http://example.test/media/x.jpg"},
		{name: "rooted path", base: testBase, src: "/media/x.jpg", want: "http://example.test/media/x.jpg"},
		{name: "empty", base: testBase, src: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveImageURL(tt.base, tt.src); got != tt.want {
				t.Fatalf("ResolveImageURL(%q, %q) = %q, want %q", tt.base, tt.src, got, tt.want)
			}
		})
	}
}

// The catalog's "next" control carries only a bare filename; these cases pin the join convention
// for the current URL scheme.
func TestNextPageURLContract(t *testing.T) {
	tests := []struct {
		name    string
		current string
		href    string
		want    string
	}{
		{
			name:    "first page directory",
			current: "http://example.test/catalogue/category/books/travel_2/",
			href:    "page-2.html",
			want:    "http://example.test/catalogue/category/books/travel_2/page-2.html",
		},
		{
			name:    "already paginated",
			current: "http://example.test/catalogue/category/books/travel_2/page-2.html",
			href:    "page-3.html",
			want:    "http://example.test/catalogue/category/books/travel_2/page-3.html",
		},
		{
			name:    "first page index file is appended to",
			current: "http://example.test/catalogue/category/books/travel_2/index.html",
			href:    "page-2.html",
			want:    "http://example.test/catalogue/category/books/travel_2/index.html/page-2.html",
		},
		{
			name:    "root listing",
			current: "http://example.test",
			href:    "catalogue/page-2.html",
			want:    "http://example.test/catalogue/page-2.html",
		},
		{
			name:    "root listing paginated",
			current: "http://example.test/catalogue/page-2.html",
			href:    "page-3.html",
			want:    "http://example.test/catalogue/page-3.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextPageURL(tt.current, tt.href); got != tt.want {
				t.Fatalf("NextPageURL(%q, %q) = %q, want %q", tt.current, tt.href, got, tt.want)
			}
		})
	}
}
