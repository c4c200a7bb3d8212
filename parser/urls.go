package parser

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	parentMarker  = "../"
	pageSegment   = "/page-"
	pathSeparator = "/"
)

// ResolveDetailURL turns a listing page's raw item link into an absolute detail URL.
// Absolute links pass through; links starting with "../" lose every such marker and are rooted at
// base+archivePath; anything else resolves relative to the listing page it was found on.
func ResolveDetailURL(base, archivePath, current, href string) (string, error) {
	if hasScheme(href) {
		return href, nil
	}
	if strings.HasPrefix(href, parentMarker) {
		return joinBase(base, archivePath+strings.ReplaceAll(href, parentMarker, "")), nil
	}
	return ResolveReference(current, href)
}

// ResolveImageURL makes an image src absolute against the catalog base.
func ResolveImageURL(base, src string) string {
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, parentMarker) {
		return joinBase(base, strings.ReplaceAll(src, parentMarker, ""))
	}
	if hasScheme(src) {
		return src
	}
	return joinBase(base, src)
}

// NextPageURL computes the following listing page from the "next" control's bare filename.
// Once pagination has begun the current URL ends in a page-N file that gets replaced; before
// that the filename is appended as a new path segment.
func NextPageURL(current, href string) string {
	if strings.Contains(current, pageSegment) {
		return current[:strings.LastIndex(current, pathSeparator)+1] + href
	}
	return strings.TrimRight(current, pathSeparator) + pathSeparator + href
}

// ResolveReference resolves href against the page it was found on.
func ResolveReference(pageURL, href string) (string, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url %q: %w", pageURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return page.ResolveReference(ref).String(), nil
}

func hasScheme(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs()
}

func joinBase(base, path string) string {
	return strings.TrimRight(base, pathSeparator) + pathSeparator + strings.TrimLeft(path, pathSeparator)
}
