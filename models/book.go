// Package models defines data structures shared by the crawler and the record stores.
package models

import "time"

// Book is one catalog record. Title is the natural key: at most one Book exists per distinct title.
type Book struct {
	ID           string  `csv:"id" json:"id"`
	Title        string  `csv:"title" json:"title"`
	Price        float64 `csv:"price" json:"price"`
	Availability string  `csv:"availability" json:"availability"`
	Rating       int     `csv:"rating" json:"rating"`
	ImageURL     string  `csv:"image_url" json:"image_url"`
	Category     string  `csv:"category" json:"category"`
	URL          string  `csv:"url" json:"url"`
}

// Apply overwrites every mutable field of b with the values from fresh. ID and Title are kept.
func (b *Book) Apply(fresh Book) {
	b.Price = fresh.Price
	b.Availability = fresh.Availability
	b.Rating = fresh.Rating
	b.ImageURL = fresh.ImageURL
	b.Category = fresh.Category
	b.URL = fresh.URL
}

// PassResult holds the outcome of one crawl pass.
type PassResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Categories   int
	PageCount    int
	Inserted     int
	Updated      int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
}

// Duration reports how long the pass took.
func (r *PassResult) Duration() time.Duration {
	if r == nil || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
