// Package parser turns catalog markup into typed values. Every function here is pure: documents are
// read, never mutated, so extraction steps cannot leak state into each other.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// StockFallback is stored when a detail page has no availability node.
const StockFallback = "Unavailable"

const ratingBaseClass = "star-rating"

var errNotDecimal = errors.New("not a decimal number")

var priceReplacer = strings.NewReplacer("Â", "", "£", "", ",", "")

// ValidateBook ensures a record is fit to be written.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	if b.Rating < 0 || b.Rating > 5 {
		return fmt.Errorf("book rating %d out of range for %s", b.Rating, b.Title)
	}
	if math.IsNaN(b.Price) || math.IsInf(b.Price, 0) {
		return fmt.Errorf("book price is not a number for %s", b.Title)
	}
	return nil
}

// NormalizePrice removes the currency symbol, thousands separators and surrounding whitespace.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	price = priceReplacer.Replace(price)
	return strings.TrimSpace(price)
}

// ParsePrice converts price text such as "£51.77" into a number. Unparsable text yields zero together
// with an ErrValue describing the input; callers that only want the number can ignore the error.
func ParsePrice(text string) (float64, error) {
	normalized := NormalizePrice(text)
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, ErrValue{Field: "price", Raw: text, Err: err}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrValue{Field: "price", Raw: text, Err: errNotDecimal}
	}
	return value, nil
}

// NormalizeAvailability trims spacing from the availability text.
func NormalizeAvailability(text string) string {
	return strings.TrimSpace(text)
}

// RatingToken strips the base class from a rating node's class attribute,
// e.g. "star-rating Three" becomes "Three".
func RatingToken(class string) string {
	return strings.TrimSpace(strings.ReplaceAll(class, ratingBaseClass, ""))
}

// RatingToNumeric converts the textual rating to a numeric scale.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}
