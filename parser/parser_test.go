package parser

import (
	"errors"
	"math"
	"testing"

	"github.com/aluiziolira/go-catalog-sync/models"
)

func TestValidateBook(t *testing.T) {
	tests := []struct {
		name    string
		book    *models.Book
		wantErr bool
	}{
		{
			name: "valid book",
			book: &models.Book{
				Title:        "Test Book",
				Price:        10,
				Rating:       5,
				Availability: "In stock",
			},
			wantErr: false,
		},
		{
			name:    "nil book",
			book:    nil,
			wantErr: true,
		},
		{
			name: "missing title",
			book: &models.Book{
				Title: "  ",
				Price: 10,
			},
			wantErr: true,
		},
		{
			name: "rating out of range",
			book: &models.Book{
				Title:  "Test Book",
				Rating: 6,
			},
			wantErr: true,
		},
		{
			name: "negative price is kept",
			book: &models.Book{
				Title: "Test Book",
				Price: -1,
			},
			wantErr: false,
		},
		{
			name: "not a number price",
			book: &models.Book{
				Title: "Test Book",
				Price: math.NaN(),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBook(tt.book)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "with currency symbol", input: "£51.77", expected: "51.77"},
		{name: "mis-decoded currency symbol", input: "Â£51.77", expected: "51.77"},
		{name: "with whitespace", input: "  £10.50  ", expected: "10.50"},
		{name: "already clean", input: "25.99", expected: "25.99"},
		{name: "multiple symbols", input: "£ 99.99 £", expected: "99.99"},
		{name: "thousands separator", input: "£1,234.50", expected: "1234.50"},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizePrice(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizePrice(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  float64
		wantValue bool
	}{
		{name: "pound price", input: "£51.77", expected: 51.77},
		{name: "padded", input: "\n  £10.00 ", expected: 10},
		{name: "not available", input: "N/A", expected: 0, wantValue: true},
		{name: "empty", input: "", expected: 0, wantValue: true},
		{name: "nan", input: "£NaN", expected: 0, wantValue: true},
		{name: "infinity", input: "£Infinity", expected: 0, wantValue: true},
		{name: "short infinity", input: "-Inf", expected: 0, wantValue: true},
		{name: "negative", input: "£-3.50", expected: -3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if got != tt.expected {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			var valueErr ErrValue
			if tt.wantValue != errors.As(err, &valueErr) {
				t.Fatalf("ParsePrice(%q) error = %v, want value error %v", tt.input, err, tt.wantValue)
			}
			if tt.wantValue && valueErr.Field != "price" {
				t.Fatalf("value error field = %q, want price", valueErr.Field)
			}
		})
	}
}

func TestRatingToNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{input: "One", expected: 1},
		{input: "Two", expected: 2},
		{input: "Three", expected: 3},
		{input: "Four", expected: 4},
		{input: "Five", expected: 5},
		{input: " Four ", expected: 4},
		{input: "Zero", expected: 0},
		{input: "Six", expected: 0},
		{input: "three", expected: 0},
		{input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := RatingToNumeric(tt.input); got != tt.expected {
				t.Errorf("RatingToNumeric(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRatingToken(t *testing.T) {
	tests := map[string]string{
		"star-rating Three":   "Three",
		"  star-rating  One ": "One",
		"star-rating":         "",
		"":                    "",
	}
	for class, want := range tests {
		if got := RatingToken(class); got != want {
			t.Errorf("RatingToken(%q) = %q, want %q", class, got, want)
		}
	}
}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "with whitespace", input: "  In stock (22 available)  ", expected: "In stock (22 available)"},
		{name: "no whitespace", input: "In stock", expected: "In stock"},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeAvailability(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeAvailability(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
