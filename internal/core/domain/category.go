package domain

import (
	"fmt"
	"strings"
)

// Category is the top-level classification bucket of a note. It decides
// which category-specific metadata fields a note may carry.
type Category string

// Known categories.
const (
	CategoryTask          Category = "task"
	CategoryFinance       Category = "finance"
	CategoryHealth        Category = "health"
	CategoryKnowledge     Category = "knowledge"
	CategoryEvent         Category = "event"
	CategoryIdea          Category = "idea"
	CategoryJournal       Category = "journal"
	CategoryReference     Category = "reference"
	CategoryShopping      Category = "shopping"
	CategoryTravel        Category = "travel"
	CategoryUncategorized Category = "uncategorized"
)

// AllCategories returns every known category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryTask,
		CategoryFinance,
		CategoryHealth,
		CategoryKnowledge,
		CategoryEvent,
		CategoryIdea,
		CategoryJournal,
		CategoryReference,
		CategoryShopping,
		CategoryTravel,
		CategoryUncategorized,
	}
}

// IsValid returns true if the category is recognised.
func (c Category) IsValid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// Description returns a human-readable description used in prompts and help text.
func (c Category) Description() string {
	switch c {
	case CategoryTask:
		return "Something to do, with an owner or deadline"
	case CategoryFinance:
		return "Spending, income, bills and receipts"
	case CategoryHealth:
		return "Exercise, sleep, diet and wellbeing"
	case CategoryKnowledge:
		return "Facts, learnings and study notes"
	case CategoryEvent:
		return "Meetings, appointments and happenings"
	case CategoryIdea:
		return "Ideas, plans and brainstorms"
	case CategoryJournal:
		return "Personal diary entries and reflections"
	case CategoryReference:
		return "Links, articles and material kept for later"
	case CategoryShopping:
		return "Things to buy and purchase lists"
	case CategoryTravel:
		return "Trips, bookings and itineraries"
	case CategoryUncategorized:
		return "Anything that fits no other bucket"
	default:
		return unknownDescription
	}
}

// ParseCategory converts a model or user supplied label into a Category.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: category %q", ErrInvalidInput, s)
	}
	return c, nil
}
