package search

import "errors"

var (
	// ErrPlaceIndexRequired is returned when a place index is not provided.
	ErrPlaceIndexRequired = errors.New("place index required")

	// ErrSchoolIndexRequired is returned when a school index is not provided.
	ErrSchoolIndexRequired = errors.New("school index required")

	// ErrEmptyQuery is returned when a query normalizes to the empty string.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrCountryRequired is returned when a school search has no country scope.
	ErrCountryRequired = errors.New("country scope required")
)
