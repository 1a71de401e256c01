package core

import "fmt"

// ValidatePlace validates a Place according to domain rules.
//
// Validation rules:
//   - Name must not be empty after normalization
//   - CountryID must be set
//   - Coordinates must be within valid lat/lon ranges
//
// NOT validated:
//   - Population (0 is a legitimate value for small or unknown places)
//   - StateID (not every country has state subdivisions)
func ValidatePlace(place *Place) error {
	if place == nil {
		return fmt.Errorf("%w: place is nil", ErrInvalidPlace)
	}
	if Normalize(place.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPlace, ErrEmptyName)
	}
	if place.CountryID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlace, ErrMissingCountry)
	}
	if !validCoordinates(place.Lat, place.Lon) {
		return fmt.Errorf("%w: %w", ErrInvalidPlace, ErrInvalidCoordinates)
	}
	return nil
}

// ValidateSchool validates a School according to domain rules.
//
// Validation rules:
//   - Name must not be empty after normalization
//   - CountryID and CityID must be set
//   - Coordinates, when present, must be within valid lat/lon ranges
//
// NOT validated:
//   - SizeMetric (negative means unknown and scores zero)
//   - Type (unknown types rank as SchoolTypeOther)
func ValidateSchool(school *School) error {
	if school == nil {
		return fmt.Errorf("%w: school is nil", ErrInvalidSchool)
	}
	if Normalize(school.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSchool, ErrEmptyName)
	}
	if school.CountryID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSchool, ErrMissingCountry)
	}
	if school.CityID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSchool, ErrMissingCity)
	}
	if school.HasLocation && !validCoordinates(school.Lat, school.Lon) {
		return fmt.Errorf("%w: %w", ErrInvalidSchool, ErrInvalidCoordinates)
	}
	return nil
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
