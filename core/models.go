package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Canonical-store entities carry their own numeric ids; entities known only
// by an external token derive one with IDFromToken.
type ID uint64

// IDFromToken generates a deterministic ID from a stable external token using
// BLAKE2b hashing. Identical tokens produce identical IDs across rebuilds.
func IDFromToken(token string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(token))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SchoolType classifies an institution for ranking purposes.
type SchoolType int

const (
	// SchoolTypeGrade represents an elementary or middle school.
	SchoolTypeGrade SchoolType = iota + 1
	// SchoolTypeHigh represents a high school.
	SchoolTypeHigh
	// SchoolTypeCollege represents a college or university.
	SchoolTypeCollege
	// SchoolTypeOther represents any other institution.
	SchoolTypeOther
)

var schoolTypeNames = map[SchoolType]string{
	SchoolTypeGrade:   "grade",
	SchoolTypeHigh:    "hs",
	SchoolTypeCollege: "college",
	SchoolTypeOther:   "other",
}

// String returns the wire name of the school type ("grade", "hs", "college",
// "other"). Unknown values render as "other".
func (t SchoolType) String() string {
	if name, ok := schoolTypeNames[t]; ok {
		return name
	}
	return "other"
}

// SchoolTypeFromString parses a wire name back into a SchoolType.
// Unknown names map to SchoolTypeOther.
func SchoolTypeFromString(name string) SchoolType {
	for t, n := range schoolTypeNames {
		if n == name {
			return t
		}
	}
	return SchoolTypeOther
}

// Place represents a geographic entity such as a city.
// Places are immutable once indexed; only a full rebuild replaces them.
type Place struct {
	ID         ID
	Name       string
	Population uint64
	Lat        float64
	Lon        float64
	CountryID  ID
	StateID    ID // zero when the country has no state subdivision
}

// School represents an institution scoped to a country.
// Token is the stable cross-rebuild identity; DeletedAt marks a soft delete
// that removes the school from the index without deleting its canonical row.
type School struct {
	ID          ID
	Token       string
	Name        string
	CityID      ID
	StateID     ID
	CountryID   ID
	Lat         float64
	Lon         float64
	HasLocation bool
	SizeMetric  int64 // negative when unknown
	Type        SchoolType
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Deleted reports whether the school has been soft-deleted.
func (s *School) Deleted() bool {
	return s.DeletedAt != nil
}

// ScoredID is a weighted prefix-set member. Place entries weight by
// population; school prefix sets are unweighted and never produce these.
type ScoredID struct {
	ID     ID
	Weight float64
}
