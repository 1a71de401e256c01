package search

import (
	"context"

	"github.com/poiesic/typeahead/core"
)

// GroupLimit caps each school-type group independently.
const GroupLimit = 50

// SchoolGroups partitions ranked school results by institution type.
// Each group is independently capped at GroupLimit and keeps rank order.
type SchoolGroups struct {
	Grade   []*SchoolResult
	High    []*SchoolResult
	College []*SchoolResult
	Other   []*SchoolResult
}

// Len returns the total result count across groups.
func (g *SchoolGroups) Len() int {
	return len(g.Grade) + len(g.High) + len(g.College) + len(g.Other)
}

// groupSchools partitions ranked results by type, capping each group.
// Input order is preserved, so each group stays ranked.
func groupSchools(results []*SchoolResult, limit int) *SchoolGroups {
	groups := &SchoolGroups{}
	for _, result := range results {
		var group *[]*SchoolResult
		switch result.School.Type {
		case core.SchoolTypeGrade:
			group = &groups.Grade
		case core.SchoolTypeHigh:
			group = &groups.High
		case core.SchoolTypeCollege:
			group = &groups.College
		default:
			group = &groups.Other
		}
		if len(*group) < limit {
			*group = append(*group, result)
		}
	}
	return groups
}

// annotate resolves city and state display names for every grouped result
// with one batched lookup per dictionary, avoiding per-result round trips.
func (s *Searcher) annotate(ctx context.Context, groups *SchoolGroups) error {
	citySet := make(map[core.ID]bool)
	stateSet := make(map[core.ID]bool)
	groups.each(func(result *SchoolResult) {
		if result.School.CityID != 0 {
			citySet[result.School.CityID] = true
		}
		if result.School.StateID != 0 {
			stateSet[result.School.StateID] = true
		}
	})

	cityNames, err := s.schools.CityNames(ctx, idsOf(citySet)...)
	if err != nil {
		return err
	}
	stateNames, err := s.schools.StateNames(ctx, idsOf(stateSet)...)
	if err != nil {
		return err
	}

	groups.each(func(result *SchoolResult) {
		result.City = cityNames[result.School.CityID]
		result.State = stateNames[result.School.StateID]
	})
	return nil
}

func (g *SchoolGroups) each(fn func(*SchoolResult)) {
	for _, group := range [][]*SchoolResult{g.Grade, g.High, g.College, g.Other} {
		for _, result := range group {
			fn(result)
		}
	}
}

func idsOf(set map[core.ID]bool) []core.ID {
	ids := make([]core.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
