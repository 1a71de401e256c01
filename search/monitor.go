package search

import "github.com/poiesic/typeahead/core"

// SearchMonitor provides hooks to observe the query path.
// Implement this interface to track intermediate steps and results during a
// search; the default is a no-op.
type SearchMonitor interface {
	Start(query string)
	AfterPrefixFetch(prefix string, ids []core.ID)
	AfterResolve(resolved int)
	CandidateDropped(id core.ID, reason string)
	Finish(results int)
}

// Drop reasons passed to CandidateDropped. Stale ids never reach the
// monitor; they vanish between AfterPrefixFetch and AfterResolve.
const (
	DropSubstringMiss  = "substring-miss"
	DropCountryMiss    = "country-miss"
	DropBeyondDistance = "beyond-max-distance"
)

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                       {}
func (n *noopMonitor) AfterPrefixFetch(_ string, _ []core.ID) {}
func (n *noopMonitor) AfterResolve(_ int)                   {}
func (n *noopMonitor) CandidateDropped(_ core.ID, _ string) {}
func (n *noopMonitor) Finish(_ int)                         {}
