package interchange

import (
	"github.com/rohankatakam/featurekg/internal/remap"
)

// Summary is the aggregate result of an import batch. Individual record
// failures are logged; only their counts surface here.
type Summary struct {
	RunID                string                   `json:"run_id,omitempty"`
	NodesCreated         int                      `json:"nodes_created"`
	NodesFailed          int                      `json:"nodes_failed"`
	RelationshipsCreated int                      `json:"relationships_created"`
	RelationshipsSkipped int                      `json:"relationships_skipped"`
	SkipReasons          map[remap.SkipReason]int `json:"skip_reasons"`
}

func newSummary(runID string) Summary {
	return Summary{RunID: runID, SkipReasons: map[remap.SkipReason]int{}}
}

// Record folds one record outcome into the summary.
func (s *Summary) Record(o remap.Outcome) {
	if s.SkipReasons == nil {
		s.SkipReasons = map[remap.SkipReason]int{}
	}
	switch o.Kind {
	case remap.KindNode:
		if o.Created {
			s.NodesCreated++
		} else {
			s.NodesFailed++
		}
	case remap.KindRelationship:
		if o.Created {
			s.RelationshipsCreated++
		} else {
			s.RelationshipsSkipped++
			s.SkipReasons[o.Reason]++
		}
	}
}

// Partial reports whether any record was dropped.
func (s Summary) Partial() bool {
	return s.NodesFailed > 0 || s.RelationshipsSkipped > 0
}
