package task

import (
	"time"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
)

// ResolutionMethod says how a conflicted attribute was settled.
type ResolutionMethod string

const (
	ResolutionUnanimous ResolutionMethod = "unanimous"
	ResolutionPriority  ResolutionMethod = "priority"
	ResolutionVote      ResolutionMethod = "vote"
	ResolutionAmbiguous ResolutionMethod = "ambiguous"
)

// ConflictResolution records how one attribute disagreement was settled.
// SelectedAgent is always one of the keys of ValuesByAgent and SelectedValue
// is never synthesized.
type ConflictResolution struct {
	Attribute     string           `json:"attribute"`
	ValuesByAgent map[string]any   `json:"values_by_agent"`
	SelectedValue any              `json:"selected_value"`
	SelectedAgent string           `json:"selected_agent"`
	Confidence    float64          `json:"confidence"`
	Method        ResolutionMethod `json:"method"`
	Ambiguous     bool             `json:"ambiguous,omitempty"`
}

// ConsensusStatus is the lifecycle of a consensus decision point.
type ConsensusStatus string

const (
	ConsensusPending    ConsensusStatus = "pending"
	ConsensusInProgress ConsensusStatus = "in_progress"
	ConsensusResolved   ConsensusStatus = "resolved"
)

// ConsensusDecision records the outcome of one decision point. Once Status
// is resolved, SelectedOption is a member of Options and never changes.
type ConsensusDecision struct {
	ID             string          `json:"id"`
	Key            string          `json:"key"`
	Description    string          `json:"description,omitempty"`
	Options        []string        `json:"options"`
	Votes          []agent.Vote    `json:"votes"`
	SelectedOption string          `json:"selected_option"`
	Confidence     float64         `json:"confidence"`
	Status         ConsensusStatus `json:"status"`
	Rounds         int             `json:"rounds"`
	Forced         bool            `json:"forced,omitempty"`
}

// Result is the assembled output of one task execution. Confidence is
// derived from the resolutions and decisions, never set directly by callers.
type Result struct {
	TaskID        string               `json:"task_id"`
	Strategy      string               `json:"strategy"`
	Values        map[string]any       `json:"values,omitempty"`
	Contributions []agent.StageOutput  `json:"contributions,omitempty"`
	Conflicts     []ConflictResolution `json:"conflicts,omitempty"`
	Decisions     []ConsensusDecision  `json:"decisions,omitempty"`
	Confidence    float64              `json:"confidence"`
	Converged     bool                 `json:"converged"`
	Rounds        int                  `json:"rounds"`
	Duration      time.Duration        `json:"duration"`
	CompletedAt   time.Time            `json:"completed_at"`
}

// ConflictCount returns the number of real conflicts (not unanimous).
func (r *Result) ConflictCount() int {
	n := 0
	for _, c := range r.Conflicts {
		if c.Method != ResolutionUnanimous {
			n++
		}
	}
	return n
}
