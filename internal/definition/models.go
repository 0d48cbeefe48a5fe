package definition

import (
	"time"
)

// StepKind classifies a workflow step. The kind decides how the engine treats
// the step: who may act on it, whether it can auto-advance, and whether
// reaching it finishes the instance.
type StepKind string

const (
	// KindStart is the single entry step of a definition.
	KindStart StepKind = "start"
	// KindUserDecision is a step left by an explicit human choice
	// (approve, reject, request more info).
	KindUserDecision StepKind = "user-decision"
	// KindSystemAction is a step resolved by an automated collaborator
	// (document verification, fee calculation).
	KindSystemAction StepKind = "system-action"
	// KindTerminalSuccess completes the instance successfully.
	KindTerminalSuccess StepKind = "terminal-success"
	// KindTerminalFailure completes the instance unsuccessfully.
	KindTerminalFailure StepKind = "terminal-failure"
	// KindWaitTimer is a step that an external scheduler releases.
	KindWaitTimer StepKind = "wait-timer"
)

// Valid reports whether the kind is one of the known step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case KindStart, KindUserDecision, KindSystemAction,
		KindTerminalSuccess, KindTerminalFailure, KindWaitTimer:
		return true
	}
	return false
}

// Terminal reports whether reaching a step of this kind completes the
// instance.
func (k StepKind) Terminal() bool {
	return k == KindTerminalSuccess || k == KindTerminalFailure
}

// TransitionRule is one role-gated outgoing edge of a step. An empty
// ExitRoles set means any authenticated actor may take the edge.
type TransitionRule struct {
	To        string   `json:"to"`
	ExitRoles []string `json:"exit_roles,omitempty"`
}

// Allows reports whether the given role may take this edge.
func (r TransitionRule) Allows(role string) bool {
	if len(r.ExitRoles) == 0 {
		return true
	}
	for _, allowed := range r.ExitRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// StepDefinition is a named position in a workflow.
type StepDefinition struct {
	ID          string           `json:"id"`
	Kind        StepKind         `json:"kind"`
	Next        []TransitionRule `json:"next,omitempty"`
	AutoAdvance bool             `json:"auto_advance,omitempty"`
}

// Rule returns the outgoing edge toward the given step, if one exists.
func (s StepDefinition) Rule(to string) (TransitionRule, bool) {
	for _, rule := range s.Next {
		if rule.To == to {
			return rule, true
		}
	}
	return TransitionRule{}, false
}

// ProcessDefinition is an immutable, versioned workflow template. Once
// published it is never mutated; changes require publishing a new version.
type ProcessDefinition struct {
	Name        string           `json:"name"`
	Version     int              `json:"version"`
	AllowCancel bool             `json:"allow_cancel"`
	Steps       []StepDefinition `json:"steps"`
	PublishedAt time.Time        `json:"published_at,omitzero"`
}

// Step returns the step with the given ID.
func (d ProcessDefinition) Step(id string) (StepDefinition, bool) {
	for _, step := range d.Steps {
		if step.ID == id {
			return step, true
		}
	}
	return StepDefinition{}, false
}

// StartStep returns the definition's start step. Valid definitions have
// exactly one; Validate enforces that before publish.
func (d ProcessDefinition) StartStep() (StepDefinition, bool) {
	for _, step := range d.Steps {
		if step.Kind == KindStart {
			return step, true
		}
	}
	return StepDefinition{}, false
}

// Clone returns a deep copy so stored definitions can be handed to callers
// without aliasing.
func (d ProcessDefinition) Clone() ProcessDefinition {
	out := d
	out.Steps = make([]StepDefinition, len(d.Steps))
	for i, step := range d.Steps {
		cp := step
		cp.Next = make([]TransitionRule, len(step.Next))
		for j, rule := range step.Next {
			rc := rule
			rc.ExitRoles = append([]string(nil), rule.ExitRoles...)
			cp.Next[j] = rc
		}
		out.Steps[i] = cp
	}
	return out
}
