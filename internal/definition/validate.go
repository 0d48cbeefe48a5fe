package definition

import (
	dErrors "caseflow/pkg/domain-errors"
)

// Validate checks the publish-time invariants of a definition. It returns a
// CodeValidation error describing the first violation found; a definition
// that fails validation is never stored, not even partially.
func (d ProcessDefinition) Validate() error {
	if d.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "definition name is required")
	}
	if d.Version < 1 {
		return dErrors.New(dErrors.CodeValidation, "definition version must be >= 1")
	}
	if len(d.Steps) == 0 {
		return dErrors.New(dErrors.CodeValidation, "definition must contain at least one step")
	}

	byID := make(map[string]StepDefinition, len(d.Steps))
	startCount := 0
	for _, step := range d.Steps {
		if step.ID == "" {
			return dErrors.New(dErrors.CodeValidation, "step id is required")
		}
		if !step.Kind.Valid() {
			return dErrors.Newf(dErrors.CodeValidation, "step %q has unknown kind %q", step.ID, step.Kind)
		}
		if _, dup := byID[step.ID]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate step id %q", step.ID)
		}
		byID[step.ID] = step
		if step.Kind == KindStart {
			startCount++
		}
	}
	if startCount != 1 {
		return dErrors.Newf(dErrors.CodeValidation, "definition must have exactly one start step, found %d", startCount)
	}

	for _, step := range d.Steps {
		if step.Kind.Terminal() {
			if len(step.Next) > 0 {
				return dErrors.Newf(dErrors.CodeValidation, "terminal step %q must not have outgoing transitions", step.ID)
			}
			continue
		}
		if len(step.Next) == 0 {
			return dErrors.Newf(dErrors.CodeValidation, "non-terminal step %q must have at least one outgoing transition", step.ID)
		}
		seen := make(map[string]bool, len(step.Next))
		for _, rule := range step.Next {
			if _, ok := byID[rule.To]; !ok {
				return dErrors.Newf(dErrors.CodeValidation, "step %q references undefined step %q", step.ID, rule.To)
			}
			if seen[rule.To] {
				return dErrors.Newf(dErrors.CodeValidation, "step %q lists step %q twice", step.ID, rule.To)
			}
			seen[rule.To] = true
		}
		if step.AutoAdvance && step.Kind != KindSystemAction {
			return dErrors.Newf(dErrors.CodeValidation, "step %q: auto_advance requires kind system-action", step.ID)
		}
	}

	if !terminalReachable(d, byID) {
		return dErrors.New(dErrors.CodeValidation, "no terminal step is reachable from the start step")
	}
	return nil
}

// terminalReachable walks the step graph breadth-first from the start step.
// The graph may contain cycles (document_review <-> additional_info), so
// visited tracking is required.
func terminalReachable(d ProcessDefinition, byID map[string]StepDefinition) bool {
	start, ok := d.StartStep()
	if !ok {
		return false
	}
	visited := map[string]bool{start.ID: true}
	queue := []string{start.ID}
	for len(queue) > 0 {
		current := byID[queue[0]]
		queue = queue[1:]
		if current.Kind.Terminal() {
			return true
		}
		for _, rule := range current.Next {
			if !visited[rule.To] {
				visited[rule.To] = true
				queue = append(queue, rule.To)
			}
		}
	}
	return false
}
