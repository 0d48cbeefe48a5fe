package engine

import (
	"caseflow/internal/definition"
	"caseflow/internal/instance"
	dErrors "caseflow/pkg/domain-errors"
)

// Validate decides whether a requested transition is legal. It is a pure
// function of its inputs: no I/O, fully deterministic, which keeps it unit
// testable without a database.
//
// The caller always names the target step explicitly. When a step branches
// (approved | rejected | additional_info) the validator never infers intent
// or applies a priority ordering; ambiguity is resolved by toStepID alone.
func Validate(def definition.ProcessDefinition, inst instance.ProcessInstance, toStepID, actorRole string) error {
	if inst.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeTerminalState,
			"instance %s is %s and can no longer advance", inst.ID, inst.Status)
	}

	current, ok := def.Step(inst.CurrentStepID)
	if !ok {
		return dErrors.Newf(dErrors.CodeInternal,
			"instance %s references step %q absent from definition %s v%d",
			inst.ID, inst.CurrentStepID, def.Name, def.Version)
	}

	rule, ok := current.Rule(toStepID)
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot move from %q to %q", inst.CurrentStepID, toStepID)
	}

	if !rule.Allows(actorRole) {
		return dErrors.Newf(dErrors.CodeForbidden,
			"role %q may not move %q to %q", actorRole, inst.CurrentStepID, toStepID)
	}

	return nil
}
