package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/definition"
	"caseflow/internal/instance"
	dErrors "caseflow/pkg/domain-errors"
)

// licenseApplication mirrors the licensing module's review workflow.
func licenseApplication() definition.ProcessDefinition {
	return definition.ProcessDefinition{
		Name:        "license_application",
		Version:     1,
		AllowCancel: true,
		Steps: []definition.StepDefinition{
			{ID: "draft", Kind: definition.KindStart, Next: []definition.TransitionRule{
				{To: "submitted", ExitRoles: []string{"applicant"}},
			}},
			{ID: "submitted", Kind: definition.KindUserDecision, Next: []definition.TransitionRule{
				{To: "document_review", ExitRoles: []string{"officer"}},
			}},
			{ID: "document_review", Kind: definition.KindUserDecision, Next: []definition.TransitionRule{
				{To: "approved", ExitRoles: []string{"officer"}},
				{To: "rejected", ExitRoles: []string{"officer"}},
				{To: "additional_info", ExitRoles: []string{"officer"}},
			}},
			{ID: "additional_info", Kind: definition.KindUserDecision, Next: []definition.TransitionRule{
				{To: "document_review", ExitRoles: []string{"applicant"}},
			}},
			{ID: "approved", Kind: definition.KindTerminalSuccess},
			{ID: "rejected", Kind: definition.KindTerminalFailure},
		},
	}
}

func activeAt(step string) instance.ProcessInstance {
	return instance.ProcessInstance{
		ID:                "case-1",
		DefinitionName:    "license_application",
		DefinitionVersion: 1,
		CurrentStepID:     step,
		Status:            instance.StatusActive,
	}
}

func TestValidate(t *testing.T) {
	def := licenseApplication()

	tests := []struct {
		name     string
		inst     instance.ProcessInstance
		toStep   string
		role     string
		wantCode dErrors.Code
	}{
		{"legal first transition", activeAt("draft"), "submitted", "applicant", ""},
		{"legal branch choice", activeAt("document_review"), "additional_info", "officer", ""},
		{"skip a step", activeAt("draft"), "approved", "applicant", dErrors.CodeInvalidTransition},
		{"wrong role on edge", activeAt("document_review"), "approved", "applicant", dErrors.CodeForbidden},
		{"unknown target", activeAt("submitted"), "archived", "officer", dErrors.CodeInvalidTransition},
		{"backwards edge not declared", activeAt("submitted"), "draft", "officer", dErrors.CodeInvalidTransition},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(def, tc.inst, tc.toStep, tc.role)
			if tc.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, dErrors.CodeOf(err))
		})
	}
}

func TestValidate_TerminalInstance(t *testing.T) {
	def := licenseApplication()

	completed := activeAt("approved")
	completed.Status = instance.StatusCompleted
	err := Validate(def, completed, "rejected", "officer")
	assert.Equal(t, dErrors.CodeTerminalState, dErrors.CodeOf(err))

	cancelled := activeAt("submitted")
	cancelled.Status = instance.StatusCancelled
	err = Validate(def, cancelled, "document_review", "officer")
	assert.Equal(t, dErrors.CodeTerminalState, dErrors.CodeOf(err))
}

func TestValidate_EmptyExitRolesAdmitAnyActor(t *testing.T) {
	def := licenseApplication()
	def.Steps[0].Next[0].ExitRoles = nil

	assert.NoError(t, Validate(def, activeAt("draft"), "submitted", "clerk"))
}

// Same inputs, same answer: the validator has no hidden state.
func TestValidate_Deterministic(t *testing.T) {
	def := licenseApplication()
	inst := activeAt("document_review")

	first := Validate(def, inst, "approved", "applicant")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Validate(def, inst, "approved", "applicant"))
	}
}
