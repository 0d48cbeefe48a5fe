package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "caseflow/pkg/domain-errors"
)

// licenseApplication mirrors the licensing module's review workflow:
// draft -> submitted -> document_review -> {approved, rejected,
// additional_info}, with additional_info looping back to document_review.
func licenseApplication() ProcessDefinition {
	return ProcessDefinition{
		Name:        "license_application",
		Version:     1,
		AllowCancel: true,
		Steps: []StepDefinition{
			{ID: "draft", Kind: KindStart, Next: []TransitionRule{
				{To: "submitted", ExitRoles: []string{"applicant"}},
			}},
			{ID: "submitted", Kind: KindUserDecision, Next: []TransitionRule{
				{To: "document_review", ExitRoles: []string{"officer"}},
			}},
			{ID: "document_review", Kind: KindUserDecision, Next: []TransitionRule{
				{To: "approved", ExitRoles: []string{"officer"}},
				{To: "rejected", ExitRoles: []string{"officer"}},
				{To: "additional_info", ExitRoles: []string{"officer"}},
			}},
			{ID: "additional_info", Kind: KindUserDecision, Next: []TransitionRule{
				{To: "document_review", ExitRoles: []string{"applicant"}},
			}},
			{ID: "approved", Kind: KindTerminalSuccess},
			{ID: "rejected", Kind: KindTerminalFailure},
		},
	}
}

func TestValidate_AcceptsWellFormedDefinition(t *testing.T) {
	require.NoError(t, licenseApplication().Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProcessDefinition)
	}{
		{"missing name", func(d *ProcessDefinition) { d.Name = "" }},
		{"version below one", func(d *ProcessDefinition) { d.Version = 0 }},
		{"no steps", func(d *ProcessDefinition) { d.Steps = nil }},
		{"duplicate step id", func(d *ProcessDefinition) {
			d.Steps = append(d.Steps, StepDefinition{ID: "draft", Kind: KindUserDecision, Next: []TransitionRule{{To: "approved"}}})
		}},
		{"unknown kind", func(d *ProcessDefinition) { d.Steps[1].Kind = "service_task" }},
		{"no start step", func(d *ProcessDefinition) { d.Steps[0].Kind = KindUserDecision }},
		{"two start steps", func(d *ProcessDefinition) { d.Steps[1].Kind = KindStart }},
		{"terminal with outgoing edge", func(d *ProcessDefinition) {
			d.Steps[4].Next = []TransitionRule{{To: "draft"}}
		}},
		{"non-terminal without outgoing edge", func(d *ProcessDefinition) { d.Steps[3].Next = nil }},
		{"edge to undefined step", func(d *ProcessDefinition) {
			d.Steps[2].Next = append(d.Steps[2].Next, TransitionRule{To: "finalized"})
		}},
		{"duplicate edge target", func(d *ProcessDefinition) {
			d.Steps[2].Next = append(d.Steps[2].Next, TransitionRule{To: "approved"})
		}},
		{"auto advance on user decision", func(d *ProcessDefinition) { d.Steps[2].AutoAdvance = true }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := licenseApplication()
			tc.mutate(&def)
			err := def.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.Is(err, dErrors.CodeValidation), "want validation error, got %v", err)
		})
	}
}

// Publishing a definition whose step references an undefined step must fail,
// matching the "reviewed -> finalized" case from the permit modules.
func TestValidate_UndefinedReference(t *testing.T) {
	def := ProcessDefinition{
		Name:    "permit",
		Version: 1,
		Steps: []StepDefinition{
			{ID: "reviewed", Kind: KindStart, Next: []TransitionRule{{To: "finalized"}}},
		},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"finalized"`)
}

func TestValidate_UnreachableTerminal(t *testing.T) {
	// Terminal exists but only behind an edge that never leaves the cycle.
	def := ProcessDefinition{
		Name:    "census_return",
		Version: 1,
		Steps: []StepDefinition{
			{ID: "open", Kind: KindStart, Next: []TransitionRule{{To: "checking"}}},
			{ID: "checking", Kind: KindUserDecision, Next: []TransitionRule{{To: "open"}}},
			{ID: "closed", Kind: KindTerminalSuccess},
		},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestValidate_CyclesAreLegal(t *testing.T) {
	// document_review <-> additional_info is a legal cycle as long as a
	// terminal step stays reachable.
	require.NoError(t, licenseApplication().Validate())
}

func TestTransitionRuleAllows(t *testing.T) {
	rule := TransitionRule{To: "approved", ExitRoles: []string{"officer", "registrar"}}
	assert.True(t, rule.Allows("officer"))
	assert.False(t, rule.Allows("applicant"))

	open := TransitionRule{To: "submitted"}
	assert.True(t, open.Allows("anyone"), "empty exit roles admit any authenticated actor")
}
