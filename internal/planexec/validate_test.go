package planexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/querymind/internal/model"
)

func step(n int) *int { return &n }

func TestValidatePlan_EmptyPlanRejected(t *testing.T) {
	err := ValidatePlan(nil)
	assert.Error(t, err)
}

func TestValidatePlan_NoStepsIsValid(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", SQL: "SELECT 1"},
		{Kind: model.RequestKindSQLQuery, SourceID: "2", SQL: "SELECT 2"},
	})
	require.NoError(t, err)
}

func TestValidatePlan_MixedStepAndNoStepRejected(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(1), SQL: "SELECT 1"},
		{Kind: model.RequestKindSQLQuery, SourceID: "1", SQL: "SELECT 2"},
	})
	assert.Error(t, err)
}

func TestValidatePlan_StepSequenceMustBeContiguousFromOne(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(1), SQL: "SELECT 1"},
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(3), SQL: "SELECT 2"},
	})
	assert.Error(t, err)
}

func TestValidatePlan_ValidStepSequence(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(1), SQL: "SELECT id FROM users", OutputAs: "$ids"},
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(2), DependsOn: step(1), SQL: "SELECT * FROM orders WHERE user_id IN ($ids)"},
	})
	require.NoError(t, err)
}

func TestValidatePlan_DependsOnMustReferenceSmallerStep(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(1), DependsOn: step(2), SQL: "SELECT 1"},
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(2), SQL: "SELECT 2"},
	})
	assert.Error(t, err)
}

func TestValidatePlan_DependsOnNonexistentStepRejected(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(1), SQL: "SELECT 1"},
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(2), DependsOn: step(5), SQL: "SELECT 2"},
	})
	assert.Error(t, err)
}

func TestValidatePlan_OutputAsMustMatchPattern(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", SQL: "SELECT 1", OutputAs: "not-a-var"},
	})
	assert.Error(t, err)
}

func TestValidatePlan_DuplicateOutputAsRejected(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", SQL: "SELECT 1", OutputAs: "$ids"},
		{Kind: model.RequestKindSQLQuery, SourceID: "1", SQL: "SELECT 2", OutputAs: "$ids"},
	})
	assert.Error(t, err)
}

func TestValidatePlan_PlaceholderWithoutDeclaringAncestorRejected(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(1), SQL: "SELECT id FROM users"},
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(2), DependsOn: step(1), SQL: "SELECT * FROM orders WHERE user_id IN ($ids)"},
	})
	assert.Error(t, err)
}

func TestValidatePlan_PlaceholderFromNonParentAncestorStillValid(t *testing.T) {
	err := ValidatePlan([]model.DataRequest{
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(1), SQL: "SELECT id FROM users", OutputAs: "$ids"},
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(2), DependsOn: step(1), SQL: "SELECT 1", OutputAs: "$mid"},
		{Kind: model.RequestKindSQLQuery, SourceID: "1", Step: step(3), DependsOn: step(2), SQL: "SELECT * FROM orders WHERE user_id IN ($ids)"},
	})
	require.NoError(t, err)
}
