package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpportunities(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t)

	amount := 250000.5
	prob := 40
	o, err := s.CreateOpportunity(ctx, &OpportunityInput{
		Title:       strPtr("Seed round"),
		Company:     strPtr("Acme"),
		Amount:      &amount,
		Probability: &prob,
		Tags:        []string{"fintech"},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultStage, o.Stage)
	assert.Equal(t, "250000.5", mr.HGet("opportunity:1", "amount"))
	assert.Contains(t, members(t, mr, "opportunities:by_stage:lead"), "1")
	assert.Contains(t, members(t, mr, "opportunities:by_company:Acme"), "1")

	_, err = s.CreateOpportunity(ctx, &OpportunityInput{Title: strPtr("Bridge"), Notes: strPtr("intro via acme")})
	require.NoError(t, err)

	t.Run("stage change", func(t *testing.T) {
		updated, err := s.UpdateOpportunity(ctx, o.ID, &OpportunityInput{Stage: strPtr("won")})
		require.NoError(t, err)
		assert.Equal(t, amount, updated.Amount)
		assert.Equal(t, []string{"fintech"}, updated.Tags)

		opportunities, total, err := s.ListOpportunities(ctx, &OpportunityQuery{Stage: "won"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "Seed round", opportunities[0].Title)
		assert.NotContains(t, members(t, mr, "opportunities:by_stage:lead"), "1")
	})

	t.Run("search covers title, company and notes", func(t *testing.T) {
		_, total, err := s.ListOpportunities(ctx, &OpportunityQuery{Search: "ACME"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})

	t.Run("validation", func(t *testing.T) {
		bad := 101
		_, err := s.UpdateOpportunity(ctx, o.ID, &OpportunityInput{Probability: &bad})
		assert.True(t, IsValidation(err))

		_, err = s.CreateOpportunity(ctx, &OpportunityInput{Company: strPtr("x")})
		assert.True(t, IsValidation(err))

		_, err = s.UpdateOpportunity(ctx, 99, &OpportunityInput{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteOpportunity(ctx, o.ID))
		assert.False(t, mr.Exists("opportunity:1"))
		assert.NotContains(t, members(t, mr, "opportunities:by_company:Acme"), "1")
	})
}
