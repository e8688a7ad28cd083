package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateContact(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t)

	t.Run("ids are unique and each contact is listed once", func(t *testing.T) {
		seen := map[int64]bool{}
		for _, name := range []string{"Ann", "Bo", "Cy"} {
			c, err := s.CreateContact(ctx, &ContactInput{Name: strPtr(name)})
			require.NoError(t, err)
			assert.False(t, seen[c.ID])
			seen[c.ID] = true
		}

		contacts, total, err := s.ListContacts(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, total)

		counts := map[int64]int{}
		for _, c := range contacts {
			counts[c.ID]++
		}
		for id := range seen {
			assert.Equal(t, 1, counts[id])
		}
	})

	t.Run("stores arrays as json and indexes company and relationship", func(t *testing.T) {
		c, err := s.CreateContact(ctx, &ContactInput{
			Name:                 strPtr("Dee"),
			Company:              strPtr("Acme"),
			RelationshipLevel:    strPtr("close"),
			InvestmentPreference: []string{"seed", "series-a"},
			Tags:                 []string{"vip", "vip", "asia"},
		})
		require.NoError(t, err)

		key := "contact:4"
		assert.Equal(t, int64(4), c.ID)
		assert.Equal(t, `["seed","series-a"]`, mr.HGet(key, "investment_preference"))
		assert.Equal(t, `["vip","asia"]`, mr.HGet(key, "tags"))
		assert.Equal(t, testNow.Format("2006-01-02T15:04:05Z07:00"), mr.HGet(key, "created_at"))
		assert.Contains(t, members(t, mr, "contacts:by_company:Acme"), "4")
		assert.Contains(t, members(t, mr, "contacts:by_relationship:close"), "4")
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := s.CreateContact(ctx, &ContactInput{Company: strPtr("Acme")})
		assert.True(t, IsValidation(err))

		_, err = s.CreateContact(ctx, &ContactInput{Name: strPtr("  ")})
		assert.True(t, IsValidation(err))
	})
}

func TestUpdateContact(t *testing.T) {
	ctx := context.Background()

	t.Run("company change moves the index membership", func(t *testing.T) {
		s, mr := setupStore(t)

		c, err := s.CreateContact(ctx, &ContactInput{Name: strPtr("Ann"), Company: strPtr("Acme"), Position: strPtr("CEO")})
		require.NoError(t, err)

		updated, err := s.UpdateContact(ctx, c.ID, &ContactInput{Company: strPtr("Globex")})
		require.NoError(t, err)

		assert.Equal(t, "Globex", updated.Company)
		assert.Equal(t, "CEO", updated.Position)
		assert.Equal(t, "Ann", updated.Name)
		assert.NotContains(t, members(t, mr, "contacts:by_company:Acme"), "1")
		assert.Contains(t, members(t, mr, "contacts:by_company:Globex"), "1")
	})

	t.Run("setting a relationship that was empty adds the index", func(t *testing.T) {
		s, mr := setupStore(t)

		c, err := s.CreateContact(ctx, &ContactInput{Name: strPtr("Ann")})
		require.NoError(t, err)

		_, err = s.UpdateContact(ctx, c.ID, &ContactInput{RelationshipLevel: strPtr("close")})
		require.NoError(t, err)
		assert.Contains(t, members(t, mr, "contacts:by_relationship:close"), "1")
	})

	t.Run("leaving a field out keeps its index", func(t *testing.T) {
		s, mr := setupStore(t)

		c, err := s.CreateContact(ctx, &ContactInput{Name: strPtr("Ann"), Company: strPtr("Acme")})
		require.NoError(t, err)

		_, err = s.UpdateContact(ctx, c.ID, &ContactInput{Notes: strPtr("met at expo")})
		require.NoError(t, err)
		assert.Contains(t, members(t, mr, "contacts:by_company:Acme"), "1")
	})

	t.Run("an empty array clears tags", func(t *testing.T) {
		s, mr := setupStore(t)

		c, err := s.CreateContact(ctx, &ContactInput{Name: strPtr("Ann"), Tags: []string{"a"}})
		require.NoError(t, err)

		updated, err := s.UpdateContact(ctx, c.ID, &ContactInput{Tags: []string{}})
		require.NoError(t, err)
		assert.Equal(t, []string{}, updated.Tags)
		assert.Equal(t, "", mr.HGet("contact:1", "tags"))
	})

	t.Run("unknown id", func(t *testing.T) {
		s, _ := setupStore(t)

		_, err := s.UpdateContact(ctx, 42, &ContactInput{Company: strPtr("Acme")})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("name cannot be blanked", func(t *testing.T) {
		s, _ := setupStore(t)

		c, err := s.CreateContact(ctx, &ContactInput{Name: strPtr("Ann")})
		require.NoError(t, err)

		_, err = s.UpdateContact(ctx, c.ID, &ContactInput{Name: strPtr("")})
		assert.True(t, IsValidation(err))
	})
}

func TestListContacts(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)

	for _, in := range []*ContactInput{
		{Name: strPtr("Ann"), Company: strPtr("ACME Inc"), RelationshipLevel: strPtr("close")},
		{Name: strPtr("Bo"), Company: strPtr("Globex"), Position: strPtr("acme liaison")},
		{Name: strPtr("Cy"), Company: strPtr("Initech"), RelationshipLevel: strPtr("close")},
		{Name: strPtr("acme bot")},
	} {
		_, err := s.CreateContact(ctx, in)
		require.NoError(t, err)
	}

	t.Run("search matches name, company or position", func(t *testing.T) {
		contacts, total, err := s.ListContacts(ctx, &ContactQuery{Search: "Acme"})
		require.NoError(t, err)
		assert.Equal(t, 3, total)

		names := []string{}
		for _, c := range contacts {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"Ann", "Bo", "acme bot"}, names)
	})

	t.Run("relationship", func(t *testing.T) {
		contacts, total, err := s.ListContacts(ctx, &ContactQuery{Relationship: "close"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, contacts, 2)
	})

	t.Run("relationship and company", func(t *testing.T) {
		contacts, total, err := s.ListContacts(ctx, &ContactQuery{Relationship: "close", Company: "Initech"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "Cy", contacts[0].Name)
	})

	t.Run("pagination", func(t *testing.T) {
		contacts, total, err := s.ListContacts(ctx, &ContactQuery{Offset: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, contacts, 2)
		assert.Equal(t, "Bo", contacts[0].Name)
		assert.Equal(t, "Cy", contacts[1].Name)
	})

	t.Run("arrays are never null", func(t *testing.T) {
		contacts, _, err := s.ListContacts(ctx, &ContactQuery{})
		require.NoError(t, err)
		for _, c := range contacts {
			assert.NotNil(t, c.Tags)
			assert.NotNil(t, c.InvestmentPreference)
		}
	})
}

func TestDeleteContact(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t)

	c, err := s.CreateContact(ctx, &ContactInput{Name: strPtr("Ann"), Company: strPtr("Acme"), RelationshipLevel: strPtr("close")})
	require.NoError(t, err)

	require.NoError(t, s.DeleteContact(ctx, c.ID))
	assert.False(t, mr.Exists("contact:1"))
	assert.NotContains(t, members(t, mr, "contacts:all"), "1")
	assert.NotContains(t, members(t, mr, "contacts:by_company:Acme"), "1")
	assert.NotContains(t, members(t, mr, "contacts:by_relationship:close"), "1")

	assert.ErrorIs(t, s.DeleteContact(ctx, c.ID), ErrNotFound)
	_, err = s.GetContact(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactsWithoutIDField(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t)

	// hashes written before ids were stored in them
	mr.HSet("contact:7", "name", "Ann", "company", "Acme")
	mr.SAdd("contacts:all", "7")
	mr.SAdd("contacts:by_company:Acme", "7")
	mr.Set("counters:contact_id", "7")

	list, _, err := s.ListContacts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(7), list[0].ID)

	updated, err := s.UpdateContact(ctx, 7, &ContactInput{Company: strPtr("Beta")})
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated.ID)
	assert.Nil(t, members(t, mr, "contacts:by_company:Acme"))
	assert.Equal(t, []string{"7"}, members(t, mr, "contacts:by_company:Beta"))
}
