package store

import (
	"context"
	"strings"

	"github.com/osr-alliance/backend-crm/storage"
)

func (s *store) ListContacts(ctx context.Context, q *ContactQuery) ([]Contact, int, error) {
	if q == nil {
		q = &ContactQuery{}
	}

	opts := &storage.SelectOptions{
		Search: q.Search,
		Offset: q.Offset,
		Limit:  q.Limit,
		Where:  map[string]string{},
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultContactLimit
	}

	switch {
	case q.Relationship != "":
		opts.Index, opts.Values = ContactsByRelationship, []string{q.Relationship}
		if q.Company != "" {
			opts.Where["company"] = q.Company
		}
	case q.Company != "":
		opts.Index, opts.Values = ContactsByCompany, []string{q.Company}
	}

	contacts := []Contact{}
	total, err := s.store.SelectAll(ctx, &Contact{}, &contacts, opts)
	if err != nil {
		return nil, 0, err
	}
	for i := range contacts {
		contacts[i].normalize()
	}
	return contacts, total, nil
}

func (s *store) GetContact(ctx context.Context, id int64) (*Contact, error) {
	c := &Contact{ID: id}
	if err := s.store.Select(ctx, c); err != nil {
		return nil, err
	}
	c.normalize()
	return c, nil
}

func (s *store) CreateContact(ctx context.Context, in *ContactInput) (*Contact, error) {
	if in == nil || in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, invalid("Name is required")
	}

	now := s.now()
	c := &Contact{CreatedAt: now, UpdatedAt: now}
	c.apply(in)

	if err := s.store.Insert(ctx, c); err != nil {
		return nil, err
	}
	c.normalize()
	return c, nil
}

func (s *store) UpdateContact(ctx context.Context, id int64, in *ContactInput) (*Contact, error) {
	if in == nil {
		in = &ContactInput{}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, invalid("Name cannot be empty")
	}

	c, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}

	c.apply(in)
	c.UpdatedAt = s.now()

	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	c.normalize()
	return c, nil
}

func (s *store) DeleteContact(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, &Contact{ID: id})
}

func (c *Contact) apply(in *ContactInput) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	setString(&c.Company, in.Company)
	setString(&c.Position, in.Position)
	setString(&c.RelationshipLevel, in.RelationshipLevel)
	setString(&c.Phone, in.Phone)
	setString(&c.Email, in.Email)
	setString(&c.Notes, in.Notes)

	if in.InvestmentPreference != nil {
		c.InvestmentPreference = in.InvestmentPreference
	}
	if in.Tags != nil {
		c.Tags = uniqueStrings(in.Tags)
	}
}

func (c *Contact) normalize() {
	c.InvestmentPreference = nonNil(c.InvestmentPreference)
	c.Tags = nonNil(c.Tags)
}

// Input turns a stored contact back into a create request, e.g. for imports
func (c *Contact) Input() *ContactInput {
	return &ContactInput{
		Name:                 &c.Name,
		Company:              &c.Company,
		Position:             &c.Position,
		RelationshipLevel:    &c.RelationshipLevel,
		InvestmentPreference: nonNil(c.InvestmentPreference),
		Tags:                 nonNil(c.Tags),
		Phone:                &c.Phone,
		Email:                &c.Email,
		Notes:                &c.Notes,
	}
}
