package store

import (
	"context"
	"strings"

	"github.com/osr-alliance/backend-crm/storage"
)

func (s *store) ListOpportunities(ctx context.Context, q *OpportunityQuery) ([]Opportunity, int, error) {
	if q == nil {
		q = &OpportunityQuery{}
	}

	opts := &storage.SelectOptions{
		Search: q.Search,
		Offset: q.Offset,
		Limit:  q.Limit,
	}
	if q.Stage != "" {
		opts.Index, opts.Values = OpportunitiesByStage, []string{q.Stage}
	}

	opportunities := []Opportunity{}
	total, err := s.store.SelectAll(ctx, &Opportunity{}, &opportunities, opts)
	if err != nil {
		return nil, 0, err
	}
	for i := range opportunities {
		opportunities[i].Tags = nonNil(opportunities[i].Tags)
	}
	return opportunities, total, nil
}

func (s *store) GetOpportunity(ctx context.Context, id int64) (*Opportunity, error) {
	o := &Opportunity{ID: id}
	if err := s.store.Select(ctx, o); err != nil {
		return nil, err
	}
	o.Tags = nonNil(o.Tags)
	return o, nil
}

func (s *store) CreateOpportunity(ctx context.Context, in *OpportunityInput) (*Opportunity, error) {
	if in == nil || in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("Title is required")
	}

	now := s.now()
	o := &Opportunity{Stage: DefaultStage, CreatedAt: now, UpdatedAt: now}
	if err := o.apply(in); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, o); err != nil {
		return nil, err
	}
	o.Tags = nonNil(o.Tags)
	return o, nil
}

func (s *store) UpdateOpportunity(ctx context.Context, id int64, in *OpportunityInput) (*Opportunity, error) {
	if in == nil {
		in = &OpportunityInput{}
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("Title cannot be empty")
	}

	o, err := s.GetOpportunity(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := o.apply(in); err != nil {
		return nil, err
	}
	o.UpdatedAt = s.now()

	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *store) DeleteOpportunity(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, &Opportunity{ID: id})
}

func (o *Opportunity) apply(in *OpportunityInput) error {
	if in.Probability != nil && (*in.Probability < 0 || *in.Probability > 100) {
		return invalid("probability must be between 0 and 100")
	}
	if in.Amount != nil && *in.Amount < 0 {
		return invalid("amount cannot be negative")
	}
	if in.ExpectedCloseDate != nil {
		d, err := optionalDate("expected_close_date", in.ExpectedCloseDate)
		if err != nil {
			return err
		}
		o.ExpectedCloseDate = d
	}

	if in.Title != nil {
		o.Title = strings.TrimSpace(*in.Title)
	}
	if in.Stage != nil && *in.Stage != "" {
		o.Stage = *in.Stage
	}
	setString(&o.Company, in.Company)
	setString(&o.Notes, in.Notes)
	if in.ContactID != nil {
		o.ContactID = *in.ContactID
	}
	if in.Amount != nil {
		o.Amount = *in.Amount
	}
	if in.Probability != nil {
		o.Probability = *in.Probability
	}
	if in.Tags != nil {
		o.Tags = uniqueStrings(in.Tags)
	}
	return nil
}

func (o *Opportunity) Input() *OpportunityInput {
	in := &OpportunityInput{
		Title:             &o.Title,
		Company:           &o.Company,
		Stage:             &o.Stage,
		Amount:            &o.Amount,
		Probability:       &o.Probability,
		ExpectedCloseDate: &o.ExpectedCloseDate,
		Notes:             &o.Notes,
		Tags:              nonNil(o.Tags),
	}
	if o.ContactID != 0 {
		in.ContactID = &o.ContactID
	}
	return in
}
