package store

import (
	"context"
	"strings"

	"github.com/osr-alliance/backend-crm/storage"
)

func (s *store) ListProjects(ctx context.Context, q *ProjectQuery) ([]Project, int, error) {
	if q == nil {
		q = &ProjectQuery{}
	}

	opts := &storage.SelectOptions{
		Search: q.Search,
		Offset: q.Offset,
		Limit:  q.Limit,
	}
	if q.Status != "" {
		opts.Index, opts.Values = ProjectsByStatus, []string{q.Status}
	}

	projects := []Project{}
	total, err := s.store.SelectAll(ctx, &Project{}, &projects, opts)
	if err != nil {
		return nil, 0, err
	}
	for i := range projects {
		projects[i].Tags = nonNil(projects[i].Tags)
	}
	return projects, total, nil
}

func (s *store) GetProject(ctx context.Context, id int64) (*Project, error) {
	p := &Project{ID: id}
	if err := s.store.Select(ctx, p); err != nil {
		return nil, err
	}
	p.Tags = nonNil(p.Tags)
	return p, nil
}

func (s *store) CreateProject(ctx context.Context, in *ProjectInput) (*Project, error) {
	if in == nil || in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, invalid("Name is required")
	}

	now := s.now()
	p := &Project{Status: DefaultProjectStatus, CreatedAt: now, UpdatedAt: now}
	if err := p.apply(in); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, p); err != nil {
		return nil, err
	}
	p.Tags = nonNil(p.Tags)
	return p, nil
}

func (s *store) UpdateProject(ctx context.Context, id int64, in *ProjectInput) (*Project, error) {
	if in == nil {
		in = &ProjectInput{}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, invalid("Name cannot be empty")
	}

	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := p.apply(in); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()

	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *store) DeleteProject(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, &Project{ID: id})
}

func (p *Project) apply(in *ProjectInput) error {
	var err error
	if in.StartDate != nil {
		if p.StartDate, err = optionalDate("start_date", in.StartDate); err != nil {
			return err
		}
	}
	if in.DueDate != nil {
		if p.DueDate, err = optionalDate("due_date", in.DueDate); err != nil {
			return err
		}
	}
	if p.StartDate != "" && p.DueDate != "" && p.DueDate < p.StartDate {
		return invalid("due_date must not be before start_date")
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Status != nil && *in.Status != "" {
		p.Status = *in.Status
	}
	setString(&p.Description, in.Description)
	setString(&p.Owner, in.Owner)
	if in.Tags != nil {
		p.Tags = uniqueStrings(in.Tags)
	}
	return nil
}

func (p *Project) Input() *ProjectInput {
	return &ProjectInput{
		Name:        &p.Name,
		Description: &p.Description,
		Status:      &p.Status,
		Owner:       &p.Owner,
		StartDate:   &p.StartDate,
		DueDate:     &p.DueDate,
		Tags:        nonNil(p.Tags),
	}
}
