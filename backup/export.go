package backup

import (
	"context"
	"time"

	"github.com/osr-alliance/backend-crm/store"
	"golang.org/x/sync/errgroup"
)

// Version of the export document layout
const Version = "1.0"

// Document is the full export of the CRM
type Document struct {
	ExportDate time.Time `json:"export_date"`
	Version    string    `json:"version"`
	Data       Data      `json:"data"`
}

type Data struct {
	Contacts      []store.Contact     `json:"contacts"`
	Schedules     []store.Schedule    `json:"schedules"`
	Projects      []store.Project     `json:"projects"`
	Opportunities []store.Opportunity `json:"opportunities"`
}

// Count is the number of records across all entity types
func (d *Data) Count() int {
	return len(d.Contacts) + len(d.Schedules) + len(d.Projects) + len(d.Opportunities)
}

type Service struct {
	store store.Store
	now   func() time.Time
}

func New(s store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: s, now: now}
}

// Export reads every entity type concurrently
func (s *Service) Export(ctx context.Context) (*Document, error) {
	doc := &Document{
		ExportDate: s.now().UTC(),
		Version:    Version,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		doc.Data.Contacts, _, err = s.store.ListContacts(ctx, &store.ContactQuery{Limit: -1})
		return err
	})
	g.Go(func() error {
		var err error
		doc.Data.Schedules, err = s.store.AllSchedules(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		doc.Data.Projects, _, err = s.store.ListProjects(ctx, nil)
		return err
	})
	g.Go(func() error {
		var err error
		doc.Data.Opportunities, _, err = s.store.ListOpportunities(ctx, nil)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return doc, nil
}
