package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Result counts what happened to one entity type during an import
type Result struct {
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
	Errors  []RecordError `json:"errors,omitempty"`
}

// RecordError names the record (by its id in the document) that could not be imported
type RecordError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

type Report struct {
	Contacts      Result `json:"contacts"`
	Schedules     Result `json:"schedules"`
	Projects      Result `json:"projects"`
	Opportunities Result `json:"opportunities"`
}

func (r *Result) add(id int64, err error) {
	if err != nil {
		r.Failed++
		r.Errors = append(r.Errors, RecordError{ID: id, Error: err.Error()})
		return
	}
	r.Success++
}

// Decode reads an export document
func Decode(r io.Reader) (*Document, error) {
	doc := &Document{}
	if err := json.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("unsupported export version %q", doc.Version)
	}
	return doc, nil
}

/*
	Import re-creates every record of doc through the normal create path, so records get new ids and fresh
	timestamps. A record that fails is counted and the import carries on; only a cancelled context stops it.
*/
func (s *Service) Import(ctx context.Context, doc *Document) (*Report, error) {
	report := &Report{}

	for i := range doc.Data.Contacts {
		c := &doc.Data.Contacts[i]
		_, err := s.store.CreateContact(ctx, c.Input())
		report.Contacts.add(c.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for i := range doc.Data.Schedules {
		sc := &doc.Data.Schedules[i]
		_, err := s.store.CreateSchedule(ctx, sc.Input())
		report.Schedules.add(sc.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for i := range doc.Data.Projects {
		p := &doc.Data.Projects[i]
		_, err := s.store.CreateProject(ctx, p.Input())
		report.Projects.add(p.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for i := range doc.Data.Opportunities {
		o := &doc.Data.Opportunities[i]
		_, err := s.store.CreateOpportunity(ctx, o.Input())
		report.Opportunities.add(o.ID, err)
	}

	logrus.WithFields(logrus.Fields{
		"contacts":      report.Contacts.Success,
		"schedules":     report.Schedules.Success,
		"projects":      report.Projects.Success,
		"opportunities": report.Opportunities.Success,
		"failed":        report.Contacts.Failed + report.Schedules.Failed + report.Projects.Failed + report.Opportunities.Failed,
	}).Info("import finished")

	return report, ctx.Err()
}
