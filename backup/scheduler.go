package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Archiver stores an export; SnapshotStore implements it
type Archiver interface {
	Save(ctx context.Context, doc *Document) (int64, error)
}

// Scheduler runs snapshot jobs on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	archiver Archiver
	timeout  time.Duration
	log      *logrus.Entry
}

func NewScheduler(service *Service, archiver Archiver, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		service:  service,
		archiver: archiver,
		timeout:  time.Minute,
		log:      logrus.WithField("component", "backup"),
	}
}

// Schedule registers the snapshot job for a standard cron spec or a descriptor such as @daily
func (s *Scheduler) Schedule(spec string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.Snapshot(ctx); err != nil {
			s.log.WithError(err).Error("scheduled snapshot failed")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	return id, nil
}

// Snapshot exports and archives once
func (s *Scheduler) Snapshot(ctx context.Context) (int64, error) {
	doc, err := s.service.Export(ctx)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	id, err := s.archiver.Save(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}

	s.log.WithFields(logrus.Fields{"snapshot_id": id, "records": doc.Data.Count()}).Info("snapshot stored")
	return id, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
