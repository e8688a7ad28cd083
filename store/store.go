package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/osr-alliance/backend-crm/storage"
	"github.com/sirupsen/logrus"
)

const (
	DefaultContactLimit = 50

	DefaultTimeSlot       = "09:00"
	DefaultScheduleStatus = "pending"
	DefaultProjectStatus  = "planning"
	DefaultStage          = "lead"

	// days covered by a schedule listing without dates, today included
	defaultScheduleWindow = 7
	maxScheduleRangeDays  = 366
)

var (
	// ErrNotFound is storage.ErrNotFound so callers can match either
	ErrNotFound = storage.ErrNotFound

	// ErrConflict means a write kept losing to concurrent writers of the same record
	ErrConflict = storage.ErrConflict
)

// ValidationError is a bad request; Error() is safe to show to the caller
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type Store interface {
	ListContacts(ctx context.Context, q *ContactQuery) ([]Contact, int, error)
	GetContact(ctx context.Context, id int64) (*Contact, error)
	CreateContact(ctx context.Context, in *ContactInput) (*Contact, error)
	UpdateContact(ctx context.Context, id int64, in *ContactInput) (*Contact, error)
	DeleteContact(ctx context.Context, id int64) error

	ListSchedules(ctx context.Context, q *ScheduleQuery) ([]Schedule, int, error)
	AllSchedules(ctx context.Context) ([]Schedule, error)
	GetSchedule(ctx context.Context, id int64) (*Schedule, error)
	CreateSchedule(ctx context.Context, in *ScheduleInput) (*Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, in *ScheduleInput) (*Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error

	ListProjects(ctx context.Context, q *ProjectQuery) ([]Project, int, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	CreateProject(ctx context.Context, in *ProjectInput) (*Project, error)
	UpdateProject(ctx context.Context, id int64, in *ProjectInput) (*Project, error)
	DeleteProject(ctx context.Context, id int64) error

	ListOpportunities(ctx context.Context, q *OpportunityQuery) ([]Opportunity, int, error)
	GetOpportunity(ctx context.Context, id int64) (*Opportunity, error)
	CreateOpportunity(ctx context.Context, in *OpportunityInput) (*Opportunity, error)
	UpdateOpportunity(ctx context.Context, id int64, in *OpportunityInput) (*Opportunity, error)
	DeleteOpportunity(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
}

type store struct {
	store storage.Storage
	now   func() time.Time
}

type Config struct {
	Redis    *redis.Client
	Debugger bool          // storage debug logging
	Logger   *logrus.Entry // optional
	Now      func() time.Time
}

func New(conf *Config) (Store, error) {
	if conf == nil {
		return nil, errors.New("store: config is required")
	}

	// instantiate the storage
	s, err := storage.New(&storage.Config{
		Redis:    conf.Redis,
		Tables:   tables(),
		Debugger: conf.Debugger,
		Logger:   conf.Logger,
	})
	if err != nil {
		return nil, err
	}

	now := conf.Now
	if now == nil {
		now = time.Now
	}

	return &store{
		store: s,
		now:   func() time.Time { return now().UTC() },
	}, nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the UTC calendar date
func ParseDate(value string) (string, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.Format(dateLayout), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "", invalid("invalid date %q; expected YYYY-MM-DD", value)
	}
	return t.UTC().Format(dateLayout), nil
}

const dateLayout = "2006-01-02"

// optionalDate normalises a date that may be cleared with an empty string
func optionalDate(field string, value *string) (string, error) {
	if value == nil || *value == "" {
		return "", nil
	}
	d, err := ParseDate(*value)
	if err != nil {
		return "", invalid("%s: %s", field, err)
	}
	return d, nil
}

// uniqueStrings drops blanks and repeats but keeps the first-seen order
func uniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
