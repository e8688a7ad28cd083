package store

import (
	"context"
	"strings"
	"time"

	"github.com/osr-alliance/backend-crm/storage"
)

func (s *store) ListSchedules(ctx context.Context, q *ScheduleQuery) ([]Schedule, int, error) {
	if q == nil {
		q = &ScheduleQuery{}
	}

	dates, err := s.scheduleDates(q)
	if err != nil {
		return nil, 0, err
	}

	opts := &storage.SelectOptions{
		Index:  SchedulesByDate,
		Values: dates,
		Search: q.Search,
		Offset: q.Offset,
		Limit:  q.Limit,
	}
	if q.Urgency != "" {
		opts.Where = map[string]string{"urgency": q.Urgency}
	}

	schedules := []Schedule{}
	total, err := s.store.SelectAll(ctx, &Schedule{}, &schedules, opts)
	if err != nil {
		return nil, 0, err
	}
	return schedules, total, nil
}

// AllSchedules returns every schedule regardless of date
func (s *store) AllSchedules(ctx context.Context) ([]Schedule, error) {
	schedules := []Schedule{}
	_, err := s.store.SelectAll(ctx, &Schedule{}, &schedules, nil)
	return schedules, err
}

// scheduleDates lists the calendar days a query covers
func (s *store) scheduleDates(q *ScheduleQuery) ([]string, error) {
	if q.Date != "" {
		d, err := ParseDate(q.Date)
		if err != nil {
			return nil, err
		}
		return []string{d}, nil
	}

	if q.StartDate == "" && q.EndDate == "" {
		return dateRange(s.now(), defaultScheduleWindow), nil
	}
	if q.StartDate == "" || q.EndDate == "" {
		return nil, invalid("start_date and end_date must be given together")
	}

	start, err := ParseDate(q.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(q.EndDate)
	if err != nil {
		return nil, err
	}

	from, _ := time.Parse(dateLayout, start)
	to, _ := time.Parse(dateLayout, end)
	if to.Before(from) {
		return nil, invalid("end_date must not be before start_date")
	}

	days := int(to.Sub(from).Hours()/24) + 1
	if days > maxScheduleRangeDays {
		return nil, invalid("date range cannot exceed %d days", maxScheduleRangeDays)
	}
	return dateRange(from, days), nil
}

func dateRange(from time.Time, days int) []string {
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, from.AddDate(0, 0, i).Format(dateLayout))
	}
	return dates
}

func (s *store) GetSchedule(ctx context.Context, id int64) (*Schedule, error) {
	sc := &Schedule{ID: id}
	if err := s.store.Select(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *store) CreateSchedule(ctx context.Context, in *ScheduleInput) (*Schedule, error) {
	if in == nil || in.Date == nil || *in.Date == "" || in.Item == nil || strings.TrimSpace(*in.Item) == "" {
		return nil, invalid("Date and item are required")
	}

	now := s.now()
	sc := &Schedule{
		TimeSlot:  DefaultTimeSlot,
		Status:    DefaultScheduleStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sc.apply(in); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *store) UpdateSchedule(ctx context.Context, id int64, in *ScheduleInput) (*Schedule, error) {
	if in == nil {
		in = &ScheduleInput{}
	}
	if in.Item != nil && strings.TrimSpace(*in.Item) == "" {
		return nil, invalid("Item cannot be empty")
	}
	if in.Date != nil && *in.Date == "" {
		return nil, invalid("Date cannot be empty")
	}

	sc, err := s.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := sc.apply(in); err != nil {
		return nil, err
	}
	sc.UpdatedAt = s.now()

	if err := s.store.Update(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *store) DeleteSchedule(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, &Schedule{ID: id})
}

func (sc *Schedule) apply(in *ScheduleInput) error {
	if in.Date != nil {
		d, err := ParseDate(*in.Date)
		if err != nil {
			return err
		}
		sc.Date = d
	}

	if in.TimeSlot != nil && *in.TimeSlot != "" {
		slot, err := time.Parse("15:04", strings.TrimSpace(*in.TimeSlot))
		if err != nil {
			return invalid("invalid time_slot %q; expected HH:MM", *in.TimeSlot)
		}
		// "9:00" and "09:00" are the same slot and must sort before "10:00"
		sc.TimeSlot = slot.Format("15:04")
	}

	if in.Item != nil {
		sc.Item = strings.TrimSpace(*in.Item)
	}
	if in.Status != nil && *in.Status != "" {
		sc.Status = *in.Status
	}
	setString(&sc.Urgency, in.Urgency)
	setString(&sc.Notes, in.Notes)
	if in.ContactID != nil {
		sc.ContactID = *in.ContactID
	}
	return nil
}

func (sc *Schedule) Input() *ScheduleInput {
	in := &ScheduleInput{
		Date:     &sc.Date,
		TimeSlot: &sc.TimeSlot,
		Item:     &sc.Item,
		Urgency:  &sc.Urgency,
		Status:   &sc.Status,
		Notes:    &sc.Notes,
	}
	if sc.ContactID != 0 {
		in.ContactID = &sc.ContactID
	}
	return in
}
