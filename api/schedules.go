package api

import (
	"net/http"

	"github.com/osr-alliance/backend-crm/store"
)

type schedules struct {
	*server
}

type scheduleResponse struct {
	Schedule *store.Schedule `json:"schedule"`
}

type schedulesResponse struct {
	Schedules []store.Schedule `json:"schedules"`
	Total     int              `json:"total"`
}

func (s *schedules) List(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := paging(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "offset and limit must be non-negative integers")
		return
	}

	q := r.URL.Query()
	list, total, err := s.store.ListSchedules(r.Context(), &store.ScheduleQuery{
		Date:      q.Get("date"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Urgency:   q.Get("urgency"),
		Search:    q.Get("search"),
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, &schedulesResponse{Schedules: list, Total: total})
}

func (s *schedules) Create(w http.ResponseWriter, r *http.Request) {
	in := &store.ScheduleInput{}
	if err := decode(r, w, in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	schedule, err := s.store.CreateSchedule(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, &scheduleResponse{Schedule: schedule})
}

func (s *schedules) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Schedule ID is required")
		return
	}

	in := &store.ScheduleInput{}
	if err := decode(r, w, in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	schedule, err := s.store.UpdateSchedule(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err, "Schedule not found")
		return
	}

	writeJSON(w, http.StatusOK, &scheduleResponse{Schedule: schedule})
}

func (s *schedules) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Schedule ID is required")
		return
	}

	if err := s.store.DeleteSchedule(r.Context(), id); err != nil {
		s.fail(w, r, err, "Schedule not found")
		return
	}

	writeJSON(w, http.StatusOK, &messageResponse{Message: "Schedule deleted successfully"})
}
