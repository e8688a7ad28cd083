package api

import (
	"net/http"

	"github.com/osr-alliance/backend-crm/store"
)

type opportunities struct {
	*server
}

type opportunityResponse struct {
	Opportunity *store.Opportunity `json:"opportunity"`
}

type opportunitiesResponse struct {
	Opportunities []store.Opportunity `json:"opportunities"`
	Total         int                 `json:"total"`
}

func (o *opportunities) List(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := paging(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "offset and limit must be non-negative integers")
		return
	}

	q := r.URL.Query()
	list, total, err := o.store.ListOpportunities(r.Context(), &store.OpportunityQuery{
		Search: q.Get("search"),
		Stage:  q.Get("stage"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		o.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, &opportunitiesResponse{Opportunities: list, Total: total})
}

func (o *opportunities) Create(w http.ResponseWriter, r *http.Request) {
	in := &store.OpportunityInput{}
	if err := decode(r, w, in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	opportunity, err := o.store.CreateOpportunity(r.Context(), in)
	if err != nil {
		o.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, &opportunityResponse{Opportunity: opportunity})
}

func (o *opportunities) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Opportunity ID is required")
		return
	}

	in := &store.OpportunityInput{}
	if err := decode(r, w, in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	opportunity, err := o.store.UpdateOpportunity(r.Context(), id, in)
	if err != nil {
		o.fail(w, r, err, "Opportunity not found")
		return
	}

	writeJSON(w, http.StatusOK, &opportunityResponse{Opportunity: opportunity})
}

func (o *opportunities) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Opportunity ID is required")
		return
	}

	if err := o.store.DeleteOpportunity(r.Context(), id); err != nil {
		o.fail(w, r, err, "Opportunity not found")
		return
	}

	writeJSON(w, http.StatusOK, &messageResponse{Message: "Opportunity deleted successfully"})
}
