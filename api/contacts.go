package api

import (
	"net/http"

	"github.com/osr-alliance/backend-crm/store"
)

type contacts struct {
	*server
}

type contactResponse struct {
	Contact *store.Contact `json:"contact"`
}

type contactsResponse struct {
	Contacts []store.Contact `json:"contacts"`
	Total    int             `json:"total"`
}

func (c *contacts) List(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := paging(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "offset and limit must be non-negative integers")
		return
	}

	q := r.URL.Query()
	list, total, err := c.store.ListContacts(r.Context(), &store.ContactQuery{
		Search:       q.Get("search"),
		Relationship: q.Get("relationship"),
		Company:      q.Get("company"),
		Offset:       offset,
		Limit:        limit,
	})
	if err != nil {
		c.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, &contactsResponse{Contacts: list, Total: total})
}

func (c *contacts) Create(w http.ResponseWriter, r *http.Request) {
	in := &store.ContactInput{}
	if err := decode(r, w, in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	contact, err := c.store.CreateContact(r.Context(), in)
	if err != nil {
		c.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, &contactResponse{Contact: contact})
}

func (c *contacts) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Contact ID is required")
		return
	}

	in := &store.ContactInput{}
	if err := decode(r, w, in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	contact, err := c.store.UpdateContact(r.Context(), id, in)
	if err != nil {
		c.fail(w, r, err, "Contact not found")
		return
	}

	writeJSON(w, http.StatusOK, &contactResponse{Contact: contact})
}

func (c *contacts) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Contact ID is required")
		return
	}

	if err := c.store.DeleteContact(r.Context(), id); err != nil {
		c.fail(w, r, err, "Contact not found")
		return
	}

	writeJSON(w, http.StatusOK, &messageResponse{Message: "Contact deleted successfully"})
}
