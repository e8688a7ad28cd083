package api

import (
	"net/http"

	"github.com/osr-alliance/backend-crm/store"
)

type projects struct {
	*server
}

type projectResponse struct {
	Project *store.Project `json:"project"`
}

type projectsResponse struct {
	Projects []store.Project `json:"projects"`
	Total    int             `json:"total"`
}

func (p *projects) List(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := paging(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "offset and limit must be non-negative integers")
		return
	}

	q := r.URL.Query()
	list, total, err := p.store.ListProjects(r.Context(), &store.ProjectQuery{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		p.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, &projectsResponse{Projects: list, Total: total})
}

func (p *projects) Create(w http.ResponseWriter, r *http.Request) {
	in := &store.ProjectInput{}
	if err := decode(r, w, in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	project, err := p.store.CreateProject(r.Context(), in)
	if err != nil {
		p.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, &projectResponse{Project: project})
}

func (p *projects) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Project ID is required")
		return
	}

	in := &store.ProjectInput{}
	if err := decode(r, w, in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	project, err := p.store.UpdateProject(r.Context(), id, in)
	if err != nil {
		p.fail(w, r, err, "Project not found")
		return
	}

	writeJSON(w, http.StatusOK, &projectResponse{Project: project})
}

func (p *projects) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Project ID is required")
		return
	}

	if err := p.store.DeleteProject(r.Context(), id); err != nil {
		p.fail(w, r, err, "Project not found")
		return
	}

	writeJSON(w, http.StatusOK, &messageResponse{Message: "Project deleted successfully"})
}
