// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"net/http"
	"testing"

	"github.com/paperbound/paperbound/internal/models"
)

func TestWorkLifecycle(t *testing.T) {
	api := setupTestAPI(t)
	_, authorCookie := api.registerAs(t, "serialist", models.RoleAuthor)

	// Draft creation.
	rec := api.do(t, http.MethodPost, "/api/v1/works", models.CreateWorkRequest{
		Title:   "The Lighthouse Archive",
		Kind:    models.WorkKindStory,
		Summary: "Letters from a keeper who never existed.",
		Genres:  []string{"mystery"},
		Tags:    []string{"epistolary"},
	}, authorCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("CreateWork status = %d, want %d (body: %s)",
			rec.Code, http.StatusCreated, rec.Body.String())
	}

	var work models.Work
	decodeData(t, rec, &work)
	if work.Status != models.WorkStatusDraft {
		t.Errorf("new work status = %q, want %q", work.Status, models.WorkStatusDraft)
	}
	if work.Slug == "" {
		t.Error("new work has no slug")
	}

	// Publishing an empty work is refused.
	rec = api.do(t, http.MethodPost, "/api/v1/works/"+work.ID+"/publish", nil, authorCookie)
	if rec.Code != http.StatusConflict {
		t.Errorf("empty publish status = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = api.do(t, http.MethodPost, "/api/v1/works/"+work.ID+"/chapters", models.CreateChapterRequest{
		Title: "First Letter",
		Body:  "The keeper's log begins.",
	}, authorCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("CreateChapter status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	// Drafts are invisible to everyone but the author.
	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("anonymous GET draft status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID, nil, authorCookie)
	if rec.Code != http.StatusOK {
		t.Errorf("author GET draft status = %d, want %d (body: %s)",
			rec.Code, http.StatusOK, rec.Body.String())
	}

	// Publish, then the work is public.
	rec = api.do(t, http.MethodPost, "/api/v1/works/"+work.ID+"/publish", nil, authorCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("PublishWork status = %d, want %d (body: %s)",
			rec.Code, http.StatusOK, rec.Body.String())
	}

	var published models.Work
	decodeData(t, rec, &published)
	if published.Status != models.WorkStatusPublished {
		t.Errorf("published work status = %q, want %q",
			published.Status, models.WorkStatusPublished)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("anonymous GET published status = %d, want %d", rec.Code, http.StatusOK)
	}

	// Slug lookup resolves to the same work.
	rec = api.do(t, http.MethodGet, "/api/v1/works/slug/"+work.Slug, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GetWorkBySlug status = %d, want %d", rec.Code, http.StatusOK)
	}
	var bySlug models.Work
	decodeData(t, rec, &bySlug)
	if bySlug.ID != work.ID {
		t.Errorf("slug lookup returned work %s, want %s", bySlug.ID, work.ID)
	}
}

func TestCreateWorkValidation(t *testing.T) {
	api := setupTestAPI(t)
	_, authorCookie := api.registerAs(t, "strictauthor", models.RoleAuthor)

	tests := []struct {
		name string
		req  models.CreateWorkRequest
	}{
		{"missing title", models.CreateWorkRequest{Kind: models.WorkKindStory}},
		{"missing kind", models.CreateWorkRequest{Title: "Untitled"}},
		{"unknown kind", models.CreateWorkRequest{Title: "Untitled", Kind: "poem"}},
		{"bad tier", models.CreateWorkRequest{Title: "Untitled", Kind: models.WorkKindStory, MinTier: "platinum"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/v1/works", tt.req, authorCookie)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d (body: %s)",
					rec.Code, http.StatusBadRequest, rec.Body.String())
			}
			env := decodeEnvelope(t, rec)
			if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("error = %+v, want code VALIDATION_ERROR", env.Error)
			}
		})
	}
}

func TestWorkOwnership(t *testing.T) {
	api := setupTestAPI(t)
	_, ownerCookie := api.registerAs(t, "workowner", models.RoleAuthor)
	_, rivalCookie := api.registerAs(t, "workrival", models.RoleAuthor)

	rec := api.do(t, http.MethodPost, "/api/v1/works", models.CreateWorkRequest{
		Title: "Private Draft",
		Kind:  models.WorkKindStory,
	}, ownerCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("CreateWork status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var work models.Work
	decodeData(t, rec, &work)

	// Another author cannot publish or delete someone else's work.
	rec = api.do(t, http.MethodPost, "/api/v1/works/"+work.ID+"/publish", nil, rivalCookie)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusForbidden {
		t.Errorf("rival publish status = %d, want 403 or 404", rec.Code)
	}

	rec = api.do(t, http.MethodDelete, "/api/v1/works/"+work.ID, nil, rivalCookie)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusForbidden {
		t.Errorf("rival delete status = %d, want 403 or 404", rec.Code)
	}

	// The owner still sees an intact draft.
	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID, nil, ownerCookie)
	if rec.Code != http.StatusOK {
		t.Errorf("owner GET status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestBrowsePaginationClamp(t *testing.T) {
	api := setupTestAPI(t)

	// Absurd limits are clamped rather than rejected.
	rec := api.do(t, http.MethodGet, "/api/v1/works?limit=100000&offset=-5", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("browse status = %d, want %d (body: %s)",
			rec.Code, http.StatusOK, rec.Body.String())
	}

	var list models.WorkListResponse
	decodeData(t, rec, &list)
	if list.Pagination.Limit != 100 {
		t.Errorf("limit = %d, want clamped to 100", list.Pagination.Limit)
	}
	if list.Pagination.Offset != 0 {
		t.Errorf("offset = %d, want 0", list.Pagination.Offset)
	}
}
