// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paperbound/paperbound/internal/models"
)

// pngBytes is a minimal PNG signature padded so DetectContentType sees
// image/png.
var pngBytes = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)

// doUpload posts a multipart body with one or more files under the given
// field name.
func doUpload(t *testing.T, api *testAPI, path, field string, count int, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i := 0; i < count; i++ {
		part, err := mw.CreateFormFile(field, "upload.png")
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := part.Write(pngBytes); err != nil {
			t.Fatalf("writing upload body failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	return rec
}

func TestCoverUploadAndServe(t *testing.T) {
	api := setupTestAPI(t)

	_, authorCookie := api.registerAs(t, "coverartist", models.RoleAuthor)
	work := createTestWork(t, api, authorCookie, "Judged by the Cover")

	rec := doUpload(t, api, "/api/v1/works/"+work.ID+"/cover", "cover", 1, authorCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("UploadCover status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var updated models.Work
	decodeData(t, rec, &updated)
	if updated.CoverPath == "" {
		t.Fatal("CoverPath should be set after upload")
	}

	rec = api.do(t, http.MethodGet, "/media/"+updated.CoverPath, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ServeMedia status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %s, want image/png", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=31536000, immutable" {
		t.Errorf("Cache-Control = %s", cc)
	}
	if !bytes.Equal(rec.Body.Bytes(), pngBytes) {
		t.Error("served bytes differ from the upload")
	}

	// Wrong field name.
	rec = doUpload(t, api, "/api/v1/works/"+work.ID+"/cover", "image", 1, authorCookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong field status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// Another author cannot replace the cover.
	_, rivalCookie := api.registerAs(t, "coverrival", models.RoleAuthor)
	rec = doUpload(t, api, "/api/v1/works/"+work.ID+"/cover", "cover", 1, rivalCookie)
	if rec.Code != http.StatusForbidden && rec.Code != http.StatusNotFound {
		t.Errorf("rival upload status = %d, want 403 or 404", rec.Code)
	}
}

func TestServeMediaMissing(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodGet, "/media/ab/ab12cd34.png", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing media status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	// Traversal never reaches the filesystem.
	rec = api.do(t, http.MethodGet, "/media/..%2f..%2fetc%2fpasswd", nil, nil)
	if rec.Code == http.StatusOK {
		t.Errorf("traversal path unexpectedly served content")
	}
}

func TestComicPageUpload(t *testing.T) {
	api := setupTestAPI(t)

	_, authorCookie := api.registerAs(t, "panelist", models.RoleAuthor)

	rec := api.do(t, http.MethodPost, "/api/v1/works", models.CreateWorkRequest{
		Title: "Panel Parade",
		Kind:  models.WorkKindComic,
	}, authorCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("CreateWork status = %d", rec.Code)
	}
	var comic models.Work
	decodeData(t, rec, &comic)

	rec = api.do(t, http.MethodPost, "/api/v1/works/"+comic.ID+"/chapters",
		models.CreateChapterRequest{Title: "Issue One"}, authorCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("CreateChapter status = %d", rec.Code)
	}
	var issue models.Chapter
	decodeData(t, rec, &issue)

	rec = doUpload(t, api, "/api/v1/chapters/"+issue.ID+"/pages", "pages", 2, authorCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("UploadPages status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var withPages models.Chapter
	decodeData(t, rec, &withPages)
	if len(withPages.Pages) != 2 {
		t.Errorf("chapter has %d pages, want 2", len(withPages.Pages))
	}
	// Identical bytes are content-addressed to the same path.
	if len(withPages.Pages) == 2 && withPages.Pages[0] != withPages.Pages[1] {
		t.Errorf("identical uploads stored at different paths: %v", withPages.Pages)
	}

	// Story chapters carry no pages.
	story := createTestWork(t, api, authorCookie, "Prose Only")
	rec = api.do(t, http.MethodPost, "/api/v1/works/"+story.ID+"/chapters",
		models.CreateChapterRequest{Title: "Chapter One", Body: "Words."}, authorCookie)
	var prose models.Chapter
	decodeData(t, rec, &prose)

	rec = doUpload(t, api, "/api/v1/chapters/"+prose.ID+"/pages", "pages", 1, authorCookie)
	if rec.Code != http.StatusConflict {
		t.Errorf("pages on story chapter status = %d, want %d", rec.Code, http.StatusConflict)
	}
}
