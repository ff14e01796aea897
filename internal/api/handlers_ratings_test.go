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

func TestRatingUpsertAndAggregates(t *testing.T) {
	api := setupTestAPI(t)

	_, authorCookie := api.registerAs(t, "ratedwriter", models.RoleAuthor)
	work := publishTestWork(t, api, authorCookie, "A Divisive Tale")

	api.registerUser(t, "fourstarfan")
	firstCookie := api.login(t, "fourstarfan")
	api.registerUser(t, "fivestarfan")
	secondCookie := api.login(t, "fivestarfan")

	rec := api.do(t, http.MethodPut, "/api/v1/works/"+work.ID+"/rating",
		models.RateWorkRequest{Score: 4}, firstCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first rating status = %d, want %d (body: %s)",
			rec.Code, http.StatusCreated, rec.Body.String())
	}

	rec = api.do(t, http.MethodPut, "/api/v1/works/"+work.ID+"/rating",
		models.RateWorkRequest{Score: 5, Review: "Worth every chapter."}, secondCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second rating status = %d, want %d", rec.Code, http.StatusCreated)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID, nil, nil)
	var fetched models.Work
	decodeData(t, rec, &fetched)
	if fetched.RatingCount != 2 {
		t.Errorf("RatingCount = %d, want 2", fetched.RatingCount)
	}

	// An upsert replaces the score without growing the count.
	rec = api.do(t, http.MethodPut, "/api/v1/works/"+work.ID+"/rating",
		models.RateWorkRequest{Score: 2}, firstCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-rating status = %d, want %d (body: %s)",
			rec.Code, http.StatusOK, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID, nil, nil)
	decodeData(t, rec, &fetched)
	if fetched.RatingCount != 2 {
		t.Errorf("RatingCount after re-rate = %d, want 2", fetched.RatingCount)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID+"/rating", nil, firstCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("GetMyRating status = %d", rec.Code)
	}
	var mine models.Rating
	decodeData(t, rec, &mine)
	if mine.Score != 2 {
		t.Errorf("my score = %d, want 2", mine.Score)
	}

	rec = api.do(t, http.MethodDelete, "/api/v1/works/"+work.ID+"/rating", nil, firstCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("DeleteRating status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID, nil, nil)
	decodeData(t, rec, &fetched)
	if fetched.RatingCount != 1 {
		t.Errorf("RatingCount after delete = %d, want 1", fetched.RatingCount)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID+"/rating", nil, firstCookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GetMyRating after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRatingValidation(t *testing.T) {
	api := setupTestAPI(t)

	_, authorCookie := api.registerAs(t, "boundswriter", models.RoleAuthor)
	published := publishTestWork(t, api, authorCookie, "Within Bounds")
	draft := createTestWork(t, api, authorCookie, "Out of Bounds")

	api.registerUser(t, "scorekeeper")
	readerCookie := api.login(t, "scorekeeper")

	for _, score := range []int{0, 6} {
		rec := api.do(t, http.MethodPut, "/api/v1/works/"+published.ID+"/rating",
			models.RateWorkRequest{Score: score}, readerCookie)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("score %d status = %d, want %d", score, rec.Code, http.StatusBadRequest)
		}
		env := decodeEnvelope(t, rec)
		if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("score %d error = %+v, want VALIDATION_ERROR", score, env.Error)
		}
	}

	// A draft is invisible to readers, rating it is a 404.
	rec := api.do(t, http.MethodPut, "/api/v1/works/"+draft.ID+"/rating",
		models.RateWorkRequest{Score: 3}, readerCookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("rating a draft status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRateOwnWorkRejected(t *testing.T) {
	api := setupTestAPI(t)

	_, authorCookie := api.registerAs(t, "selfscorer", models.RoleAuthor)
	work := publishTestWork(t, api, authorCookie, "My Own Favorite")

	rec := api.do(t, http.MethodPut, "/api/v1/works/"+work.ID+"/rating",
		models.RateWorkRequest{Score: 5, Review: "Flawless."}, authorCookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("self-rating status = %d, want %d (body: %s)",
			rec.Code, http.StatusConflict, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Errorf("self-rating error = %+v, want CONFLICT", env.Error)
	}

	// Nothing persisted, no aggregate drift.
	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID, nil, nil)
	var fetched models.Work
	decodeData(t, rec, &fetched)
	if fetched.RatingCount != 0 {
		t.Errorf("RatingCount = %d after rejected self-rating, want 0", fetched.RatingCount)
	}
	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID+"/rating", nil, authorCookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GetMyRating after rejection status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListReviewsFiltersScoreOnly(t *testing.T) {
	api := setupTestAPI(t)

	_, authorCookie := api.registerAs(t, "reviewedwriter", models.RoleAuthor)
	work := publishTestWork(t, api, authorCookie, "Much Discussed")

	api.registerUser(t, "wordyreader")
	wordyCookie := api.login(t, "wordyreader")
	api.registerUser(t, "tersereader")
	terseCookie := api.login(t, "tersereader")

	rec := api.do(t, http.MethodPut, "/api/v1/works/"+work.ID+"/rating",
		models.RateWorkRequest{Score: 5, Review: "Couldn't put it down."}, wordyCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("review rating status = %d", rec.Code)
	}
	rec = api.do(t, http.MethodPut, "/api/v1/works/"+work.ID+"/rating",
		models.RateWorkRequest{Score: 3}, terseCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("score-only rating status = %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/works/"+work.ID+"/ratings", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ListReviews status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var list models.RatingListResponse
	decodeData(t, rec, &list)
	if len(list.Ratings) != 1 {
		t.Fatalf("reviews = %d, want 1 (score-only ratings are not reviews)", len(list.Ratings))
	}
	if list.Ratings[0].Username != "wordyreader" {
		t.Errorf("review username = %s, want wordyreader", list.Ratings[0].Username)
	}
	if list.Ratings[0].Review == "" {
		t.Error("review text should be present")
	}
}
