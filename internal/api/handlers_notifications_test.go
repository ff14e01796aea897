// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paperbound/paperbound/internal/models"
)

// seedNotification writes an inbox row directly; event fan-out has its
// own tests.
func seedNotification(t *testing.T, api *testAPI, userID, kind string) models.Notification {
	t.Helper()

	n := models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      kind,
		Payload:   `{"work_title":"Seeded"}`,
		CreatedAt: time.Now().UTC(),
	}
	if err := api.db.CreateNotification(context.Background(), &n); err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	return n
}

func TestNotificationInbox(t *testing.T) {
	api := setupTestAPI(t)

	userID := api.registerUser(t, "inboxowner")
	cookie := api.login(t, "inboxowner")

	first := seedNotification(t, api, userID, models.NotificationChapterPublished)
	seedNotification(t, api, userID, models.NotificationWorkRated)

	rec := api.do(t, http.MethodGet, "/api/v1/me/notifications", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("ListNotifications status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var inbox models.NotificationListResponse
	decodeData(t, rec, &inbox)
	if len(inbox.Notifications) != 2 {
		t.Fatalf("inbox has %d notifications, want 2", len(inbox.Notifications))
	}
	if inbox.UnreadCount != 2 {
		t.Errorf("UnreadCount = %d, want 2", inbox.UnreadCount)
	}

	// Mark one read by id, the rest stays unread.
	rec = api.do(t, http.MethodPost, "/api/v1/me/notifications/read",
		models.MarkNotificationsReadRequest{IDs: []string{first.ID}}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("MarkNotificationsRead status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var marked map[string]int
	decodeData(t, rec, &marked)
	if marked["marked_read"] != 1 {
		t.Errorf("marked_read = %d, want 1", marked["marked_read"])
	}

	rec = api.do(t, http.MethodGet, "/api/v1/me/notifications?unread=true", nil, cookie)
	decodeData(t, rec, &inbox)
	if len(inbox.Notifications) != 1 {
		t.Fatalf("unread filter has %d notifications, want 1", len(inbox.Notifications))
	}
	if inbox.Notifications[0].ID == first.ID {
		t.Error("the read notification should not appear in the unread filter")
	}

	// An empty body marks the whole inbox read.
	rec = api.do(t, http.MethodPost, "/api/v1/me/notifications/read", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark-all status = %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/me/notifications", nil, cookie)
	decodeData(t, rec, &inbox)
	if inbox.UnreadCount != 0 {
		t.Errorf("UnreadCount after mark-all = %d, want 0", inbox.UnreadCount)
	}
}

func TestNotificationDeleteScopedToOwner(t *testing.T) {
	api := setupTestAPI(t)

	ownerID := api.registerUser(t, "inboxholder")
	ownerCookie := api.login(t, "inboxholder")
	api.registerUser(t, "inboxsnoop")
	snoopCookie := api.login(t, "inboxsnoop")

	n := seedNotification(t, api, ownerID, models.NotificationDigest)

	rec := api.do(t, http.MethodDelete, "/api/v1/me/notifications/"+n.ID, nil, snoopCookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = api.do(t, http.MethodDelete, "/api/v1/me/notifications/"+n.ID, nil, ownerCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	var inbox models.NotificationListResponse
	rec = api.do(t, http.MethodGet, "/api/v1/me/notifications", nil, ownerCookie)
	decodeData(t, rec, &inbox)
	if len(inbox.Notifications) != 0 {
		t.Errorf("inbox has %d notifications after delete, want 0", len(inbox.Notifications))
	}
}
