// Package api provides HTTP handlers for the notification surface.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/api/shared"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/platform/logger"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// NotificationResponse represents the response data for a notification.
type NotificationResponse struct {
	ID          string         `json:"id"`
	Message     string         `json:"message"`
	Type        string         `json:"type"`
	Read        bool           `json:"read"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	SubjectKind string         `json:"subject_kind,omitempty"`
	SubjectID   string         `json:"subject_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NotificationListResponse wraps a page of notifications.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
}

// NotificationCountResponse reports the user's unread and total counts.
type NotificationCountResponse struct {
	Unread int64 `json:"unread"`
	Total  int64 `json:"total"`
}

// MarkAllReadResponse reports how many notifications a read-all touched.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// NotificationHandler handles notification-related HTTP requests.
type NotificationHandler struct {
	notifications store.NotificationStore
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications store.NotificationStore, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for NotificationHandler")
	}

	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// RegisterRoutes mounts the notification endpoints on the router.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.List)
	r.Get("/notifications/count", h.Count)
	r.Get("/notifications/{id}", h.Get)
	r.Post("/notifications/read-all", h.MarkAllRead)
	r.Post("/notifications/{id}/read", h.MarkRead)
	r.Post("/notifications/{id}/unread", h.MarkUnread)
}

// List handles GET /notifications requests. Supported query parameters:
// read (true/false), type, limit and offset.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	notifications, err := h.notifications.List(r.Context(), userID, filter)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to list notifications", err)
		return
	}

	response := NotificationListResponse{
		Notifications: make([]NotificationResponse, 0, len(notifications)),
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
	for _, n := range notifications {
		response.Notifications = append(response.Notifications, notificationToResponse(n))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// Get handles GET /notifications/{id} requests. A notification is only
// visible to its recipient.
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	notificationID, err := parseNotificationID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.notifications.GetByID(r.Context(), notificationID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if n.UserID != userID {
		// Hide the row's existence from non-recipients.
		shared.RespondWithError(w, r, http.StatusNotFound, "Notification not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, notificationToResponse(n))
}

// MarkRead handles POST /notifications/{id}/read requests.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.markReadState(w, r, true)
}

// MarkUnread handles POST /notifications/{id}/unread requests.
func (h *NotificationHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	h.markReadState(w, r, false)
}

func (h *NotificationHandler) markReadState(w http.ResponseWriter, r *http.Request, read bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	notificationID, err := parseNotificationID(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if read {
		err = h.notifications.MarkRead(r.Context(), notificationID, userID)
	} else {
		err = h.notifications.MarkUnread(r.Context(), notificationID, userID)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	n, err := h.notifications.GetByID(r.Context(), notificationID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("notification read state updated",
		slog.String("notification_id", notificationID.String()),
		slog.Bool("read", read))
	shared.RespondWithJSON(w, r, http.StatusOK, notificationToResponse(n))
}

// MarkAllRead handles POST /notifications/read-all requests. The write is a
// single statement, so a burst of new notifications during the request never
// leaves a partially-read page.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	updated, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to mark notifications read", err)
		return
	}

	log.Debug("marked all notifications read",
		slog.String("user_id", userID.String()),
		slog.Int64("updated", updated))
	shared.RespondWithJSON(w, r, http.StatusOK, MarkAllReadResponse{Updated: updated})
}

// Count handles GET /notifications/count requests.
func (h *NotificationHandler) Count(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	unread, err := h.notifications.CountUnread(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to count notifications", err)
		return
	}
	total, err := h.notifications.CountTotal(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to count notifications", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NotificationCountResponse{Unread: unread, Total: total})
}

func parseNotificationID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("notification ID is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid notification ID format")
	}
	return id, nil
}

func parseListFilter(r *http.Request) (store.NotificationFilter, error) {
	filter := store.NotificationFilter{Limit: defaultListLimit}
	query := r.URL.Query()

	if raw := query.Get("read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid read filter: must be true or false")
		}
		filter.Read = &read
	}

	if raw := query.Get("type"); raw != "" {
		notificationType := domain.NotificationType(raw)
		if !notificationType.IsValid() {
			return filter, fmt.Errorf("invalid type filter")
		}
		filter.Type = &notificationType
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, fmt.Errorf("invalid limit: must be a positive integer")
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		filter.Limit = limit
	}

	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, fmt.Errorf("invalid offset: must be a non-negative integer")
		}
		filter.Offset = offset
	}

	return filter, nil
}

func notificationToResponse(n *domain.Notification) NotificationResponse {
	response := NotificationResponse{
		ID:        n.ID.String(),
		Message:   n.Message,
		Type:      string(n.Type),
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
	}
	if n.Subject != nil {
		response.SubjectKind = string(n.Subject.Kind)
		response.SubjectID = n.Subject.ID.String()
	}
	return response
}
