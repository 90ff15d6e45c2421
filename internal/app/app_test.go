package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/config"
	"github.com/iliyamo/class-session-booking/internal/database/dbtest"
	"github.com/iliyamo/class-session-booking/internal/logger"
	"github.com/iliyamo/class-session-booking/internal/middleware"
	"github.com/iliyamo/class-session-booking/internal/model"
	"github.com/iliyamo/class-session-booking/internal/utils"
)

const secret = "test-secret"

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	t   *testing.T
	e   *echo.Echo
	now time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, now: baseTime}
	cfg := config.Config{
		Timezone:  "UTC",
		JWTSecret: secret,
		Notify: config.NotifyConfig{
			ReminderMaxMinutes: 60,
			Locale:             "en",
		},
	}
	a := New(cfg, dbtest.Open(t), nil, nil, clock.Func(func() time.Time { return h.now }), logger.NewDiscard())
	h.e = a.Echo
	return h
}

func (h *harness) token(user, role string) string {
	h.t.Helper()
	tok, err := utils.NewAccessToken(secret, user, role, time.Hour)
	require.NoError(h.t, err)
	return tok.Token
}

// do sends body (marshalled to JSON when not nil) as user and decodes the
// response into out when out is not nil.
func (h *harness) do(method, path, token string, body any, out any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

type errResp struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errResp {
	t.Helper()
	var e errResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

// scheduled creates a class and a session starting in `in` and returns it.
func (h *harness) scheduled(admin string, in time.Duration, capacity int) model.Session {
	h.t.Helper()
	var cls model.Class
	rec := h.do(http.MethodPost, "/v1/admin/classes", admin, map[string]any{"title": "Pilates"}, &cls)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())

	var s model.Session
	rec = h.do(http.MethodPost, "/v1/admin/sessions", admin, map[string]any{
		"class_id":  cls.ID,
		"starts_at": h.now.Add(in).Format(time.RFC3339),
		"capacity":  capacity,
	}, &s)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return s
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", "", nil, nil).Code)

	var checks map[string]string
	rec := h.do(http.MethodGet, "/readyz", "", nil, &checks)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "disabled", checks["redis"])
}

func TestAuthAndRoles(t *testing.T) {
	h := newHarness(t)
	member := h.token("u1", middleware.RoleMember)

	rec := h.do(http.MethodGet, "/v1/me/reservations", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", decodeErr(t, rec).Error.Code)

	rec = h.do(http.MethodPost, "/v1/admin/classes", member, map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/v1/unknown", member, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeErr(t, rec).Error.Code)
}

func TestReservationFlow(t *testing.T) {
	h := newHarness(t)
	admin := h.token("admin", middleware.RoleAdmin)
	u1, u2 := h.token("u1", middleware.RoleMember), h.token("u2", middleware.RoleMember)
	s := h.scheduled(admin, 2*time.Hour, 1)

	var res model.Reservation
	rec := h.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", u1, nil, &res)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.ReservationConfirmed, res.Status)

	rec = h.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", u1, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_RESERVATION", decodeErr(t, rec).Error.Code)

	rec = h.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", u2, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CAPACITY_EXCEEDED", decodeErr(t, rec).Error.Code)

	rec = h.do(http.MethodPost, "/v1/sessions/missing/reservations", u2, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var mine struct {
		Items []model.ReservationDetail `json:"items"`
	}
	rec = h.do(http.MethodGet, "/v1/me/reservations", u1, nil, &mine)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "Pilates", mine.Items[0].ClassTitle)

	rec = h.do(http.MethodDelete, "/v1/sessions/"+s.ID+"/reservations/me", u1, nil, &res)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ReservationCanceled, res.Status)

	var got model.Session
	h.do(http.MethodGet, "/v1/sessions/"+s.ID, u2, nil, &got)
	assert.Zero(t, got.ReservedCount)

	rec = h.do(http.MethodDelete, "/v1/sessions/"+s.ID+"/reservations/me", u1, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleValidation(t *testing.T) {
	h := newHarness(t)
	admin := h.token("admin", middleware.RoleAdmin)

	rec := h.do(http.MethodPost, "/v1/admin/sessions", admin, map[string]any{"starts_at": "2026-03-11T10:00:00Z"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeErr(t, rec)
	assert.Equal(t, "INVALID_ARGUMENT", e.Error.Code)
	assert.Equal(t, "class_id", e.Error.Field)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/sessions", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+admin)
	rec = httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/v1/admin/sessions", admin, map[string]any{
		"class_id":  "missing",
		"starts_at": h.now.Add(time.Hour).Format(time.RFC3339),
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s := h.scheduled(admin, 2*time.Hour, 5)
	rec = h.do(http.MethodPatch, "/v1/admin/sessions/"+s.ID, admin, map[string]any{"starts_at": "tomorrow"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "starts_at", decodeErr(t, rec).Error.Field)
}

func TestCancelNotifiesThroughTheInbox(t *testing.T) {
	h := newHarness(t)
	admin := h.token("admin", middleware.RoleAdmin)
	u1 := h.token("u1", middleware.RoleMember)
	s := h.scheduled(admin, 3*time.Hour, 5)
	h.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", u1, nil, nil)

	var canceled model.Session
	rec := h.do(http.MethodPost, "/v1/admin/sessions/"+s.ID+"/cancel", admin, map[string]any{"reason": "instructor sick"}, &canceled)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.SessionCanceled, canceled.Status)

	rec = h.do(http.MethodPost, "/v1/admin/sessions/"+s.ID+"/start", admin, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", decodeErr(t, rec).Error.Code)

	var unread struct {
		Items []model.Notification `json:"items"`
	}
	rec = h.do(http.MethodGet, "/v1/notifications/unread", u1, nil, &unread)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, unread.Items, 1)
	n := unread.Items[0]
	assert.Equal(t, model.NotificationSessionCanceled, n.Type)
	assert.Contains(t, n.Body, "instructor sick")

	other := h.token("u2", middleware.RoleMember)
	rec = h.do(http.MethodPatch, "/v1/notifications/"+n.ID+"/read", other, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var mark struct {
		Changed bool `json:"changed"`
	}
	rec = h.do(http.MethodPatch, "/v1/notifications/"+n.ID+"/read", u1, nil, &mark)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mark.Changed)
	h.do(http.MethodPatch, "/v1/notifications/"+n.ID+"/read", u1, nil, &mark)
	assert.False(t, mark.Changed)

	rec = h.do(http.MethodDelete, "/v1/notifications/"+n.ID, u1, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodDelete, "/v1/notifications/"+n.ID, u1, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var all struct {
		Items []model.Notification `json:"items"`
	}
	h.do(http.MethodGet, "/v1/notifications?limit=10", u1, nil, &all)
	assert.Empty(t, all.Items)

	rec = h.do(http.MethodGet, "/v1/notifications?limit=abc", u1, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemindersFromInboxRead(t *testing.T) {
	h := newHarness(t)
	admin := h.token("admin", middleware.RoleAdmin)
	u1 := h.token("u1", middleware.RoleMember)
	s := h.scheduled(admin, 2*time.Hour, 5)
	h.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", u1, nil, nil)

	var unread struct {
		Items []model.Notification `json:"items"`
	}
	h.do(http.MethodGet, "/v1/notifications/unread", u1, nil, &unread)
	assert.Empty(t, unread.Items)

	// 75 minutes later the session is 45 minutes away
	h.now = h.now.Add(75 * time.Minute)
	h.do(http.MethodGet, "/v1/notifications/unread", u1, nil, &unread)
	require.Len(t, unread.Items, 1)
	assert.Equal(t, model.NotificationSessionReminder, unread.Items[0].Type)

	var res struct {
		Reminders     int `json:"reminders"`
		Cancellations int `json:"cancellations"`
	}
	rec := h.do(http.MethodPost, "/v1/admin/notifications/process-pending", admin, nil, &res)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, res.Reminders)

	var count struct {
		Updated int64 `json:"updated"`
	}
	h.do(http.MethodPatch, "/v1/notifications/read-all", u1, nil, &count)
	assert.EqualValues(t, 1, count.Updated)
}

func TestSessionListAndRoster(t *testing.T) {
	h := newHarness(t)
	admin := h.token("admin", middleware.RoleAdmin)
	u1 := h.token("u1", middleware.RoleMember)
	s := h.scheduled(admin, 2*time.Hour, 5)
	h.do(http.MethodPost, "/v1/sessions/"+s.ID+"/reservations", u1, nil, nil)

	var list struct {
		Items []model.Session `json:"items"`
	}
	rec := h.do(http.MethodGet, "/v1/sessions?day=2026-03-10&status=SCHEDULED", u1, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list.Items, 1)

	h.do(http.MethodGet, "/v1/sessions?day=2026-03-11", u1, nil, &list)
	assert.Empty(t, list.Items)

	rec = h.do(http.MethodGet, "/v1/sessions?status=BOGUS", u1, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/v1/admin/sessions/"+s.ID+"/roster.xlsx", u1, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/v1/admin/sessions/"+s.ID+"/roster.xlsx", admin, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "roster-"+s.ID+".xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows(wb.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "u1", rows[1][1])
}

func TestClassCatalogue(t *testing.T) {
	h := newHarness(t)
	admin := h.token("admin", middleware.RoleAdmin)
	u1 := h.token("u1", middleware.RoleMember)

	rec := h.do(http.MethodPost, "/v1/admin/classes", admin, map[string]any{"title": ""}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title", decodeErr(t, rec).Error.Field)

	var cls model.Class
	rec = h.do(http.MethodPost, "/v1/admin/classes", admin, map[string]any{"title": "Boxing", "default_capacity": 12}, &cls)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got model.Class
	rec = h.do(http.MethodGet, "/v1/classes/"+cls.ID, u1, nil, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12, got.DefaultCapacity)
	assert.Equal(t, model.DefaultClassDurationMin, got.DefaultDurationMin)
}

func TestClassListAndUpdate(t *testing.T) {
	h := newHarness(t)
	admin := h.token("admin", middleware.RoleAdmin)
	member := h.token("u1", middleware.RoleMember)

	var yoga, boxing model.Class
	require.Equal(t, http.StatusCreated,
		h.do(http.MethodPost, "/v1/admin/classes", admin, map[string]any{"title": "Yoga"}, &yoga).Code)
	require.Equal(t, http.StatusCreated,
		h.do(http.MethodPost, "/v1/admin/classes", admin, map[string]any{"title": "Boxing"}, &boxing).Code)

	var list struct {
		Items []model.Class `json:"items"`
	}
	rec := h.do(http.MethodGet, "/v1/classes?limit=1", member, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Boxing", list.Items[0].Title)

	rec = h.do(http.MethodPatch, "/v1/admin/classes/"+yoga.ID, member, map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPatch, "/v1/admin/classes/"+yoga.ID, admin, map[string]any{"default_capacity": 0}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "default_capacity", decodeErr(t, rec).Error.Field)

	rec = h.do(http.MethodPatch, "/v1/admin/classes/missing", admin, map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var updated model.Class
	rec = h.do(http.MethodPatch, "/v1/admin/classes/"+yoga.ID, admin,
		map[string]any{"title": "Vinyasa", "default_capacity": 6}, &updated)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Vinyasa", updated.Title)
	assert.Equal(t, 6, updated.DefaultCapacity)
	assert.Equal(t, model.DefaultClassDurationMin, updated.DefaultDurationMin)

	// sessions scheduled afterwards pick up the new defaults
	var sess model.Session
	rec = h.do(http.MethodPost, "/v1/admin/sessions", admin, map[string]any{
		"class_id":  yoga.ID,
		"starts_at": h.now.Add(3 * time.Hour).Format(time.RFC3339),
	}, &sess)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 6, sess.Capacity)
	assert.Equal(t, "Vinyasa", sess.ClassTitle)
}
