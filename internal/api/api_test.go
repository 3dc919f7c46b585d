package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"localhire/internal/config"
	"localhire/internal/database"
	"localhire/internal/domain"
	"localhire/internal/events"
	"localhire/internal/media"
	"localhire/internal/models"
	"localhire/internal/notify"
	"localhire/internal/repository"
	"localhire/internal/service"
	"localhire/internal/slots"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

var testNow = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

var (
	clientActor     = domain.Actor{ID: "u1", Role: models.RoleClient, Name: "Sam", Email: "sam@mail.test"}
	otherClient     = domain.Actor{ID: "u2", Role: models.RoleClient, Name: "Kim"}
	contractorActor = domain.Actor{ID: "c1", Role: models.RoleContractor}
	adminActor      = domain.Actor{ID: "root", Role: models.RoleAdmin}
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []*gomail.Message
	err  error
}

func (s *recordingSender) DialAndSend(m ...*gomail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, m...)
	return nil
}

type testEnv struct {
	ts     *httptest.Server
	db     *database.DB
	auth   *Authenticator
	sender *recordingSender
}

func newTestEnv(t *testing.T, tweak func(*config.APIConfig)) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	ctx := context.Background()

	db, err := database.NewSQLite(ctx, ":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.CreateContractor(ctx, &models.Contractor{
		ID: "c1", Name: "Jane", Email: "jane@mail.test", Speciality: "Plumbing", Fees: 40, Available: true,
	}))

	ratings := repository.NewMemoryRatingStore()
	uploadsDir := t.TempDir()
	uploader := media.NewDiskUploader(uploadsDir, "http://cdn.test", 0)
	bus := events.NewEventBus()
	policy := service.BookingPolicy{Window: slots.DefaultWindow(), Location: time.UTC, RateLimit: 100, RateWindow: time.Minute}

	appts := service.NewAppointmentService(db, db, uploader, bus, repository.NewMemoryLimiter(), policy, &logger)
	appts.SetClock(func() time.Time { return testNow })
	contractors := service.NewContractorService(db, ratings, uploader, policy, &logger)
	contractors.SetClock(func() time.Time { return testNow })

	sender := &recordingSender{}
	cfg := config.APIConfig{
		Auth:        config.APIAuthConfig{JWTSecret: "test-secret", Issuer: "localhire"},
		RateLimit:   config.APIRateLimitConfig{RPS: 1000, Burst: 1000},
		MaxUploadMB: 1,
	}
	if tweak != nil {
		tweak(&cfg)
	}

	srv := NewServer(cfg, Services{
		Appointments: appts,
		Contractors:  contractors,
		Ratings:      service.NewRatingService(ratings, db, bus, &logger),
		Signup:       service.NewSignupService(notify.NewMailer(sender, "noreply@localhire.test"), "ops@localhire.test", &logger),
		Health:       db.PingContext,
		UploadsDir:   uploadsDir,
	}, &logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, db: db, auth: NewAuthenticator(cfg.Auth), sender: sender}
}

func (e *testEnv) token(t *testing.T, actor domain.Actor) string {
	t.Helper()
	tok, err := e.auth.Sign(actor, time.Hour)
	require.NoError(t, err)
	return tok
}

type result struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) result {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	res := result{status: resp.StatusCode, header: resp.Header, raw: raw}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &res.body))
	}
	return res
}

func (e *testEnv) json(t *testing.T, method, path, token string, payload any) result {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return e.do(t, method, path, token, body, "application/json")
}

type upload struct {
	field, name, content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) book(t *testing.T, actor domain.Actor, date, label string) result {
	t.Helper()
	return e.json(t, http.MethodPost, "/api/v1/appointments", e.token(t, actor),
		map[string]string{"conId": "c1", "slotDate": date, "slotTime": label})
}

func appointmentID(t *testing.T, res result) string {
	t.Helper()
	appt, ok := res.body["appointment"].(map[string]any)
	require.True(t, ok, "response has no appointment: %s", res.raw)
	return appt["id"].(string)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.do(t, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "ok", res.body["status"])
	assert.NotEmpty(t, res.header.Get(requestIDHeader))
}

func TestPublicContractorEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.do(t, http.MethodGet, "/api/v1/contractors", "", nil, "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.body["success"])
	assert.Len(t, res.body["contractors"], 1)

	res = env.do(t, http.MethodGet, "/api/v1/contractors/c1", "", nil, "")
	require.Equal(t, http.StatusOK, res.status)
	profile := res.body["contractor"].(map[string]any)
	assert.Equal(t, "Jane", profile["name"])
	assert.Equal(t, 0.0, profile["rating"].(map[string]any)["averageRating"])

	res = env.do(t, http.MethodGet, "/api/v1/contractors/nobody", "", nil, "")
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, false, res.body["success"])
	assert.Equal(t, "contractor not found", res.body["message"])

	res = env.do(t, http.MethodGet, "/api/v1/contractors/c1/slots", "", nil, "")
	require.Equal(t, http.StatusOK, res.status)
	days := res.body["days"].([]any)
	require.Len(t, days, models.DefaultBookingDays)
	first := days[0].(map[string]any)
	assert.Equal(t, "5_3_2024", first["slotDate"])
	assert.Equal(t, "10:00 AM", first["slots"].([]any)[0].(map[string]any)["time"])
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.json(t, http.MethodGet, "/api/v1/user/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = env.json(t, http.MethodGet, "/api/v1/admin/dashboard", env.token(t, clientActor), nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	forged, err := NewAuthenticator(config.APIAuthConfig{JWTSecret: "other", Issuer: "localhire"}).Sign(adminActor, time.Hour)
	require.NoError(t, err)
	res = env.json(t, http.MethodGet, "/api/v1/admin/dashboard", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)

	expired, err := env.auth.Sign(adminActor, -time.Minute)
	require.NoError(t, err)
	res = env.json(t, http.MethodGet, "/api/v1/admin/dashboard", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)

	_, err = env.auth.Parse(mustSign(t, env.auth, domain.Actor{ID: "x", Role: "superuser"}))
	assert.Error(t, err)
}

func mustSign(t *testing.T, a *Authenticator, actor domain.Actor) string {
	t.Helper()
	tok, err := a.Sign(actor, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAppointmentLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.book(t, clientActor, "5_3_2024", "10:00 AM")
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	id := appointmentID(t, res)
	appt := res.body["appointment"].(map[string]any)
	assert.Equal(t, "pending", appt["status"])
	assert.Equal(t, 40.0, appt["amount"])
	assert.Equal(t, false, appt["isCompleted"])

	res = env.book(t, otherClient, "5_3_2024", "10:00 AM")
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, "slot not available", res.body["message"])

	res = env.do(t, http.MethodGet, "/api/v1/contractors/c1/slots", "", nil, "")
	first := res.body["days"].([]any)[0].(map[string]any)
	assert.Equal(t, "10:30 AM", first["slots"].([]any)[0].(map[string]any)["time"])

	// rating before completion
	res = env.json(t, http.MethodPost, "/api/v1/appointments/"+id+"/rating", env.token(t, clientActor), map[string]int{"stars": 5})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "appointment is not completed", res.body["message"])

	// approval needs a proof first
	res = env.json(t, http.MethodPost, "/api/v1/appointments/"+id+"/approval", env.token(t, adminActor), map[string]bool{"approved": true})
	assert.Equal(t, http.StatusBadRequest, res.status)

	body, ct := multipartBody(t, nil, upload{"proofImage", "done.png", "png-bytes"})
	res = env.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/proof", env.token(t, contractorActor), body, ct)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	proof := res.body["appointment"].(map[string]any)["proofImage"].(string)
	assert.True(t, strings.HasPrefix(proof, "http://cdn.test/proofs/"))
	served := env.do(t, http.MethodGet, "/uploads/"+strings.TrimPrefix(proof, "http://cdn.test/"), "", nil, "")
	assert.Equal(t, http.StatusOK, served.status)
	assert.Equal(t, "png-bytes", string(served.raw))

	res = env.json(t, http.MethodGet, "/api/v1/admin/pending-approvals", env.token(t, adminActor), nil)
	assert.Len(t, res.body["appointments"], 1)

	res = env.json(t, http.MethodPost, "/api/v1/appointments/"+id+"/approval", env.token(t, adminActor), map[string]bool{"approved": true})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.body["appointment"].(map[string]any)["isCompleted"])

	status := "/api/v1/appointments/status?appointmentId=" + id + "&userId=u1&contractorId=c1"
	res = env.json(t, http.MethodGet, status, env.token(t, clientActor), nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.body["isCompleted"])
	assert.Equal(t, false, res.body["hasBeenRated"])

	res = env.json(t, http.MethodGet, status, env.token(t, otherClient), nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = env.json(t, http.MethodPost, "/api/v1/appointments/"+id+"/rating", env.token(t, clientActor), map[string]int{"stars": 4})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, 4.0, res.body["rating"].(map[string]any)["averageRating"])

	res = env.json(t, http.MethodPost, "/api/v1/appointments/"+id+"/rating", env.token(t, clientActor), map[string]int{"stars": 4})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "appointment already rated", res.body["message"])

	res = env.do(t, http.MethodGet, "/api/v1/ratings/c1", "", nil, "")
	assert.Equal(t, 4.0, res.body["averageRating"])

	// completed is terminal
	res = env.json(t, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", env.token(t, clientActor), nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
	stored, err := env.db.GetAppointment(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}

func TestRejectThenResubmit(t *testing.T) {
	env := newTestEnv(t, nil)
	id := appointmentID(t, env.book(t, clientActor, "6_3_2024", "11:30 AM"))

	submit := func() result {
		body, ct := multipartBody(t, nil, upload{"proofImage", "done.jpg", "jpg"})
		return env.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/proof", env.token(t, contractorActor), body, ct)
	}
	require.Equal(t, http.StatusOK, submit().status)

	res := env.json(t, http.MethodPost, "/api/v1/appointments/"+id+"/approval", env.token(t, adminActor), map[string]bool{"approved": false})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "needsRevision", res.body["appointment"].(map[string]any)["status"])

	res = submit()
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "pending", res.body["appointment"].(map[string]any)["status"])
}

func TestProofValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	id := appointmentID(t, env.book(t, clientActor, "5_3_2024", "01:00 PM"))

	body, ct := multipartBody(t, map[string]string{"note": "forgot the file"})
	res := env.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/proof", env.token(t, contractorActor), body, ct)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "no file uploaded", res.body["message"])

	body, ct = multipartBody(t, nil, upload{"proofImage", "script.exe", "MZ"})
	res = env.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/proof", env.token(t, contractorActor), body, ct)
	assert.Equal(t, http.StatusBadRequest, res.status)

	other := domain.Actor{ID: "c9", Role: models.RoleContractor}
	body, ct = multipartBody(t, nil, upload{"proofImage", "done.png", "png"})
	res = env.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/proof", env.token(t, other), body, ct)
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestCancelReleasesSlot(t *testing.T) {
	env := newTestEnv(t, nil)
	id := appointmentID(t, env.book(t, clientActor, "7_3_2024", "02:00 PM"))

	res := env.json(t, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", env.token(t, otherClient), nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = env.json(t, http.MethodPost, "/api/v1/appointments/"+id+"/cancel", env.token(t, clientActor), nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.body["appointment"].(map[string]any)["cancelled"])

	res = env.book(t, otherClient, "7_3_2024", "02:00 PM")
	assert.Equal(t, http.StatusCreated, res.status)

	res = env.json(t, http.MethodGet, "/api/v1/user/appointments", env.token(t, clientActor), nil)
	assert.Len(t, res.body["appointments"], 1)
}

func TestBookingValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.book(t, clientActor, "5_3_2024", "09:00 PM")
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = env.do(t, http.MethodPost, "/api/v1/appointments", env.token(t, clientActor), strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = env.book(t, contractorActor, "5_3_2024", "10:00 AM")
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, adminActor)
	env.book(t, clientActor, "5_3_2024", "10:00 AM")
	env.book(t, otherClient, "5_3_2024", "10:30 AM")

	res := env.json(t, http.MethodGet, "/api/v1/admin/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	dash := res.body["dashData"].(map[string]any)
	assert.Equal(t, 2.0, dash["appointments"])
	assert.Equal(t, 2.0, dash["clients"])
	assert.Equal(t, 1.0, dash["contractors"])
	assert.Len(t, dash["latestAppointments"], 2)

	res = env.json(t, http.MethodGet, "/api/v1/admin/appointments?clientId=u2", admin, nil)
	assert.Len(t, res.body["appointments"], 1)
	res = env.json(t, http.MethodGet, "/api/v1/admin/appointments?status=bogus", admin, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
	res = env.json(t, http.MethodGet, "/api/v1/admin/appointments?limit=x", admin, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = env.do(t, http.MethodGet, "/api/v1/admin/appointments/export", admin, nil, "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, xlsxContentType, res.header.Get("Content-Type"))
	assert.Contains(t, res.header.Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(res.raw, []byte("PK")))

	res = env.json(t, http.MethodGet, "/api/v1/contractor/dashboard", env.token(t, contractorActor), nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, 2.0, res.body["dashData"].(map[string]any)["appointments"])

	res = env.json(t, http.MethodGet, "/api/v1/contractor/appointments", env.token(t, contractorActor), nil)
	assert.Len(t, res.body["appointments"], 2)

	res = env.json(t, http.MethodPut, "/api/v1/ratings/c1", admin, map[string]int{"totalRating": 9, "totalReviews": 2})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, 4.5, res.body["averageRating"])
	res = env.json(t, http.MethodPut, "/api/v1/ratings/c1", admin, map[string]int{"totalRating": 20, "totalReviews": 2})
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestUploadTooLargeUsesDefaultLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.APIConfig) { cfg.MaxUploadMB = 0 })
	id := appointmentID(t, env.book(t, clientActor, "5_3_2024", "10:00 AM"))

	body, ct := multipartBody(t, nil, upload{"proofImage", "big.png", strings.Repeat("x", 11<<20+4096)})
	res := env.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/proof", env.token(t, contractorActor), body, ct)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "upload exceeds 10 MB", res.body["message"])
}

func TestAddContractorAndAvailability(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, adminActor)

	body, ct := multipartBody(t, map[string]string{
		"name": "Bob", "email": "bob@mail.test", "fees": "55", "speciality": "Electrician",
	}, upload{"image", "bob.jpg", "jpg"})
	res := env.do(t, http.MethodPost, "/api/v1/admin/contractors", admin, body, ct)
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	c := res.body["contractor"].(map[string]any)
	assert.True(t, strings.HasPrefix(c["image"].(string), "http://cdn.test/contractors/"))

	body, ct = multipartBody(t, map[string]string{"name": "Bob2", "email": "bob@mail.test", "fees": "1"})
	res = env.do(t, http.MethodPost, "/api/v1/admin/contractors", admin, body, ct)
	assert.Equal(t, http.StatusConflict, res.status)

	body, ct = multipartBody(t, map[string]string{"name": "X", "email": "x@mail.test", "fees": "lots"})
	res = env.do(t, http.MethodPost, "/api/v1/admin/contractors", admin, body, ct)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = env.json(t, http.MethodPost, "/api/v1/admin/contractors/c1/availability", admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, false, res.body["available"])

	res = env.book(t, clientActor, "5_3_2024", "10:00 AM")
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "contractor not available", res.body["message"])
}

func TestContractorSignup(t *testing.T) {
	env := newTestEnv(t, nil)

	body, ct := multipartBody(t, map[string]string{
		"name": "Jane", "email": "jane@mail.test", "speciality": "Plumbing", "rate": "40",
	}, upload{"proofFile", "license.pdf", "%PDF"}, upload{"govIdFile", "id.png", "png"})
	res := env.do(t, http.MethodPost, "/api/v1/contractor-signup", "", body, ct)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "Signup sent successfully!", res.body["message"])
	require.Len(t, env.sender.msgs, 1)
	assert.Equal(t, []string{"ops@localhire.test"}, env.sender.msgs[0].GetHeader("To"))

	env.sender.err = errors.New("smtp down")
	body, ct = multipartBody(t, map[string]string{"name": "Jane", "email": "jane@mail.test"})
	res = env.do(t, http.MethodPost, "/api/v1/contractor-signup", "", body, ct)
	assert.Equal(t, http.StatusBadGateway, res.status)
	assert.Equal(t, "failed to send email", res.body["message"])
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.APIConfig) {
		cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 1}
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/contractors", "", nil, "").status)
	res := env.do(t, http.MethodGet, "/api/v1/contractors", "", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Equal(t, "rate limit exceeded", res.body["message"])
}

func TestNotFoundAndMethod(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.do(t, http.MethodGet, "/api/v1/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "not found", res.body["message"])

	res = env.do(t, http.MethodDelete, "/api/v1/contractors", "", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, res.status)
	assert.Equal(t, "method not allowed", res.body["message"])

	res = env.do(t, http.MethodPost, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, res.status)
}
