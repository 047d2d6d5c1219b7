package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	mw "github.com/padraicbc/racereg/middleware"
	"github.com/padraicbc/racereg/models"
	"github.com/padraicbc/racereg/ranking"
	"github.com/padraicbc/racereg/registry"
)

var testKey = []byte("handler-test-key")

type fakeRepo struct {
	mu         sync.Mutex
	users      map[string]*models.User
	events     map[int64]*models.Event
	runners    map[string]*models.Runner
	categories map[int64]*models.Category
	failEvents bool

	// hold, when set, parks the next SaveEvent until it is closed; held reports the park.
	hold chan struct{}
	held chan struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:      map[string]*models.User{},
		events:     map[int64]*models.Event{},
		runners:    map[string]*models.Runner{},
		categories: map[int64]*models.Category{},
	}
}

func (f *fakeRepo) UserByName(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, errors.New("no rows")
}

func (f *fakeRepo) SaveCategory(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories[c.ID] = c
	return nil
}

func (f *fakeRepo) SaveRunner(_ context.Context, r *models.Runner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runners[r.ID] = r
	return nil
}

func (f *fakeRepo) SaveEvent(_ context.Context, ev *models.Event) error {
	f.mu.Lock()
	hold := f.hold
	f.hold = nil
	f.mu.Unlock()
	if hold != nil {
		f.held <- struct{}{}
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEvents {
		return errors.New("disk full")
	}
	f.events[ev.ID] = ev
	return nil
}

type api struct {
	t     *testing.T
	e     *echo.Echo
	repo  *fakeRepo
	token string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	repo := newFakeRepo()
	h := New(registry.New(zap.NewNop(), ranking.Options{}), repo, Auth{Key: testKey, Admins: []string{"admin"}}, zap.NewNop())
	e := echo.New()
	h.Routes(e)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &mw.Claims{
		Username:         "admin",
		UserHash:         mw.UserHashFromUsername("admin", testKey),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return &api{t: t, e: e, repo: repo, token: signed}
}

func (a *api) call(method, path, body string, auth bool) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) must(status int, method, path, body string, out any) {
	a.t.Helper()
	rec := a.call(method, path, body, true)
	if rec.Code != status {
		a.t.Fatalf("%s %s = %d, want %d: %s", method, path, rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode %s: %v", path, err)
		}
	}
}

// setup creates an open 10K event with one category and the given runners.
func (a *api) setup(runners ...string) (eventID, categoryID int64) {
	a.t.Helper()
	var cat models.Category
	a.must(http.StatusCreated, http.MethodPost, "/api/categories", `{"name":"Juvenil","minAge":15,"maxAge":25}`, &cat)
	var ev struct {
		ID int64 `json:"id"`
	}
	a.must(http.StatusCreated, http.MethodPost, "/api/events", `{"name":"Spring10K","date":"2025-04-12","distances":["10k"]}`, &ev)
	a.must(http.StatusOK, http.MethodPost, fmt.Sprintf("/api/events/%d/categories", ev.ID), fmt.Sprintf(`{"categoryID":%d}`, cat.ID), nil)
	a.must(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/events/%d/state", ev.ID), `{"state":"open"}`, nil)
	for _, id := range runners {
		a.must(http.StatusCreated, http.MethodPost, "/api/runners", fmt.Sprintf(`{"id":%q,"name":"Runner %s","birthDate":"2005-01-01"}`, id, id), nil)
	}
	return ev.ID, cat.ID
}

func (a *api) register(eventID, categoryID int64, runner string, bib int) models.Registration {
	a.t.Helper()
	var reg models.Registration
	body := fmt.Sprintf(`{"runnerID":%q,"categoryID":%d,"distance":"10K","shirtSize":"m","bib":%d}`, runner, categoryID, bib)
	a.must(http.StatusCreated, http.MethodPost, fmt.Sprintf("/api/events/%d/registrations", eventID), body, &reg)
	return reg
}

func TestRaceDayFlow(t *testing.T) {
	a := newAPI(t)
	eventID, catID := a.setup("A", "B", "C")

	times := map[string]float64{"A": 1500, "B": 1600, "C": 1400}
	for i, id := range []string{"A", "B", "C"} {
		reg := a.register(eventID, catID, id, 101+i)
		base := fmt.Sprintf("/api/registrations/%d", reg.ID)
		a.must(http.StatusOK, http.MethodPost, base+"/pay", "", nil)
		a.must(http.StatusOK, http.MethodPost, base+"/confirm", "", nil)
		a.must(http.StatusOK, http.MethodPost, base+"/time", fmt.Sprintf(`{"elapsedSeconds":%v}`, times[id]), nil)
	}

	var table ranking.Table
	a.must(http.StatusOK, http.MethodPost, fmt.Sprintf("/api/events/%d/rank", eventID), "", &table)
	if len(table.Overall) != 3 || table.Overall[0].RunnerID != "C" || table.Overall[0].Time != "00:23:20" {
		t.Fatalf("overall = %+v", table.Overall)
	}

	rec := a.call(http.MethodGet, fmt.Sprintf("/api/events/%d/podium?scope=category:%d", eventID, catID), "", false)
	var podium []ranking.PodiumEntry
	if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &podium) != nil {
		t.Fatalf("podium = %d %s", rec.Code, rec.Body.String())
	}
	if len(podium) != 3 || podium[1].RunnerName != "Runner A" || podium[2].Time != "00:26:40" {
		t.Fatalf("podium = %+v", podium)
	}

	saved := a.repo.events[eventID]
	if saved == nil || len(saved.Registrations) != 3 {
		t.Fatalf("event not persisted: %+v", saved)
	}
	for _, r := range saved.Registrations {
		if r.Result == nil || r.Result.OverallPosition == 0 {
			t.Fatalf("persisted registration without ranked result: %+v", r)
		}
	}

	rec = a.call(http.MethodGet, "/api/runners/C/results", "", false)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"overallPosition":1`) {
		t.Fatalf("runner results = %d %s", rec.Code, rec.Body.String())
	}
}

func TestErrorStatuses(t *testing.T) {
	a := newAPI(t)
	eventID, catID := a.setup("A", "B")
	reg := a.register(eventID, catID, "A", 101)

	dup := fmt.Sprintf(`{"runnerID":"B","categoryID":%d,"distance":"10K","shirtSize":"L","bib":101}`, catID)
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"duplicate bib", http.MethodPost, fmt.Sprintf("/api/events/%d/registrations", eventID), dup, http.StatusConflict},
		{"bad distance", http.MethodPost, fmt.Sprintf("/api/events/%d/registrations", eventID), `{"runnerID":"B","distance":"3K","shirtSize":"L","bib":5}`, http.StatusBadRequest},
		{"unknown event", http.MethodGet, "/api/events/999", "", http.StatusNotFound},
		{"confirm before pay", http.MethodPost, fmt.Sprintf("/api/registrations/%d/confirm", reg.ID), "", http.StatusUnprocessableEntity},
		{"skip state", http.MethodPut, fmt.Sprintf("/api/events/%d/state", eventID), `{"state":"FINISHED"}`, http.StatusUnprocessableEntity},
		{"missing time", http.MethodPost, fmt.Sprintf("/api/registrations/%d/time", reg.ID), `{}`, http.StatusBadRequest},
		{"bad scope", http.MethodGet, fmt.Sprintf("/api/events/%d/podium?scope=age:3", eventID), "", http.StatusBadRequest},
		{"bad state filter", http.MethodGet, fmt.Sprintf("/api/events/%d/registrations?state=LOST", eventID), "", http.StatusBadRequest},
		{"invalid id", http.MethodGet, "/api/events/abc", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.call(tc.method, tc.path, tc.body, true)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.status, rec.Body.String())
			}
		})
	}

	var got models.Registration
	a.must(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/registrations/%d", reg.ID), "", &got)
	if got.State != models.StatePending || got.RunnerID != "A" {
		t.Fatalf("registration changed by failed calls: %+v", got)
	}
}

func TestCommandsNeedToken(t *testing.T) {
	a := newAPI(t)
	rec := a.call(http.MethodPost, "/api/categories", `{"name":"Open","minAge":18,"maxAge":99}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create = %d", rec.Code)
	}
	rec = a.call(http.MethodGet, "/api/categories", "", false)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("public read = %d %s", rec.Code, rec.Body.String())
	}
}

func TestRegistrationFilters(t *testing.T) {
	a := newAPI(t)
	eventID, catID := a.setup("A", "B")
	a.register(eventID, catID, "A", 1)
	b := a.register(eventID, catID, "B", 2)
	a.must(http.StatusOK, http.MethodPost, fmt.Sprintf("/api/registrations/%d/cancel", b.ID), "", nil)

	var cancelled []models.Registration
	a.must(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/events/%d/registrations?state=cancelled", eventID), "", &cancelled)
	if len(cancelled) != 1 || cancelled[0].ID != b.ID {
		t.Fatalf("cancelled = %+v", cancelled)
	}

	var bib map[string]any
	a.must(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/events/%d/bibs/2", eventID), "", &bib)
	if bib["taken"] != true {
		t.Fatalf("cancelled bib reported free: %v", bib)
	}

	var removed map[string]bool
	a.must(http.StatusOK, http.MethodDelete, fmt.Sprintf("/api/registrations/%d", b.ID), "", &removed)
	if !removed["removed"] {
		t.Fatalf("remove = %v", removed)
	}
	var regs []models.Registration
	a.must(http.StatusOK, http.MethodGet, "/api/runners/B/registrations", "", &regs)
	if len(regs) != 0 {
		t.Fatalf("runner B still has %d registrations", len(regs))
	}
}

func TestPersistFailureIsReported(t *testing.T) {
	a := newAPI(t)
	a.repo.failEvents = true
	rec := a.call(http.MethodPost, "/api/events", `{"name":"X","date":"2025-01-01"}`, true)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestConcurrentSavesKeepLatestEvent(t *testing.T) {
	a := newAPI(t)
	eventID, catID := a.setup("A", "B")

	hold := make(chan struct{})
	a.repo.mu.Lock()
	a.repo.hold, a.repo.held = hold, make(chan struct{}, 1)
	a.repo.mu.Unlock()

	register := func(runner string, bib int) <-chan int {
		done := make(chan int, 1)
		go func() {
			body := fmt.Sprintf(`{"runnerID":%q,"categoryID":%d,"distance":"10K","shirtSize":"m","bib":%d}`, runner, catID, bib)
			done <- a.call(http.MethodPost, fmt.Sprintf("/api/events/%d/registrations", eventID), body, true).Code
		}()
		return done
	}

	first := register("A", 1)
	<-a.repo.held
	second := register("B", 2)
	select {
	case code := <-second:
		t.Fatalf("second registration finished (%d) while the first save was pending", code)
	case <-time.After(50 * time.Millisecond):
	}
	close(hold)

	if code := <-first; code != http.StatusCreated {
		t.Fatalf("first register = %d", code)
	}
	if code := <-second; code != http.StatusCreated {
		t.Fatalf("second register = %d", code)
	}

	a.repo.mu.Lock()
	saved := a.repo.events[eventID]
	a.repo.mu.Unlock()
	if saved == nil || len(saved.Registrations) != 2 {
		t.Fatalf("saved event = %+v, want 2 registrations", saved)
	}
}

func TestSignin(t *testing.T) {
	a := newAPI(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	a.repo.users["admin"] = &models.User{Username: "admin", Password: string(hash)}

	rec := a.call(http.MethodPost, "/api/signin", `{"username":" admin ","password":"pw"}`, false)
	var out map[string]string
	if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &out) != nil || out["token"] == "" {
		t.Fatalf("signin = %d %s", rec.Code, rec.Body.String())
	}

	a.token = out["token"]
	a.must(http.StatusCreated, http.MethodPost, "/api/categories", `{"name":"Open","minAge":18,"maxAge":99}`, nil)

	rec = a.call(http.MethodPost, "/api/signin", `{"username":"admin","password":"wrong"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", rec.Code)
	}
}

func TestPasswordHashIsAdminOnly(t *testing.T) {
	a := newAPI(t)
	a.repo.users["admin"] = &models.User{Username: "admin"}
	a.repo.users["clerk"] = &models.User{Username: "clerk"}

	var out map[string]string
	a.must(http.StatusOK, http.MethodPost, "/api/password-hash", `{"username":"new","password":"pw"}`, &out)
	if bcrypt.CompareHashAndPassword([]byte(out["passwordHash"]), []byte("pw")) != nil {
		t.Fatalf("hash does not match: %v", out)
	}
	a.must(http.StatusBadRequest, http.MethodPost, "/api/password-hash", `{"username":"new","password":" "}`, nil)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &mw.Claims{
		Username:         "clerk",
		UserHash:         mw.UserHashFromUsername("clerk", testKey),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	a.token = signed
	a.must(http.StatusForbidden, http.MethodPost, "/api/password-hash", `{"username":"new","password":"pw"}`, nil)
}
