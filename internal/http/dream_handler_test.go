package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dream-journal/internal/domain"
)

type dreamEnvelope struct {
	Dream struct {
		domain.Dream
		DurationMinutes int64  `json:"duration_minutes"`
		Duration        string `json:"duration"`
	} `json:"dream"`
	Error string `json:"error"`
}

func decodeDream(t *testing.T, rec *httptest.ResponseRecorder) dreamEnvelope {
	t.Helper()
	var env dreamEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func dreamBody(title, content string) map[string]any {
	return map[string]any{
		"date":       "2024-05-01",
		"start_time": "23:00",
		"end_time":   "07:30",
		"title":      title,
		"content":    content,
		"tags":       []string{" flying ", "", "flying", "ocean"},
		"is_lucid":   true,
	}
}

func TestDreamHandlerCreateGetList(t *testing.T) {
	app := newTestApp(t)

	rec := performRequest(app.router, http.MethodPost, "/dreams", dreamBody("Flight", "I was flying"), "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeDream(t, rec)
	if created.Dream.ID == 0 || created.Dream.DurationMinutes != 510 || created.Dream.Duration != "8h 30m" {
		t.Fatalf("unexpected created dream: %+v", created.Dream)
	}
	if diff := cmp.Diff([]string{"flying", "ocean"}, created.Dream.Tags); diff != "" {
		t.Fatalf("unexpected tags (-want +got):\n%s", diff)
	}

	rec = performRequest(app.router, http.MethodGet, fmt.Sprintf("/dreams/%d", created.Dream.ID), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeDream(t, rec)
	if got.Dream.Title != "Flight" || got.Dream.Date.String() != "2024-05-01" || !got.Dream.IsLucid {
		t.Fatalf("unexpected dream: %+v", got.Dream)
	}

	rec = performRequest(app.router, http.MethodGet, "/dreams", nil, "")
	var list struct {
		Dreams []domain.Dream `json:"dreams"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list.Dreams) != 1 {
		t.Fatalf("expected one dream in list, got %s (%v)", rec.Body.String(), err)
	}

	if adds, _ := app.cloud.counts(); adds != 0 {
		t.Fatalf("anonymous requests must stay local, got %d uploads", adds)
	}
}

func TestDreamHandlerRejectsBlankFields(t *testing.T) {
	app := newTestApp(t)

	for _, body := range []map[string]any{
		dreamBody("   ", "content"),
		dreamBody("title", "  "),
	} {
		rec := performRequest(app.router, http.MethodPost, "/dreams", body, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	bad := dreamBody("title", "content")
	bad["date"] = "01/05/2024"
	if rec := performRequest(app.router, http.MethodPost, "/dreams", bad, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", rec.Code)
	}

	rec := performRequest(app.router, http.MethodGet, "/dreams", nil, "")
	if !strings.Contains(rec.Body.String(), `"dreams":[]`) {
		t.Fatalf("invalid dreams must not reach storage: %s", rec.Body.String())
	}
}

func TestDreamHandlerAuthenticatedMirrorsAndDelete(t *testing.T) {
	app := newTestApp(t)
	pair, err := app.jwt.GeneratePair(context.Background(), domain.User{ID: "u1", Email: "dreamer@example.com"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	token := pair.AccessToken

	rec := performRequest(app.router, http.MethodPost, "/dreams", dreamBody("Sea", "Deep water"), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	id := decodeDream(t, rec).Dream.ID
	if adds, _ := app.cloud.counts(); adds != 1 {
		t.Fatalf("expected one upload, got %d", adds)
	}

	update := dreamBody("Sea at night", "Deep dark water")
	rec = performRequest(app.router, http.MethodPut, fmt.Sprintf("/dreams/%d", id), update, token)
	if rec.Code != http.StatusOK || decodeDream(t, rec).Dream.Title != "Sea at night" {
		t.Fatalf("expected updated dream, got %d: %s", rec.Code, rec.Body.String())
	}

	app.cloud.err = errors.New("cloud down")
	rec = performRequest(app.router, http.MethodDelete, fmt.Sprintf("/dreams/%d", id), nil, token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 despite cloud failure, got %d", rec.Code)
	}
	if _, deletes := app.cloud.counts(); deletes != 1 {
		t.Fatalf("expected one remote delete, got %d", deletes)
	}

	rec = performRequest(app.router, http.MethodGet, fmt.Sprintf("/dreams/%d", id), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	rec = performRequest(app.router, http.MethodDelete, fmt.Sprintf("/dreams/%d", id), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", rec.Code)
	}
	if rec := performRequest(app.router, http.MethodGet, "/dreams/abc", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestDreamHandlerStats(t *testing.T) {
	app := newTestApp(t)
	performRequest(app.router, http.MethodPost, "/dreams", dreamBody("One", "content"), "")
	second := dreamBody("Two", "content")
	second["is_lucid"] = false
	second["start_time"] = "01:00"
	second["end_time"] = "02:30"
	second["tags"] = []string{"ocean"}
	performRequest(app.router, http.MethodPost, "/dreams", second, "")

	rec := performRequest(app.router, http.MethodGet, "/stats", nil, "")
	var resp struct {
		Stats domain.Stats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.Stats{
		Total:          2,
		Lucid:          1,
		NonLucid:       1,
		AverageMinutes: 300,
		AverageLabel:   "5h 0m",
		TopTags: []domain.TagCount{
			{Tag: "ocean", Count: 2},
			{Tag: "flying", Count: 1},
		},
	}
	if diff := cmp.Diff(want, resp.Stats); diff != "" {
		t.Fatalf("unexpected stats (-want +got):\n%s", diff)
	}
}

func TestSettingsHandler(t *testing.T) {
	app := newTestApp(t)

	rec := performRequest(app.router, http.MethodGet, "/settings", nil, "")
	if !strings.Contains(rec.Body.String(), `"notification_hour":21`) {
		t.Fatalf("expected default settings, got %s", rec.Body.String())
	}

	rec = performRequest(app.router, http.MethodPut, "/settings/notifications", map[string]any{"enabled": true}, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"notifications_enabled":true`) {
		t.Fatalf("expected enabled, got %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(app.router, http.MethodPut, "/settings/notification-time", map[string]any{"hour": 6, "minute": 45}, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"notification_minute":45`) {
		t.Fatalf("expected time saved, got %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(app.router, http.MethodPut, "/settings/notification-time", map[string]any{"hour": 25, "minute": 0}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid time, got %d", rec.Code)
	}
	rec = performRequest(app.router, http.MethodPut, "/settings/notifications", map[string]any{}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing flag, got %d", rec.Code)
	}
}

func TestDreamHandlerStream(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/dreams/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	nextSnapshot := func() []domain.Dream {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data:"); ok {
				var dreams []domain.Dream
				if err := json.Unmarshal([]byte(data), &dreams); err != nil {
					t.Fatalf("decode snapshot %q: %v", data, err)
				}
				return dreams
			}
		}
	}

	if initial := nextSnapshot(); len(initial) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}
	performRequest(app.router, http.MethodPost, "/dreams", dreamBody("Live", "streamed"), "")
	if got := nextSnapshot(); len(got) != 1 || got[0].Title != "Live" {
		t.Fatalf("expected snapshot with new dream, got %+v", got)
	}
}
