package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/skillsync/skillsync/internal/certifications"
	"github.com/skillsync/skillsync/internal/matching"
	"github.com/skillsync/skillsync/internal/pipeline"
	"github.com/skillsync/skillsync/internal/recommend"
	"github.com/skillsync/skillsync/internal/skills"
)

type fakeMatcher struct {
	res *pipeline.Result
	err error
	got pipeline.Request
}

func (f *fakeMatcher) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.got = req
	return f.res, f.err
}

func (f *fakeMatcher) Skills(_ context.Context, text string) skills.SkillSet {
	if strings.Contains(text, "python") {
		return skills.NewSkillSet("python", "machine-learning")
	}
	return skills.NewSkillSet()
}

type fakeCerts struct{ got []string }

func (f *fakeCerts) Lookup(_ context.Context, in []string) ([]certifications.Certification, error) {
	f.got = in
	return []certifications.Certification{{Name: "Go course", URL: "https://example.com/go", Skill: in[0]}}, nil
}

func newTestServer(t *testing.T, m *fakeMatcher, certs pipeline.CertificationLookup, logger *zap.Logger) *httptest.Server {
	t.Helper()
	names := map[string]string{"python": "Python", "machine-learning": "Machine Learning"}
	s := New(Config{MaxBodyBytes: 1024}, m, certs, func(id string) string { return names[id] }, logger)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleMatch(t *testing.T) {
	t.Parallel()

	m := &fakeMatcher{res: &pipeline.Result{
		Skills:          skills.NewSkillSet("python"),
		Matches:         []matching.Result{},
		Recommendations: []recommend.Recommendation{{Skill: "sql", Name: "SQL", Count: 2, Certifications: []string{}}},
		Source:          pipeline.SourceLive,
	}}
	srv := newTestServer(t, m, nil, nil)

	resp := post(t, srv.URL+"/api/match", `{"resume_text":"python dev","keywords":["go"],"location":"Berlin","page":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []any{"python"}, body["skills"])
	assert.Equal(t, "live", body["source"])
	assert.Equal(t, false, body["degraded"])

	assert.Equal(t, pipeline.Request{ResumeText: "python dev", Keywords: []string{"go"}, Location: "Berlin", Page: 2}, m.got)
}

func TestHandleMatchDegraded(t *testing.T) {
	t.Parallel()

	m := &fakeMatcher{res: &pipeline.Result{
		Skills:          skills.NewSkillSet(),
		Matches:         []matching.Result{},
		Recommendations: []recommend.Recommendation{},
		Source:          pipeline.SourceNone,
		Degraded:        true,
	}}
	srv := newTestServer(t, m, nil, nil)

	resp := post(t, srv.URL+"/api/match", `{"resume_text":"python"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["degraded"])
	assert.Equal(t, []any{}, body["matches"])
}

func TestHandleMatchErrors(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	m := &fakeMatcher{err: errors.New("database exploded")}
	srv := newTestServer(t, m, nil, zap.New(core))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{"resume_text":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"unknown field", `{"resume":"x"}`, http.StatusBadRequest},
		{"nothing to match", `{"resume_text":"  "}`, http.StatusBadRequest},
		{"invalid page", `{"resume_text":"x","page":-1}`, http.StatusBadRequest},
		{"too large", `{"resume_text":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge},
		{"unexpected", `{"resume_text":"python"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		resp := post(t, srv.URL+"/api/match", tt.body)
		assert.Equal(t, tt.status, resp.StatusCode, tt.name)

		var body errorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body), tt.name)
		assert.NotEmpty(t, body.Error, tt.name)
		assert.Equal(t, resp.Header.Get("X-Request-ID"), body.RequestID, tt.name)
		assert.NotContains(t, body.Error, "database", tt.name)
	}
	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestHandleSkills(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeMatcher{}, nil, nil)

	resp := post(t, srv.URL+"/api/skills", `{"text":"python and ml"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Skills []skillView `json:"skills"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []skillView{
		{ID: "machine-learning", Name: "Machine Learning"},
		{ID: "python", Name: "Python"},
	}, body.Skills)

	resp = post(t, srv.URL+"/api/skills", `{"text":""}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Skills)
}

func TestHandleCertifications(t *testing.T) {
	t.Parallel()

	certs := &fakeCerts{}
	srv := newTestServer(t, &fakeMatcher{}, certs, nil)

	resp, err := http.Get(srv.URL + "/api/certifications?skills=go,%20sql")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"go", "sql"}, certs.got)

	var body struct {
		Certifications []certifications.Certification `json:"certifications"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Certifications, 1)
	assert.Equal(t, "Go course", body.Certifications[0].Name)

	missing, err := http.Get(srv.URL + "/api/certifications")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestHealthAndRequestID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeMatcher{}, nil, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))

	wrong, err := http.Get(srv.URL + "/api/match")
	require.NoError(t, err)
	defer wrong.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, wrong.StatusCode)
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Config{ShutdownTimeout: time.Second}, &fakeMatcher{}, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
