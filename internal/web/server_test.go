package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/genecheck/internal/config"
	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/JonMunkholm/genecheck/internal/table"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	passingCSV    = "id,ABC-1,DEF-2\n,GENE,GENE\n1,a,b\n2,c,d\n"
	interGenicCSV = "id,ABC-1,DEF-2\n,GENE,GENE\n1,p,q\n2,q,r\n"
)

type memoryRunStore struct {
	mu   sync.Mutex
	runs []core.Run
}

func (m *memoryRunStore) Record(_ context.Context, run *core.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append([]core.Run{*run}, m.runs...)
	return nil
}

func (m *memoryRunStore) Get(_ context.Context, id uuid.UUID) (*core.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == id {
			r := m.runs[i]
			return &r, nil
		}
	}
	return nil, core.ErrRunNotFound
}

func (m *memoryRunStore) List(_ context.Context, limit int) ([]core.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return append([]core.Run(nil), m.runs[:limit]...), nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Validation: config.ValidationConfig{Marker: "GENE", MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: 50 * time.Millisecond},
	}
}

type testEnv struct {
	server  *Server
	store   *memoryRunStore
	limiter *core.Limiter
}

func newTestEnv(t *testing.T, cfg *config.Config, withStore bool, opts Options) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{limiter: core.NewLimiter(1, 20*time.Millisecond)}

	svcCfg := core.ServiceConfig{
		Validator: core.NewValidator(core.ValidatorConfig{Logger: logger}),
		Limiter:   env.limiter,
		Read:      table.ReadOptions{MaxBytes: cfg.Validation.MaxFileSize},
		Logger:    logger,
	}
	if withStore {
		env.store = &memoryRunStore{}
		svcCfg.Runs = env.store
	}

	opts.Logger = logger
	env.server = NewServer(core.NewService(svcCfg), cfg, opts)
	t.Cleanup(func() { _ = env.server.Shutdown(context.Background()) })
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleValidate_Passes(t *testing.T) {
	env := newTestEnv(t, testConfig(), true, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/validate?name=ref.csv", strings.NewReader(passingCSV))
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ValidateResponse](t, rec)
	require.NotNil(t, resp.Run)
	assert.Nil(t, resp.Error)
	assert.Equal(t, core.RunPassed, resp.Run.Status)
	assert.Equal(t, "ref.csv", resp.Run.SourceName)
	assert.Equal(t, []string{"ABC-1", "DEF-2"}, resp.Run.GeneFields)
	assert.Equal(t, 2, resp.Run.RowCount)
	assert.Equal(t, "192.0.2.1", resp.Run.Origin)

	require.Len(t, env.store.runs, 1)
	assert.Equal(t, resp.Run.ID, env.store.runs[0].ID)
}

func TestHandleValidate_InterGenicDuplicates(t *testing.T) {
	env := newTestEnv(t, testConfig(), false, Options{})

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(interGenicCSV)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	resp := decode[ValidateResponse](t, rec)
	require.NotNil(t, resp.Run)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "GENE003", resp.Error.Code)
	assert.Equal(t, core.RunFailed, resp.Run.Status)
	assert.Equal(t, "upload", resp.Run.SourceName)
	assert.Equal(t, []core.InterGenicDuplicate{{Gene: "DEF-2", Accession: "q"}}, resp.Run.Findings.InterGenic)
}

func TestHandleValidate_SkipDuplicates(t *testing.T) {
	env := newTestEnv(t, testConfig(), false, Options{})

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/validate?skip_duplicates=true", strings.NewReader(interGenicCSV)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ValidateResponse](t, rec)
	assert.True(t, resp.Run.IgnoreDuplicates)
	assert.Equal(t, core.RunPassed, resp.Run.Status)
}

func TestHandleValidate_SkipDuplicatesDefaultFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Validation.SkipDuplicates = true
	env := newTestEnv(t, cfg, false, Options{})

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(interGenicCSV)))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/validate?skip_duplicates=false", strings.NewReader(interGenicCSV)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestHandleValidate_Multipart(t *testing.T) {
	env := newTestEnv(t, testConfig(), false, Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "genes.tsv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, "id\tABC-1\n\tGENE\n1\ta\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/validate?delimiter=tab", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ValidateResponse](t, rec)
	assert.Equal(t, "genes.tsv", resp.Run.SourceName)
	assert.Equal(t, []string{"ABC-1"}, resp.Run.GeneFields)
}

func TestHandleValidate_MultipartMissingFile(t *testing.T) {
	env := newTestEnv(t, testConfig(), false, Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/validate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
}

func TestHandleValidate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"empty source", "/api/validate", "", http.StatusBadRequest, "SRC001"},
		{"missing definition", "/api/validate", "id,ABC-1\n", http.StatusBadRequest, "SRC002"},
		{"bad delimiter", "/api/validate?delimiter=ab", passingCSV, http.StatusBadRequest, "REQ001"},
		{"bad skip flag", "/api/validate?skip_duplicates=maybe", passingCSV, http.StatusBadRequest, "REQ001"},
		{"invalid gene name", "/api/validate", "id,ABC1\n,GENE\n1,a\n", http.StatusUnprocessableEntity, "GENE001"},
		{"too large", "/api/validate", passingCSV + strings.Repeat("3,x,y\n", 1<<18), http.StatusBadRequest, "SRC004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig(), false, Options{})

			rec := env.do(httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if rec.Code == http.StatusUnprocessableEntity {
				resp := decode[ValidateResponse](t, rec)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				return
			}
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestHandleValidate_LimiterSaturated(t *testing.T) {
	env := newTestEnv(t, testConfig(), false, Options{})
	require.True(t, env.limiter.TryAcquire())
	defer env.limiter.Release()

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(passingCSV)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "VAL001", decode[ErrorResponse](t, rec).Code)
}

func TestHandleValidate_HTMX(t *testing.T) {
	env := newTestEnv(t, testConfig(), false, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/validate?name=ref.csv", strings.NewReader(interGenicCSV))
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Inter genic duplications")
	assert.Contains(t, rec.Body.String(), "GENE003")
}

func TestHandleRuns_HistoryDisabled(t *testing.T) {
	env := newTestEnv(t, testConfig(), false, Options{})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RUN002", decode[ErrorResponse](t, rec).Code)
}

func TestHandleRuns_ListAndGet(t *testing.T) {
	env := newTestEnv(t, testConfig(), true, Options{})
	for _, name := range []string{"a.csv", "b.csv"} {
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/validate?name="+name, strings.NewReader(passingCSV)))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/runs?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[RunsResponse](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "b.csv", list.Runs[0].SourceName)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/runs/"+list.Runs[0].ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, list.Runs[0].ID, decode[core.Run](t, rec).ID)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/runs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RUN001", decode[ErrorResponse](t, rec).Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/runs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
}

func TestHandleRunPage(t *testing.T) {
	env := newTestEnv(t, testConfig(), true, Options{})
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/validate?name=%3Cref%3E.csv", strings.NewReader(passingCSV)))
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[ValidateResponse](t, rec).Run

	rec = env.do(httptest.NewRequest(http.MethodGet, "/runs/"+run.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "&lt;ref&gt;.csv")
	assert.NotContains(t, body, "<ref>")
	assert.Contains(t, body, "ABC-1")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/runs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "RUN001")
}

func TestHandleHealth(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), false, Options{})
		rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[HealthResponse](t, rec)
		assert.Equal(t, "ok", resp.Status)
		assert.False(t, resp.History)
		assert.Equal(t, 1, resp.Validations.MaxConcurrent)
	})

	t.Run("database unreachable", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), true, Options{DB: stubPinger{err: errors.New("connection refused")}})
		rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decode[HealthResponse](t, rec)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unreachable", resp.Database)
		assert.True(t, resp.History)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}
	env := newTestEnv(t, cfg, false, Options{})

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(passingCSV)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(passingCSV))
	req.Header.Set("X-API-Key", "nope")
	assert.Equal(t, http.StatusForbidden, env.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(passingCSV))
	req.Header.Set("X-API-Key", "k2")
	assert.Equal(t, http.StatusOK, env.do(req).Code)

	// Health stays open.
	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ValidateLimit: 1}
	env := newTestEnv(t, cfg, false, Options{})

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(passingCSV)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(passingCSV)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)

	// Other clients and other routes are unaffected.
	req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(passingCSV))
	req.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, env.do(req).Code)
	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestRateLimiter_WindowReset(t *testing.T) {
	s := &Server{}
	rl := s.newRateLimiter(2, time.Minute)
	defer rl.stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.allow("a"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrTooManyValidations, http.StatusServiceUnavailable},
		{core.ErrRunNotFound, http.StatusNotFound},
		{core.ErrHistoryDisabled, http.StatusNotFound},
		{&core.DuplicateAccessionsError{}, http.StatusUnprocessableEntity},
		{&core.MissingColumnError{Column: "ABC-1"}, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestHandleValidate_LogsRunWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	env := newTestEnv(t, testConfig(), false, Options{})
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/validate?name=ref.csv", strings.NewReader(passingCSV)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ValidateResponse](t, rec)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "validation served") {
			line = l
		}
	}
	require.NotEmpty(t, line, buf.String())
	assert.Contains(t, line, "run_id="+resp.Run.ID.String())
	assert.Contains(t, line, "source=ref.csv")
	assert.Contains(t, line, "request_id=")
	assert.Contains(t, line, "http_status=200")
}

func TestNewErrorResponse(t *testing.T) {
	coded := newErrorResponse(core.NewUserError(fmt.Errorf("lookup: %w", core.ErrRunNotFound)))
	assert.Equal(t, "RUN001", coded.Code)
	assert.Equal(t, "lookup: "+core.ErrRunNotFound.Error(), coded.Error)

	internal := newErrorResponse(core.NewUserError(errors.New("pq: connection reset on 10.0.0.7")))
	assert.Equal(t, "ERR000", internal.Code)
	assert.Equal(t, internal.Message, internal.Error)
	assert.NotContains(t, internal.Error, "10.0.0.7")
}
