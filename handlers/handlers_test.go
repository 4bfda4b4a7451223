package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensiboost/config"
	"sensiboost/db"
	"sensiboost/middleware"
	"sensiboost/models"
	"sensiboost/services"
)

const testToken = "s3cret"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRecommender struct {
	query, device string
}

func (s *stubRecommender) Basic(_ context.Context, query, device string) models.BasicResult {
	s.query, s.device = query, device
	return models.BasicResult{
		Source:     models.SourceHeuristic,
		Hits:       []models.Snippet{},
		Suggestion: models.Profile{General: 120, DPI: 320},
	}
}

func (s *stubRecommender) Premium(_ context.Context, query, device string) models.PremiumResult {
	s.query, s.device = query, device
	return models.PremiumResult{OK: true, Source: models.SourceFallback, Parsed: models.Guide{Steps: []string{"x"}}}
}

type testEnv struct {
	router *gin.Engine
	cfg    *config.Config
	rec    *stubRecommender
	ledger *services.Ledger
	store  *services.ReceiptStore
	reg    *prometheus.Registry
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Admin:    config.Admin{Token: testToken},
		Uploads:  config.Uploads{Dir: filepath.Join(dir, "uploads"), MaxBytes: 6 << 20},
		Payment:  config.Payment{NequiNumber: "3001234567", PremiumPrice: "10000 COP"},
		Features: config.Features{MetricsEnabled: true},
	}
	for _, m := range mutate {
		m(cfg)
	}

	d, err := db.Open(db.DriverSQLite, filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate())

	store, err := services.NewReceiptStore(cfg.Uploads.Dir, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	env := &testEnv{
		cfg:    cfg,
		rec:    &stubRecommender{},
		ledger: services.NewLedger(d, nil),
		store:  store,
		reg:    reg,
	}
	h := New(Deps{
		Config:      cfg,
		Catalog:     services.DefaultCatalog(),
		Recommender: env.rec,
		Ledger:      env.ledger,
		Store:       store,
		Metrics:     services.NewMetrics(reg),
		Gatherer:    reg,
	})
	env.router = gin.New()
	h.Register(env.router, false)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) admin(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set(middleware.AdminTokenHeader, testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(req)
}

func uploadRequest(t *testing.T, email, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if email != "" {
		require.NoError(t, mw.WriteField("email", email))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/nequi/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestBasic(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/ai/basic?device=Redmi+9", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.DefaultQuery, env.rec.query)
	assert.Equal(t, "Redmi 9", env.rec.device)

	body := decode(t, w)
	assert.Equal(t, "heuristic", body["source"])
	assert.Equal(t, []any{}, body["hits"])

	env.do(httptest.NewRequest(http.MethodGet, "/ai/basic?q=sensi+pro", nil))
	assert.Equal(t, "sensi pro", env.rec.query)
}

func TestPremium(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/ai/premium", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON", decode(t, w)["error"])

	req = httptest.NewRequest(http.MethodPost, "/ai/premium",
		strings.NewReader(`{"query":"q","device":"Poco X3","email":"a@x.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
	assert.Equal(t, "Poco X3", env.rec.device)
}

func TestPremium_RequiresApprovedAccount(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Features.RequirePremium = true })
	body := `{"query":"q","device":"Poco X3","email":"a@x.com"}`

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ai/premium", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return env.do(req)
	}

	assert.Equal(t, http.StatusForbidden, post().Code)

	rec, err := env.ledger.Submit(context.Background(), "a@x.com", "proof.png")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, post().Code)

	_, err = env.ledger.Approve(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, post().Code)
}

func TestUploadApproveFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(uploadRequest(t, "A@x.com", "proof.PNG", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	up := decode(t, w)
	assert.Equal(t, true, up["ok"])
	file := up["file"].(string)
	assert.True(t, strings.HasSuffix(file, ".png"), file)

	w = env.admin(http.MethodGet, "/admin/pending-nequi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending struct {
		Items []models.ReceiptRecord `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending.Items, 1)
	assert.Equal(t, "a@x.com", pending.Items[0].Email)
	assert.Equal(t, file, pending.Items[0].Filename)

	// admin can fetch the stored receipt
	w = env.admin(http.MethodGet, "/uploads/"+file, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())

	id := pending.Items[0].ID
	approve := []byte(`{"id":` + jsonInt(id) + `}`)
	w = env.admin(http.MethodPost, "/admin/approve-nequi", approve)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])

	// second approval is accepted and changes nothing
	w = env.admin(http.MethodPost, "/admin/approve-nequi", approve)
	assert.Equal(t, true, decode(t, w)["ok"])

	w = env.admin(http.MethodGet, "/admin/premium-users", nil)
	var users struct {
		Items []models.PremiumAccount `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users.Items, 1)
	assert.Equal(t, models.PremiumSourceManualAdmin, users.Items[0].Source)

	w = env.do(httptest.NewRequest(http.MethodGet, "/premium/status?email=A@X.com", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["premium"])

	w = env.admin(http.MethodGet, "/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pending_receipts":0,"approved_receipts":1,"premium_accounts":1}`, w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sensiboost_receipts_uploaded_total 1")
	assert.Contains(t, w.Body.String(), "sensiboost_receipts_approved_total 1")
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestUpload_Rejects(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		email    string
		filename string
	}{
		{"missing email", "", "proof.png"},
		{"missing file", "a@x.com", ""},
		{"pdf", "a@x.com", "proof.pdf"},
		{"no extension", "a@x.com", "proof"},
		{"bad email", "nobody", "proof.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(uploadRequest(t, tt.email, tt.filename, []byte("x")))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/nequi/upload", strings.NewReader(`{"email":"a@x.com"}`))
		req.Header.Set("Content-Type", "application/json")
		assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
	})

	pending, err := env.ledger.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Uploads.MaxBytes = 1024 })

	w := env.do(uploadRequest(t, "a@x.com", "proof.png", bytes.Repeat([]byte("x"), 4096)))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)

	pending, err := env.ledger.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAdminRoutes_Forbidden(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/admin/pending-nequi",
		"/admin/premium-users",
		"/admin/premium-users.xlsx",
		"/admin/stats",
		"/uploads/anything.png",
	} {
		w := env.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusForbidden, w.Code, target)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/approve-nequi", strings.NewReader(`{"id":1}`))
	req.Header.Set(middleware.AdminTokenHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, env.do(req).Code)
}

func TestApprove_BadInput(t *testing.T) {
	env := newTestEnv(t)

	w := env.admin(http.MethodPost, "/admin/approve-nequi", []byte(`{"id":12345}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["ok"])

	w = env.admin(http.MethodPost, "/admin/approve-nequi", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.admin(http.MethodPost, "/admin/approve-nequi", []byte(`{"id":"x"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	accounts, err := env.ledger.ListPremium(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestServeUpload_NotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"missing.png", "..%2Ftest.db"} {
		w := env.admin(http.MethodGet, "/uploads/"+name, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, name)
	}
}

func TestPremiumUsersXLSX(t *testing.T) {
	env := newTestEnv(t)

	w := env.admin(http.MethodGet, "/admin/premium-users.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "premium-users-")
	// xlsx is a zip archive
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestPremiumStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/premium/status?email=a@x.com", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["premium"])
	assert.NotContains(t, body, "since")

	w = env.do(httptest.NewRequest(http.MethodGet, "/premium/status", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetectDevice(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		headers map[string]string
		device  any
		tier    string
	}{
		{"client hint", map[string]string{"Sec-CH-UA-Model": `"Galaxy S23"`}, "Galaxy S23", "high"},
		{"user agent", map[string]string{"User-Agent": "Mozilla/5.0 (Linux; Android 10; Redmi 9A Build/QP1A)"}, "Redmi 9A", "low"},
		{"hint wins", map[string]string{"Sec-CH-UA-Model": `"Moto E7"`, "User-Agent": "Redmi 9"}, "Moto E7", "low"},
		{"unknown", map[string]string{"User-Agent": "curl/8.0"}, nil, "medium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/detect-device", nil)
			req.Header.Del("User-Agent")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			body := decode(t, env.do(req))
			assert.Equal(t, tt.device, body["device"])
			assert.Equal(t, tt.tier, body["tier"])
		})
	}
}

func TestHealthAndPublicConfig(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = env.do(httptest.NewRequest(http.MethodGet, "/config/public", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "3001234567", body["nequi_number"])
	assert.Equal(t, "10000 COP", body["premium_price"])
}

func TestMetricsDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Features.MetricsEnabled = false })

	w := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIndex(t *testing.T) {
	cfg := &config.Config{Payment: config.Payment{NequiNumber: "3001234567", PremiumPrice: "10000 COP"}}
	h := New(Deps{Config: cfg, Catalog: services.DefaultCatalog()})

	r := gin.New()
	r.LoadHTMLGlob("../templates/*")
	r.GET("/", h.Index)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "3001234567")
	assert.Contains(t, w.Body.String(), services.DefaultQuery)
}
