package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lungscan/apiserver/config"
	"github.com/lungscan/apiserver/internal/relay"
	"github.com/lungscan/apiserver/internal/services"
	"github.com/lungscan/apiserver/internal/storage"
	"github.com/lungscan/apiserver/internal/store"
	"github.com/lungscan/apiserver/types"
)

const testJWTSecret = "test-secret"

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[int]types.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.byID[user.ID] = user
	return user, nil
}

type fakePredictionRepo struct {
	mu     sync.Mutex
	nextID int64
	preds  []types.Prediction
}

func (r *fakePredictionRepo) Create(ctx context.Context, pred types.Prediction) (types.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	pred.ID = r.nextID
	pred.CreatedAt = time.Now()
	r.preds = append(r.preds, pred)
	return pred, nil
}

func (r *fakePredictionRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]types.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Prediction
	for i := len(r.preds) - 1; i >= 0 && len(out) < limit; i-- {
		pred := r.preds[i]
		if pred.UserID != nil && *pred.UserID == userID {
			out = append(out, pred)
		}
	}
	return out, nil
}

func (r *fakePredictionRepo) all() []types.Prediction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Prediction(nil), r.preds...)
}

type fakeReportRepo struct {
	mu      sync.Mutex
	nextID  int64
	reports []types.Report
}

func (r *fakeReportRepo) Create(ctx context.Context, report types.Report) (types.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	report.ID = r.nextID
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	r.reports = append(r.reports, report)
	return report, nil
}

func (r *fakeReportRepo) GetByID(ctx context.Context, id int64) (types.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, report := range r.reports {
		if report.ID == id {
			return report, nil
		}
	}
	return types.Report{}, store.ErrNotFound
}

func (r *fakeReportRepo) all() []types.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Report(nil), r.reports...)
}

type fakeContactRepo struct {
	mu     sync.Mutex
	nextID int64
	msgs   []types.ContactMessage
}

func (r *fakeContactRepo) Create(ctx context.Context, msg types.ContactMessage) (types.ContactMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg.ID = r.nextID
	r.msgs = append(r.msgs, msg)
	return msg, nil
}

func (r *fakeContactRepo) all() []types.ContactMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ContactMessage(nil), r.msgs...)
}

// testEnv wires the full route surface over in-memory repositories,
// local-disk storage, and a caller-supplied inference endpoint.
type testEnv struct {
	router     *chi.Mux
	userRepo    *fakeUserRepo
	predRepo    *fakePredictionRepo
	reportRepo  *fakeReportRepo
	contactRepo *fakeContactRepo
	uploadsDir  string
}

func newTestEnv(t *testing.T, inferenceURL string) *testEnv {
	t.Helper()

	uploadsDir := t.TempDir()
	uploadStorage, err := storage.NewFromConfig(context.Background(), config.StorageConfig{
		Backend:    "local",
		UploadsDir: uploadsDir,
	})
	if err != nil {
		t.Fatalf("storage.NewFromConfig() unexpected error: %v", err)
	}

	relayClient, err := relay.NewClient(config.InferenceConfig{
		BaseURL: inferenceURL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("relay.NewClient() unexpected error: %v", err)
	}

	env := &testEnv{
		userRepo:    newFakeUserRepo(),
		predRepo:    &fakePredictionRepo{},
		reportRepo:  &fakeReportRepo{},
		contactRepo: &fakeContactRepo{},
		uploadsDir:  uploadsDir,
	}

	userService := services.NewUserService(env.userRepo)
	predictionService := services.NewPredictionService(env.predRepo, nil)
	reportService := services.NewReportService(env.reportRepo)
	contactService := services.NewContactService(env.contactRepo)

	router := chi.NewRouter()
	router.Route("/api/v1/auth", func(r chi.Router) {
		AuthRouter(r, userService, testJWTSecret)
	})
	router.Route("/api/v1/predict", func(r chi.Router) {
		PredictRouter(r, predictionService, relayClient, uploadStorage, testJWTSecret)
	})
	router.Route("/api/v1/scan", func(r chi.Router) {
		ScanRouter(r, userService, testJWTSecret)
	})
	router.Route("/api/v1/contact", func(r chi.Router) {
		ContactRouter(r, contactService, userService, testJWTSecret)
	})
	router.Route("/api/report", func(r chi.Router) {
		ReportRouter(r, reportService, userService, uploadStorage, testJWTSecret)
	})
	router.Route("/uploads", func(r chi.Router) {
		UploadsRouter(r, uploadStorage)
	})

	env.router = router
	return env
}

func (env *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns its token.
func (env *testEnv) register(t *testing.T, email, password, role string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"email":           email,
		"password":        password,
		"confirmPassword": password,
		"role":            role,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("register returned empty token")
	}
	return resp.Token
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// buildMultipart assembles a multipart body from string fields and an
// optional file.
func buildMultipart(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%s) unexpected error: %v", key, err)
		}
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			`form-data; name="`+file.field+`"; filename="`+file.filename+`"`)
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart() unexpected error: %v", err)
		}
		if _, err := part.Write(file.data); err != nil {
			t.Fatalf("part.Write() unexpected error: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close() unexpected error: %v", err)
	}
	return &body, writer.FormDataContentType()
}
