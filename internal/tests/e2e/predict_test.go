//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/lungscan/apiserver/config"
	"github.com/lungscan/apiserver/internal/server"
)

const (
	serverPort = 18080
)

// inferenceStub stands in for the Python model service.
var inferenceStub *httptest.Server

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	inferenceStub = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/predict" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"case":"Malignant","confidence":91.2}`))
	}))

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		inferenceStub.Close()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		inferenceStub.Close()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	inferenceStub.Close()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestPredictionLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("patient_%d@example.com", time.Now().UnixNano())
	password := "testpass123!"

	token, err := registerUser(t, baseURL, email, password, "")
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	predicted, err := predictImage(t, baseURL, token)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if predicted.Case != "Malignant" {
		t.Fatalf("unexpected prediction case: %q", predicted.Case)
	}
	if predicted.ID == 0 {
		t.Fatalf("expected prediction ID to be set")
	}
	if !strings.HasPrefix(predicted.ImageURL, "/uploads/") {
		t.Fatalf("unexpected imageUrl: %q", predicted.ImageURL)
	}

	if err := fetchStoredImage(t, baseURL, predicted.ImageURL); err != nil {
		t.Fatalf("fetch stored image: %v", err)
	}

	history, err := fetchHistory(t, baseURL, token)
	if err != nil {
		t.Fatalf("fetch history: %v", err)
	}
	if len(history) != 1 || history[0].ID != predicted.ID {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestReportLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("doctor_%d@example.com", time.Now().UnixNano())

	token, err := registerUser(t, baseURL, email, "testpass123!", "doctor")
	if err != nil {
		t.Fatalf("register doctor: %v", err)
	}

	if err := saveReport(t, baseURL, token); err != nil {
		t.Fatalf("save report: %v", err)
	}
}

type predictResponse struct {
	ID       int64   `json:"id"`
	Case     string  `json:"case"`
	ImageURL string  `json:"imageUrl"`
	Conf     float64 `json:"confidence"`
}

type historyEntry struct {
	ID int64 `json:"id"`
}

type authResponse struct {
	Token string `json:"token"`
}

func registerUser(t *testing.T, baseURL, email, password, role string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"email":           email,
		"password":        password,
		"confirmPassword": password,
		"role":            role,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/auth/register", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in register response")
	}
	return parsed.Token, nil
}

func predictImage(t *testing.T, baseURL, token string) (predictResponse, error) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := addImagePart(writer, "file", "scan.png"); err != nil {
		return predictResponse{}, err
	}
	if err := writer.Close(); err != nil {
		return predictResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/predict", &body)
	if err != nil {
		return predictResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return predictResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return predictResponse{}, fmt.Errorf("predict status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return predictResponse{}, err
	}
	return parsed, nil
}

func fetchStoredImage(t *testing.T, baseURL, imageURL string) error {
	t.Helper()

	resp, err := http.Get(baseURL + imageURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stored image status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("stored image is empty")
	}
	return nil
}

func fetchHistory(t *testing.T, baseURL, token string) ([]historyEntry, error) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/predict/history", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("history status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed struct {
		Data []historyEntry `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func saveReport(t *testing.T, baseURL, token string) error {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	_ = writer.WriteField("patientName", "Jane Roe")
	_ = writer.WriteField("mobileNumber", "555-0100")
	_ = writer.WriteField("address", "12 Elm St")
	_ = writer.WriteField("ResNet50", `{"case":"Malignant","confidence":91.2}`)
	_ = writer.WriteField("VGG16", `{"case":"Malignant","confidence":88.4}`)
	_ = writer.WriteField("InceptionV3", `{"case":"Benign","confidence":61.0}`)
	_ = writer.WriteField("finalCase", "Malignant")
	if err := addImagePart(writer, "scanImage", "scan.png"); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/report/save", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("save report status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func addImagePart(writer *multipart.Writer, field, filename string) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write([]byte("fake-png-bytes"))
	return err
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	uploadsDir, err := os.MkdirTemp("", "lungscan-e2e-uploads")
	if err != nil {
		return nil, err
	}

	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "lungscan")
	_ = os.Setenv("DB_PASSWORD", "lungscan")
	_ = os.Setenv("DB_NAME", "lungscan_db")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("PY_API", inferenceStub.URL)
	_ = os.Setenv("STORAGE_BACKEND", "local")
	_ = os.Setenv("UPLOADS_DIR", uploadsDir)

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
