// Package relay forwards stored scan images to the external inference
// service and normalizes its heterogeneous responses.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/lungscan/apiserver/config"
)

const (
	predictPath      = "/api/predict"
	formFieldFile    = "file"
	maxResponseBytes = 16 << 20
	defaultTimeout   = 30 * time.Second
)

// ErrUnreachable is returned when the relay never obtained a usable
// response: connection failure, timeout, or a malformed body. Callers
// must not write a prediction record when they see it.
var ErrUnreachable = errors.New("inference service unreachable")

// Response is the normalized answer of the inference service. Exactly
// one of Structured and Raw is populated: Structured when the service
// declared a JSON body, Raw otherwise. Status is passed through to the
// eventual client verbatim.
type Response struct {
	Status     int
	Structured map[string]any
	Raw        string
}

// IsStructured reports whether the service answered with JSON.
func (r Response) IsStructured() bool {
	return r.Structured != nil
}

// OK reports whether the service answered with a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// ResultJSON renders the body as the mapping stored on a prediction
// record: the JSON body itself, or {"raw": <text>} for non-JSON bodies.
func (r Response) ResultJSON() json.RawMessage {
	if r.IsStructured() {
		data, err := json.Marshal(r.Structured)
		if err == nil {
			return data
		}
	}
	data, _ := json.Marshal(struct {
		Raw string `json:"raw"`
	}{Raw: r.Raw})
	return data
}

// Client calls the external inference service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a relay client from config.
func NewClient(cfg config.InferenceConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("inference base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Predict forwards the image bytes as a multipart upload. When
// authorization is non-empty it is forwarded verbatim so the inference
// service can attribute the request itself; otherwise the call proceeds
// unauthenticated.
func (c *Client) Predict(ctx context.Context, filename string, data []byte, authorization string) (Response, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(formFieldFile, filename)
	if err != nil {
		return Response{}, err
	}
	if _, err := part.Write(data); err != nil {
		return Response{}, err
	}
	if err := writer.Close(); err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, &body)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var structured map[string]any
		if err := json.Unmarshal(respBody, &structured); err != nil {
			return Response{}, fmt.Errorf("%w: malformed json response", ErrUnreachable)
		}
		return Response{Status: resp.StatusCode, Structured: structured}, nil
	}

	return Response{Status: resp.StatusCode, Raw: string(respBody)}, nil
}
