// Package cloudinary uploads criterion photos to a hosted image service
// through an unsigned upload preset.
package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
	"github.com/kirillkom/catman-audit/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

type Options struct {
	BaseURL            string
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

type Uploader struct {
	baseURL    string
	cloudName  string
	preset     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cloudName, preset string, options Options) (*Uploader, error) {
	if strings.TrimSpace(cloudName) == "" {
		return nil, fmt.Errorf("cloudinary: cloud name is required")
	}
	if strings.TrimSpace(preset) == "" {
		return nil, fmt.Errorf("cloudinary: upload preset is required")
	}
	baseURL := strings.TrimRight(options.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := options.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Uploader{
		baseURL:    baseURL,
		cloudName:  cloudName,
		preset:     preset,
		httpClient: client,
		executor:   options.ResilienceExecutor,
	}, nil
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload posts the image and returns its https delivery URL.
func (u *Uploader) Upload(ctx context.Context, photo ports.PhotoUpload) (string, error) {
	data, err := io.ReadAll(photo.Body)
	if err != nil {
		return "", domain.WrapError(domain.ErrUpload, "read photo", err)
	}

	var url string
	call := func(ctx context.Context) error {
		got, err := u.post(ctx, photo, data)
		if err != nil {
			return err
		}
		url = got
		return nil
	}

	if u.executor != nil {
		err = u.executor.Execute(ctx, "cloudinary.upload", call, classifyCloudinaryError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", domain.WrapError(domain.ErrUpload, "cloudinary upload", wrapTemporaryIfNeeded("cloudinary upload", err))
	}
	return url, nil
}

func (u *Uploader) post(ctx context.Context, photo ports.PhotoUpload, data []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("upload_preset", u.preset); err != nil {
		return "", fmt.Errorf("write preset field: %w", err)
	}
	filename := photo.Filename
	if filename == "" {
		filename = "photo"
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write file part: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", u.baseURL, u.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.SecureURL != "" {
		return out.SecureURL, nil
	}
	if out.URL != "" {
		return out.URL, nil
	}
	return "", fmt.Errorf("cloudinary upload response has no url")
}
