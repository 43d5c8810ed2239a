package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"sunto-go/internal/logger"
	"sunto-go/internal/types"
)

const (
	msgUpload   = "Errore durante il caricamento del file"
	msgCreate   = "Errore durante la creazione del lavoro di trascrizione"
	msgPoll     = "Errore durante il controllo dello stato della trascrizione"
	msgNoConfig = "Configurazione API mancante"

	msgInternal = "Errore durante l'elaborazione della trascrizione"
)

// Client talks to the AssemblyAI v2 REST API.
type Client struct {
	baseURL      string
	apiKey       string
	retries      uint64
	httpClient   *http.Client
	uploadClient *http.Client
	log          *logger.Logger
}

type ClientOptions struct {
	BaseURL string
	APIKey  string
	// Retries bounds extra attempts for Upload and CreateJob. GetJob is
	// never retried.
	Retries uint64
	// Timeout bounds each JSON call. Uploads are not subject to it.
	Timeout time.Duration
	// UploadTimeout bounds a whole upload including the body. Zero leaves
	// it to the caller's context.
	UploadTimeout time.Duration
	// HTTPClient replaces both the JSON and the upload client.
	HTTPClient *http.Client
	Logger     *logger.Logger
}

func NewClient(opts ClientOptions) *Client {
	hc, uc := opts.HTTPClient, opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
		uc = &http.Client{Timeout: opts.UploadTimeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		retries:      opts.Retries,
		httpClient:   hc,
		uploadClient: uc,
		log:          log,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code"`
	Punctuate    bool   `json:"punctuate"`
	FormatText   bool   `json:"format_text"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Upload sends the raw file and returns the provider's upload URL. A
// positive size is sent as the exact Content-Length.
func (c *Client) Upload(ctx context.Context, file io.ReadSeeker, size int64) (string, error) {
	if c.apiKey == "" {
		return "", types.Errorf(types.KindConfiguration, msgNoConfig)
	}
	newReq := func() (*http.Request, error) {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", io.NopCloser(file))
		if err != nil {
			return nil, err
		}
		if size > 0 {
			req.ContentLength = size
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		return req, nil
	}
	var resp uploadResponse
	if err := c.doJSON(ctx, c.uploadClient, newReq, &resp, c.retries, types.KindUploadRejected, msgUpload); err != nil {
		return "", err
	}
	if resp.UploadURL == "" {
		return "", types.Wrap(types.KindUploadRejected, msgUpload, errors.New("upload response without upload_url"))
	}
	c.log.WithField("upload_url", resp.UploadURL).Debug("file uploaded")
	return resp.UploadURL, nil
}

// CreateJob requests a transcription of audioURL in language.
func (c *Client) CreateJob(ctx context.Context, audioURL, language string) (string, error) {
	if c.apiKey == "" {
		return "", types.Errorf(types.KindConfiguration, msgNoConfig)
	}
	body, err := json.Marshal(transcriptRequest{
		AudioURL:     audioURL,
		LanguageCode: language,
		Punctuate:    true,
		FormatText:   true,
	})
	if err != nil {
		return "", types.Wrap(types.KindInternal, msgCreate, err)
	}
	newReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	var resp transcriptResponse
	if err := c.doJSON(ctx, c.httpClient, newReq, &resp, c.retries, types.KindJobCreationFailed, msgCreate); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", types.Wrap(types.KindJobCreationFailed, msgCreate, errors.New("transcript response without id"))
	}
	return resp.ID, nil
}

// GetJob fetches the current state of a job. Failures are not retried.
func (c *Client) GetJob(ctx context.Context, id string) (types.Job, error) {
	if c.apiKey == "" {
		return types.Job{}, types.Errorf(types.KindConfiguration, msgNoConfig)
	}
	endpoint := c.baseURL + "/transcript/" + url.PathEscape(id)
	newReq := func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}
	var resp transcriptResponse
	if err := c.doJSON(ctx, c.httpClient, newReq, &resp, 0, types.KindPollingFailed, msgPoll); err != nil {
		return types.Job{}, err
	}
	return types.Job{
		ID:     resp.ID,
		Status: types.JobStatus(resp.Status),
		Text:   resp.Text,
		Error:  resp.Error,
	}, nil
}

// doJSON performs the request built by newReq, retrying network errors and
// 5xx responses up to retries extra times. 4xx responses are permanent.
// Provider bodies are logged and never placed in the returned error message.
func (c *Client) doJSON(ctx context.Context, hc *http.Client, newReq func() (*http.Request, error), target any, retries uint64, kind types.Kind, msg string) error {
	var lastErr error
	op := func() error {
		req, err := newReq()
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", c.apiKey)

		log := c.log.WithFields(logrus.Fields{"method": req.Method, "endpoint": req.URL.Path})
		resp, err := hc.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("assemblyai request failed")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("assemblyai status %d", resp.StatusCode)
			log.WithField("http_status", resp.StatusCode).WithField("body", string(body)).Error("assemblyai error response")
			if resp.StatusCode >= 500 {
				return lastErr
			}
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %w", err)
			log.WithField("body", string(body)).Error("assemblyai response not JSON")
			return backoff.Permanent(lastErr)
		}
		lastErr = nil
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.Wrap(types.KindInternal, "richiesta annullata", ctxErr)
		}
		if lastErr == nil {
			lastErr = err
		}
		return types.Wrap(kind, msg, lastErr)
	}
	return nil
}
