package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/logging"
	"github.com/dmitrijs2005/captainslog/internal/models"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "whisper-1"
	DefaultTimeout = 5 * time.Minute
)

// KeySource yields the API key at call time so a key entered after startup
// is picked up. An empty key means none is configured.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a fixed key, typically from configuration or environment.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) { return string(k), nil }

// KeyFunc adapts a function to KeySource.
type KeyFunc func(ctx context.Context) (string, error)

func (f KeyFunc) APIKey(ctx context.Context) (string, error) { return f(ctx) }

type OpenAIClient struct {
	baseURL string
	model   string
	keys    KeySource
	http    *http.Client
	log     logging.Logger
	now     func() time.Time
}

type Option func(*OpenAIClient)

func WithBaseURL(u string) Option {
	return func(c *OpenAIClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithModel(m string) Option {
	return func(c *OpenAIClient) { c.model = m }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *OpenAIClient) { c.http = h }
}

func WithLogger(l logging.Logger) Option {
	return func(c *OpenAIClient) { c.log = l }
}

func NewOpenAIClient(keys KeySource, opts ...Option) *OpenAIClient {
	c := &OpenAIClient{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		keys:    keys,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logging.Nop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// transcriptionResponse covers both json and verbose_json. Language and
// Duration (seconds) are only sent in verbose_json.
type transcriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Transcribe sends the audio once. Failures are reported in the result and
// never retried.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, filename string) Result {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return Failed(FailureMissingCredentials, c.model, fmt.Errorf("load api key: %w", err))
	}
	if strings.TrimSpace(key) == "" {
		c.log.Warn(ctx, "openai api key not configured")
		return Failed(FailureMissingCredentials, c.model, ErrMissingAPIKey)
	}

	body, contentType, err := c.buildForm(audio, filename)
	if err != nil {
		return Failed(FailureTransport, c.model, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", body)
	if err != nil {
		return Failed(FailureTransport, c.model, err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", contentType)

	start := c.now()
	c.log.Debug(ctx, "sending transcription request", "file", filename, "bytes", len(audio))

	resp, err := c.http.Do(req)
	if err != nil {
		return Failed(FailureTransport, c.model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failed(FailureTransport, c.model, err)
	}

	if resp.StatusCode >= 300 {
		return Failed(FailureService, c.model, serviceError(resp.StatusCode, raw))
	}

	var out transcriptionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Failed(FailureService, c.model, fmt.Errorf("decode response: %w", err))
	}

	elapsed := c.now().Sub(start)
	c.log.Info(ctx, "transcription completed", "file", filename, "elapsed", elapsed)

	meta := models.TranscriptionMetadata{
		Status:           models.StatusCompleted,
		Model:            c.model,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Language:         out.Language,
	}
	if out.Duration > 0 {
		meta.Extra = map[string]any{"audio_duration_ms": int64(out.Duration * 1000)}
	}
	return Result{Text: out.Text, Kind: FailureNone, Metadata: meta}
}

// responseFormat asks for verbose_json where the model supports it; the
// gpt-4o transcribe models only accept json.
func (c *OpenAIClient) responseFormat() string {
	if strings.HasPrefix(c.model, "whisper") {
		return "verbose_json"
	}
	return "json"
}

func (c *OpenAIClient) buildForm(audio []byte, filename string) (io.Reader, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", common.AudioContentType)
	fw, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("response_format", c.responseFormat()); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}

func serviceError(status int, raw []byte) error {
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error.Message != "" {
		return fmt.Errorf("openai http %d: %s", status, er.Error.Message)
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("openai http %d: %s", status, msg)
}
