package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/multierr"
)

// DefaultOpenAIModel is the hosted Whisper model.
const DefaultOpenAIModel = openai.AudioModelWhisper1

// OpenAIModel transcribes through the OpenAI audio API. Any compatible
// server can be used with WithBaseURL.
type OpenAIModel struct {
	client *openai.Client
	model  openai.AudioModel
}

var _ Model = (*OpenAIModel)(nil)

type openAIConfig struct {
	model      openai.AudioModel
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// OpenAIOption configures NewOpenAIModel.
type OpenAIOption func(*openAIConfig)

// WithModel selects a model other than whisper-1.
func WithModel(name string) OpenAIOption {
	return func(c *openAIConfig) { c.model = openai.AudioModel(name) }
}

// WithBaseURL points the client at another endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *openAIConfig) { c.httpClient = hc }
}

// WithMaxRetries sets how often a failed request is retried.
func WithMaxRetries(n int) OpenAIOption {
	return func(c *openAIConfig) { c.maxRetries = n }
}

// NewOpenAIModel creates a hosted Whisper model.
func NewOpenAIModel(apiKey string, opts ...OpenAIOption) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	cfg := openAIConfig{
		model:      DefaultOpenAIModel,
		httpClient: http.DefaultClient,
		maxRetries: 2,
	}
	for _, o := range opts {
		o(&cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(cfg.httpClient),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(clientOpts...)
	return &OpenAIModel{client: &client, model: cfg.model}, nil
}

func (m *OpenAIModel) Name() string { return string(m.model) }

// Close releases nothing; the HTTP client is shared.
func (m *OpenAIModel) Close() error { return nil }

// verboseTranscription is the verbose_json body, which the SDK's
// Transcription type only partly models.
type verboseTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Words []struct {
		Word        string  `json:"word"`
		Start       float64 `json:"start"`
		End         float64 `json:"end"`
		Probability float64 `json:"probability"`
	} `json:"words"`
}

// Transcribe uploads the file with word and segment timestamps at
// temperature 0.
func (m *OpenAIModel) Transcribe(ctx context.Context, audioPath string, opts Options) (res *RawResult, err error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	params := openai.AudioTranscriptionNewParams{
		File:                   openai.File(f, filepath.Base(audioPath), "audio/wav"),
		Model:                  m.model,
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word", "segment"},
		Temperature:            openai.Float(0),
	}
	if opts.Language != "" {
		params.Language = openai.String(opts.Language)
	}
	if opts.Prompt != "" {
		params.Prompt = openai.String(opts.Prompt)
	}

	resp, err := m.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", filepath.Base(audioPath), err)
	}

	var body verboseTranscription
	if err := json.Unmarshal([]byte(resp.RawJSON()), &body); err != nil {
		return nil, fmt.Errorf("decode transcription: %w", err)
	}

	res = &RawResult{Text: body.Text, Language: body.Language, Duration: body.Duration}
	for _, s := range body.Segments {
		res.Segments = append(res.Segments, RawSegment{ID: s.ID, Start: s.Start, End: s.End, Text: s.Text})
	}
	for _, w := range body.Words {
		res.Words = append(res.Words, RawWord{Word: w.Word, Start: w.Start, End: w.End, Probability: w.Probability})
	}
	return res, nil
}
