package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verboseBody = `{
  "task": "transcribe",
  "language": "arabic",
  "duration": 2.5,
  "text": " بسم الله ",
  "segments": [
    {"id": 0, "start": 0.0, "end": 1.2345678, "text": " بسم", "avg_logprob": -0.2},
    {"id": 1, "start": 1.2345678, "end": 2.5, "text": " الله "}
  ],
  "words": [
    {"word": " بسم", "start": 0.0, "end": 1.2345678},
    {"word": "الله", "start": 1.3, "end": 2.5}
  ]
}`

func TestOpenAIModelTranscribe(t *testing.T) {
	type captured struct {
		path, auth, model, format, language, filename string
		size                                          int
	}
	var got captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got.model = r.FormValue("model")
		got.format = r.FormValue("response_format")
		got.language = r.FormValue("language")
		if f, hdr, err := r.FormFile("file"); err == nil {
			got.filename = hdr.Filename
			data, _ := io.ReadAll(f)
			got.size = len(data)
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, verboseBody)
	}))
	defer srv.Close()

	audioPath := filepath.Join(t.TempDir(), "sample 1.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("RIFF-not-really"), 0o644))

	m, err := NewOpenAIModel("sk-test", WithBaseURL(srv.URL+"/v1/"), WithMaxRetries(0))
	require.NoError(t, err)
	defer m.Close()

	res, err := m.Transcribe(context.Background(), audioPath, Options{Language: "ar"})
	require.NoError(t, err)

	assert.Equal(t, "/v1/audio/transcriptions", got.path)
	assert.Equal(t, "Bearer sk-test", got.auth)
	assert.Equal(t, "whisper-1", got.model)
	assert.Equal(t, "verbose_json", got.format)
	assert.Equal(t, "ar", got.language)
	assert.Equal(t, "sample 1.wav", got.filename)
	assert.Equal(t, len("RIFF-not-really"), got.size)

	assert.Equal(t, " بسم الله ", res.Text)
	assert.Equal(t, 2.5, res.Duration)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, 1.2345678, res.Segments[0].End)
	require.Len(t, res.Words, 2)
	assert.Equal(t, "الله", res.Words[1].Word)
	assert.Zero(t, res.Words[1].Probability)
	assert.Equal(t, "whisper-1", m.Name())
}

func TestOpenAIModelServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	audioPath := filepath.Join(t.TempDir(), "a.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("x"), 0o644))

	m, err := NewOpenAIModel("sk-bad", WithBaseURL(srv.URL+"/"), WithMaxRetries(0))
	require.NoError(t, err)

	_, err = m.Transcribe(context.Background(), audioPath, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.wav")
}

func TestOpenAIModelMissingFile(t *testing.T) {
	m, err := NewOpenAIModel("sk-test", WithBaseURL("http://127.0.0.1:1/"))
	require.NoError(t, err)
	_, err = m.Transcribe(context.Background(), filepath.Join(t.TempDir(), "none.wav"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewOpenAIModelNeedsKey(t *testing.T) {
	_, err := NewOpenAIModel("")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
