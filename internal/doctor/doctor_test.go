package doctor

import (
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"hark/internal/config"
)

func TestReportOK(t *testing.T) {
	passing := Report{Checks: []Check{{Name: "a", Pass: true}, {Name: "b", Pass: true}}}
	require.True(t, passing.OK())

	failing := Report{Checks: []Check{{Name: "a", Pass: true}, {Name: "b", Pass: false}}}
	require.False(t, failing.OK())
}

func TestReportString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "config", Pass: true, Message: "loaded"},
		{Name: "audio.device", Pass: false, Message: "no devices"},
	}}

	text := report.String()
	require.Contains(t, text, "[OK] config: loaded")
	require.Contains(t, text, "[FAIL] audio.device: no devices")
	require.False(t, strings.HasSuffix(text, "\n"))
}

func TestCheckWakeWords(t *testing.T) {
	pass := checkWakeWords(config.Config{WakeWords: []string{"hark", "assistant"}})
	require.True(t, pass.Pass)
	require.Contains(t, pass.Message, "hark, assistant")

	fail := checkWakeWords(config.Config{})
	require.False(t, fail.Pass)
}

func TestCheckASREndpoint(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	pass := checkASREndpoint(config.Config{ASR: config.ASRConfig{Endpoint: listener.Addr().String()}})
	require.True(t, pass.Pass)

	fail := checkASREndpoint(config.Config{ASR: config.ASRConfig{Endpoint: "127.0.0.1:1"}})
	require.False(t, fail.Pass)

	empty := checkASREndpoint(config.Config{})
	require.False(t, empty.Pass)
	require.Contains(t, empty.Message, "empty")
}

func TestCheckPiperMissingBinary(t *testing.T) {
	check := checkPiper(config.Config{TTS: config.TTSConfig{PiperPath: "/definitely/missing/piper"}})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "not found")
}

func TestCheckOllama(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/version", r.URL.Path)
		_, _ = w.Write([]byte(`{"version":"0.6.0"}`))
	}))
	defer server.Close()

	pass := checkOllama(config.Config{Ollama: config.OllamaConfig{Host: server.URL, Model: "llama3.1"}})
	require.True(t, pass.Pass)
	require.Contains(t, pass.Message, "llama3.1")

	empty := checkOllama(config.Config{})
	require.False(t, empty.Pass)
}

func TestCheckOllamaHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	check := checkOllama(config.Config{Ollama: config.OllamaConfig{Host: server.URL}})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 500")
}

func TestCheckStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	check := checkStore(config.Config{Store: config.StoreConfig{Path: path}})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, path)
}

func TestRunReportsConfigWarnings(t *testing.T) {
	loaded := config.Loaded{
		Path:   "/tmp/hark.yaml",
		Exists: true,
		Config: config.Config{
			WakeWords: []string{"hark"},
			Store:     config.StoreConfig{Path: filepath.Join(t.TempDir(), "memory.db")},
		},
		Warnings: []config.Warning{{Message: "poll_interval_seconds must be positive"}},
	}

	report := Run(loaded)
	require.False(t, report.OK())

	var sawWarning bool
	for _, check := range report.Checks {
		if check.Name == "config.warning" {
			sawWarning = true
			require.Contains(t, check.Message, "poll_interval_seconds")
		}
	}
	require.True(t, sawWarning)
}
