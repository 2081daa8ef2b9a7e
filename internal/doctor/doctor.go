// Package doctor runs runtime readiness diagnostics for config, audio,
// speech, the recognizer daemon, the model server, and the task store.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"hark/internal/audio"
	"hark/internal/config"
	"hark/internal/store"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("%q missing, using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	for _, warning := range cfg.Warnings {
		checks = append(checks, Check{Name: "config.warning", Pass: false, Message: warning.Message})
	}

	checks = append(checks, checkWakeWords(cfg.Config))
	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkASREndpoint(cfg.Config))
	checks = append(checks, checkPiper(cfg.Config))
	checks = append(checks, checkOllama(cfg.Config))
	checks = append(checks, checkStore(cfg.Config))

	return Report{Checks: checks}
}

// checkWakeWords validates that at least one wake phrase is configured.
func checkWakeWords(cfg config.Config) Check {
	if len(cfg.WakeWords) == 0 {
		return Check{Name: "wake_words", Pass: false, Message: "no wake words configured"}
	}
	return Check{
		Name:    "wake_words",
		Pass:    true,
		Message: fmt.Sprintf("listening for %s", strings.Join(cfg.WakeWords, ", ")),
	}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkASREndpoint probes the recognizer daemon with a plain TCP dial;
// the gRPC handshake itself is left to runtime.
func checkASREndpoint(cfg config.Config) Check {
	endpoint := strings.TrimSpace(cfg.ASR.Endpoint)
	if endpoint == "" {
		return Check{Name: "asr.endpoint", Pass: false, Message: "asr.endpoint is empty"}
	}

	conn, err := net.DialTimeout("tcp", endpoint, 2*time.Second)
	if err != nil {
		return Check{Name: "asr.endpoint", Pass: false, Message: fmt.Sprintf("cannot reach %s: %v", endpoint, err)}
	}
	_ = conn.Close()
	return Check{Name: "asr.endpoint", Pass: true, Message: fmt.Sprintf("reachable at %s", endpoint)}
}

// checkPiper validates the speech synthesis binary is runnable.
func checkPiper(cfg config.Config) Check {
	piper := cfg.TTS.PiperPath
	if piper == "" {
		piper = "piper"
	}
	path, err := exec.LookPath(piper)
	if err != nil {
		return Check{Name: "tts.piper", Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", piper)}
	}
	return Check{Name: "tts.piper", Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkOllama probes the model server's version endpoint.
func checkOllama(cfg config.Config) Check {
	base := strings.TrimSpace(cfg.Ollama.Host)
	if base == "" {
		return Check{Name: "ollama.host", Pass: false, Message: "ollama.host is empty"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := strings.TrimRight(base, "/") + "/api/version"
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return Check{Name: "ollama.host", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 256))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Check{Name: "ollama.host", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: "ollama.host", Pass: true, Message: fmt.Sprintf("reachable at %s (model %s)", url, cfg.Ollama.Model)}
}

// checkStore opens the task database read-write and closes it again.
func checkStore(cfg config.Config) Check {
	path := cfg.Store.Path
	if path == "" {
		resolved, err := store.DefaultPath()
		if err != nil {
			return Check{Name: "store", Pass: false, Message: err.Error()}
		}
		path = resolved
	}

	st, err := store.Open(path)
	if err != nil {
		return Check{Name: "store", Pass: false, Message: fmt.Sprintf("open %s: %v", path, err)}
	}
	_ = st.Close()
	return Check{Name: "store", Pass: true, Message: fmt.Sprintf("writable at %s", path)}
}
