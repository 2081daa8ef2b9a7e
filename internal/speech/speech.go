// Package speech synthesizes spoken responses with Piper and plays
// them through the default Pulse sink.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"hark/internal/audio"
	"hark/internal/config"
)

// Speaker serializes speech output from the dispatcher and the
// reminder poller so responses never talk over each other.
type Speaker struct {
	piperPath string
	voicePath string
	logger    *slog.Logger

	mu sync.Mutex

	synthesize func(ctx context.Context, text string) ([]byte, error)
	play       func(samples []int16) error
}

// New builds a speaker from TTS configuration.
func New(cfg config.TTSConfig, logger *slog.Logger) *Speaker {
	s := &Speaker{
		piperPath: cfg.PiperPath,
		voicePath: cfg.VoicePath,
		logger:    logger,
		play:      audio.PlayPCM,
	}
	s.synthesize = s.runPiper
	return s
}

// Speak renders text to PCM and blocks until playback drains. Empty
// text is a no-op.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pcm, err := s.synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	if len(pcm) == 0 {
		return nil
	}

	s.logger.Debug("speaking", "chars", len(text), "pcm_bytes", len(pcm))

	if err := s.play(audio.BytesToSamples(pcm)); err != nil {
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}

// runPiper pipes text through the Piper binary and collects raw s16 PCM.
func (s *Speaker) runPiper(ctx context.Context, text string) ([]byte, error) {
	piper := s.piperPath
	if piper == "" {
		piper = "piper"
	}

	args := []string{"--output-raw"}
	if s.voicePath != "" {
		args = append(args, "--model", s.voicePath)
	}

	cmd := exec.CommandContext(ctx, piper, args...)
	cmd.Stdin = strings.NewReader(text + "\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("piper: %w: %s", err, detail)
		}
		return nil, fmt.Errorf("piper: %w", err)
	}

	return stdout.Bytes(), nil
}
