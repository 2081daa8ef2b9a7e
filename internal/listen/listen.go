// Package listen turns the continuous microphone stream into discrete
// recognized utterances, swapping recognition grammar between
// wake-phrase listening and free-form command listening.
package listen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hark/internal/asr"
	"hark/internal/audio"
)

// ErrSourceClosed reports that the capture stream ended, usually
// because the daemon is shutting down.
var ErrSourceClosed = errors.New("audio capture stream closed")

// stream is the subset of asr.Stream the listener drives.
type stream interface {
	SendAudio(chunk []byte) error
	Results() <-chan asr.Result
	Close(ctx context.Context) error
	Cancel() error
}

// dialFunc opens one recognition stream.
type dialFunc func(ctx context.Context, cfg asr.StreamConfig) (stream, error)

// Listener converts capture chunks into utterances, one recognition
// stream per utterance.
type Listener struct {
	endpoint    string
	wakePhrases []string
	chunks      <-chan []byte

	dial   dialFunc
	volume func(level float64)
}

// Option adjusts listener construction.
type Option func(*Listener)

// WithVolume installs a per-chunk level callback feeding the UI meter.
func WithVolume(fn func(level float64)) Option {
	return func(l *Listener) { l.volume = fn }
}

// New builds a listener over an already-started capture chunk stream.
func New(endpoint string, wakePhrases []string, chunks <-chan []byte, opts ...Option) *Listener {
	l := &Listener{
		endpoint:    endpoint,
		wakePhrases: wakePhrases,
		chunks:      chunks,
		dial: func(ctx context.Context, cfg asr.StreamConfig) (stream, error) {
			return asr.DialStream(ctx, cfg)
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NextUtterance blocks until the recognizer commits one final result
// and returns its text. Silence segments come back as an empty string,
// not an error; callers loop. With wake set, recognition is constrained
// to the configured wake phrases.
func (l *Listener) NextUtterance(ctx context.Context, wake bool) (string, error) {
	cfg := asr.StreamConfig{
		Endpoint:    l.endpoint,
		SampleRate:  audio.SampleRate,
		DialTimeout: 5 * time.Second,
	}
	if wake {
		cfg.Phrases = l.wakePhrases
	}

	s, err := l.dial(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("open recognition stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = s.Cancel()
			return "", ctx.Err()

		case chunk, ok := <-l.chunks:
			if !ok {
				_ = s.Cancel()
				return "", ErrSourceClosed
			}
			if l.volume != nil {
				l.volume(audio.RMS(chunk))
			}
			if err := s.SendAudio(chunk); err != nil {
				_ = s.Cancel()
				return "", fmt.Errorf("send audio chunk: %w", err)
			}

		case result, ok := <-s.Results():
			if !ok {
				err := s.Close(ctx)
				if err == nil {
					err = errors.New("recognition stream ended without a final result")
				}
				return "", err
			}
			if !result.Final {
				continue
			}
			_ = s.Cancel()
			return result.Text, nil
		}
	}
}
