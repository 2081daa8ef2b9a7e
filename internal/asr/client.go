// Package asr streams PCM audio to the recognition daemon over gRPC
// and surfaces interim and final transcript results.
package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// streamingRecognizeMethod is the full method name exposed by the
// recognition daemon.
const streamingRecognizeMethod = "/hark.asr.Recognizer/StreamingRecognize"

// jsonCodecName registers the codec used for the recognizer's
// JSON-framed gRPC messages.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec frames recognizer messages as JSON instead of protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

// streamingRecognizeDesc describes the bidi RPC without generated stubs.
var streamingRecognizeDesc = grpc.StreamDesc{
	StreamName:    "StreamingRecognize",
	ServerStreams: true,
	ClientStreams: true,
}

// request is one client frame: exactly one of Config or Audio is set.
type request struct {
	Config *recognitionConfig `json:"config,omitempty"`
	Audio  []byte             `json:"audio,omitempty"`
}

// recognitionConfig opens a stream; Phrases constrains the grammar so
// wake-phrase listening cannot hallucinate arbitrary words.
type recognitionConfig struct {
	SampleRate int      `json:"sample_rate"`
	Channels   int      `json:"channels"`
	Phrases    []string `json:"phrases,omitempty"`
}

// response is one server frame.
type response struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Result is one recognition update delivered to the caller.
type Result struct {
	Text  string
	Final bool
}

// StreamConfig controls stream initialization and recognition behavior.
type StreamConfig struct {
	Endpoint    string
	SampleRate  int
	Phrases     []string
	DialTimeout time.Duration
}

// Stream wraps one active StreamingRecognize RPC lifecycle.
type Stream struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream

	results  chan Result
	recvDone chan struct{}

	mu         sync.Mutex
	recvErr    error
	closedSend bool
}

// DialStream establishes a stream, sends config, and starts the receive loop.
func DialStream(ctx context.Context, cfg StreamConfig) (*Stream, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("asr endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}

	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial asr grpc %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for asr grpc readiness: %w", err)
	}

	stream, err := conn.NewStream(ctx, &streamingRecognizeDesc, streamingRecognizeMethod)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open streaming recognizer: %w", err)
	}

	phrases := make([]string, 0, len(cfg.Phrases))
	for _, phrase := range cfg.Phrases {
		phrase = strings.TrimSpace(phrase)
		if phrase != "" {
			phrases = append(phrases, phrase)
		}
	}

	initial := request{Config: &recognitionConfig{
		SampleRate: cfg.SampleRate,
		Channels:   1,
		Phrases:    phrases,
	}}
	if err := stream.SendMsg(&initial); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send initial streaming config: %w", err)
	}

	s := &Stream{
		conn:     conn,
		stream:   stream,
		results:  make(chan Result, 16),
		recvDone: make(chan struct{}),
	}
	go s.recvLoop()
	return s, nil
}

// recvLoop continuously receives recognition responses until stream close/error.
func (s *Stream) recvLoop() {
	defer close(s.recvDone)
	defer close(s.results)

	for {
		var resp response
		err := s.stream.RecvMsg(&resp)
		if err == nil {
			text := cleanTranscript(resp.Text)
			if text == "" && !resp.Final {
				continue
			}
			// Drop updates rather than block when the reader is gone,
			// so Close can always drain the loop.
			select {
			case s.results <- Result{Text: text, Final: resp.Final}:
			default:
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}

		s.mu.Lock()
		s.recvErr = err
		s.mu.Unlock()
		return
	}
}

// Results returns the recognition update stream. It is closed when the
// RPC ends; check Err afterwards.
func (s *Stream) Results() <-chan Result {
	return s.results
}

// Err reports a terminal receive-loop failure, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recvErr != nil && !isCancelled(s.recvErr) {
		return s.recvErr
	}
	return nil
}

// SendAudio sends one chunk of PCM audio over the active stream.
func (s *Stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	closed := s.closedSend
	recvErr := s.recvErr
	s.mu.Unlock()

	if closed {
		return errors.New("stream already closed for sending")
	}
	if recvErr != nil {
		return fmt.Errorf("stream receive loop failed: %w", recvErr)
	}

	return s.stream.SendMsg(&request{Audio: chunk})
}

// Close closes send-side audio, waits for the receive loop to drain,
// and releases the connection.
func (s *Stream) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closedSend {
		s.closedSend = true
		_ = s.stream.CloseSend()
	}
	s.mu.Unlock()

	select {
	case <-s.recvDone:
	case <-ctx.Done():
		_ = s.conn.Close()
		return ctx.Err()
	}

	err := s.Err()
	if closeErr := s.conn.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Cancel aborts stream processing and closes the underlying grpc connection.
func (s *Stream) Cancel() error {
	s.mu.Lock()
	if !s.closedSend {
		s.closedSend = true
		_ = s.stream.CloseSend()
	}
	s.mu.Unlock()
	return s.conn.Close()
}

// cleanTranscript normalizes transcript whitespace.
func cleanTranscript(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}

// isCancelled filters expected shutdown errors out of Err.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// waitForReady blocks until gRPC connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
