package asr

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// fakeRecognizer serves StreamingRecognize for tests: it checks the
// config frame, then answers each audio frame with a scripted result.
type fakeRecognizer struct {
	results []response

	gotConfig chan recognitionConfig
}

func (f *fakeRecognizer) handle(_ any, stream grpc.ServerStream) error {
	var first request
	if err := stream.RecvMsg(&first); err != nil {
		return err
	}
	if first.Config == nil {
		return errors.New("first frame must carry config")
	}
	select {
	case f.gotConfig <- *first.Config:
	default:
	}

	sent := 0
	for {
		var req request
		if err := stream.RecvMsg(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if sent < len(f.results) {
			if err := stream.SendMsg(&f.results[sent]); err != nil {
				return err
			}
			sent++
		}
	}
}

func startFakeRecognizer(t *testing.T, fake *fakeRecognizer) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "hark.asr.Recognizer",
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    "StreamingRecognize",
			Handler:       fake.handle,
			ServerStreams: true,
			ClientStreams: true,
		}},
	}, fake)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	return lis.Addr().String()
}

func TestDialStreamSendsConfigAndReceivesFinal(t *testing.T) {
	fake := &fakeRecognizer{
		results:   []response{{Text: "  hello   world ", Final: true}},
		gotConfig: make(chan recognitionConfig, 1),
	}
	endpoint := startFakeRecognizer(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, StreamConfig{
		Endpoint: endpoint,
		Phrases:  []string{"hey hark", "", " hark "},
	})
	require.NoError(t, err)

	cfg := <-fake.gotConfig
	require.Equal(t, 16000, cfg.SampleRate)
	require.Equal(t, 1, cfg.Channels)
	require.Equal(t, []string{"hey hark", "hark"}, cfg.Phrases)

	require.NoError(t, stream.SendAudio(make([]byte, 640)))

	var final Result
	select {
	case final = <-stream.Results():
	case <-ctx.Done():
		t.Fatal("timed out waiting for result")
	}
	require.True(t, final.Final)
	require.Equal(t, "hello world", final.Text)

	require.NoError(t, stream.Close(ctx))
}

func TestDialStreamEmptyEndpoint(t *testing.T) {
	_, err := DialStream(context.Background(), StreamConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "endpoint is empty")
}

func TestDialStreamUnreachableEndpoint(t *testing.T) {
	_, err := DialStream(context.Background(), StreamConfig{
		Endpoint:    "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "readiness")
}

func TestSendAudioAfterClose(t *testing.T) {
	fake := &fakeRecognizer{gotConfig: make(chan recognitionConfig, 1)}
	endpoint := startFakeRecognizer(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, StreamConfig{Endpoint: endpoint})
	require.NoError(t, err)
	require.NoError(t, stream.Close(ctx))

	err = stream.SendAudio([]byte{1, 2})
	require.Error(t, err)
	require.Contains(t, err.Error(), "closed")
}

func TestSendAudioEmptyChunkIsNoop(t *testing.T) {
	stream := &Stream{}
	require.NoError(t, stream.SendAudio(nil))
}

func TestCancelStopsStream(t *testing.T) {
	fake := &fakeRecognizer{gotConfig: make(chan recognitionConfig, 1)}
	endpoint := startFakeRecognizer(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, StreamConfig{Endpoint: endpoint})
	require.NoError(t, err)
	require.NoError(t, stream.Cancel())
}

func TestCleanTranscript(t *testing.T) {
	require.Equal(t, "", cleanTranscript("   "))
	require.Equal(t, "open the files app", cleanTranscript("  open   the\tfiles app "))
}
