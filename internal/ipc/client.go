package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// Send opens a unix-socket request/response roundtrip with a deadline.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	enc := json.NewEncoder(conn)
	if err := enc.Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}

	return resp, nil
}

// SendEvent forwards one frontend event to the daemon.
func SendEvent(ctx context.Context, path string, event Event, timeout time.Duration) error {
	resp, err := Send(ctx, path, Request{Command: CommandEvent, Event: &event}, timeout)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("daemon rejected event: %s", resp.Error)
	}
	return nil
}

// Subscribe opens a long-lived event stream from the daemon. Events
// arrive on the returned channel until the connection or ctx ends.
func Subscribe(ctx context.Context, path string, timeout time.Duration) (<-chan Event, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(conn)
	if err := enc.Encode(Request{Command: CommandSubscribe}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("encode subscribe request: %w", err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read subscribe ack: %w", err)
	}
	var ack Response
	if err := json.Unmarshal(line, &ack); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("decode subscribe ack: %w", err)
	}
	if !ack.OK {
		_ = conn.Close()
		return nil, fmt.Errorf("daemon refused subscription: %s", ack.Error)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer conn.Close()

		go func() {
			<-ctx.Done()
			_ = conn.Close()
		}()

		dec := json.NewDecoder(reader)
		for {
			var event Event
			if err := dec.Decode(&event); err != nil {
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// Probe checks whether a responsive owner is currently listening on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	if err == nil {
		return true, nil
	}
	if isSocketMissing(err) || isConnectionRefused(err) {
		return false, nil
	}
	return false, fmt.Errorf("probe socket: %w", err)
}

// isSocketMissing reports absent-socket failures.
func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist)
}

// isConnectionRefused reports no-listener failures.
func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
