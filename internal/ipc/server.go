package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until context cancellation or
// listener close. One-shot commands get a single Response; subscribe
// connections stay open and stream hub events as JSON lines.
func Serve(ctx context.Context, listener net.Listener, handler Handler, hub *Hub) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()

			reader := bufio.NewReader(c)
			line, err := reader.ReadBytes('\n')
			if err != nil {
				_ = json.NewEncoder(c).Encode(Response{OK: false, Error: fmt.Sprintf("read request: %v", err)})
				return
			}

			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				_ = json.NewEncoder(c).Encode(Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)})
				return
			}

			if req.Command == CommandSubscribe && hub != nil {
				_ = json.NewEncoder(c).Encode(Response{OK: true})
				streamEvents(ctx, c, reader, hub)
				return
			}

			resp := handler.Handle(ctx, req)
			_ = json.NewEncoder(c).Encode(resp)
		}(conn)
	}
}

// streamEvents writes hub events to one subscriber until the
// connection drops or the server shuts down.
func streamEvents(ctx context.Context, conn net.Conn, reader *bufio.Reader, hub *Hub) {
	events, cancel := hub.subscribe()
	defer cancel()

	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()

	// Subscribers send nothing after the handshake, so any read result
	// means the frontend hung up. The caller closes conn on return,
	// which unblocks this read on server shutdown.
	go func() {
		_, _ = reader.ReadBytes('\n')
		connCancel()
	}()

	enc := json.NewEncoder(conn)
	for {
		select {
		case <-connCtx.Done():
			return
		case event := <-events:
			if err := enc.Encode(event); err != nil {
				return
			}
		}
	}
}
