// Package app wires configuration, audio, recognition, intent, tools,
// scheduling, and IPC into the hark command surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hark/internal/apps"
	"hark/internal/audio"
	"hark/internal/cli"
	"hark/internal/config"
	"hark/internal/dispatch"
	"hark/internal/doctor"
	"hark/internal/intent"
	"hark/internal/ipc"
	"hark/internal/listen"
	"hark/internal/logging"
	"hark/internal/notify"
	"hark/internal/schedule"
	"hark/internal/speech"
	"hark/internal/store"
	"hark/internal/tool"
	"hark/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("hark"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("hark"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "stopped"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "stopped")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running hark daemon\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandRun owns the daemon lifecycle: socket, store, audio capture,
// and the three long-lived loops (dispatch, poller, IPC server).
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: hark daemon already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath, err = store.DefaultPath()
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}
	st, err := store.Open(storePath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open task store: %v\n", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	registry, err := tool.Default(tool.Deps{Services: cfg.Services, Store: st})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: build tool registry: %v\n", err)
		return 1
	}

	appIndex, err := apps.Scan()
	if err != nil {
		logger.Warn("application scan failed", "error", err.Error())
		appIndex = apps.NewIndex()
	}
	logger.Info("applications indexed", "count", appIndex.Len())

	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: select audio device: %v\n", err)
		return 1
	}
	if selection.Warning != "" {
		logger.Warn("audio device fallback", "warning", selection.Warning)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	capture, err := audio.StartCapture(runCtx, selection.Device)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: start audio capture: %v\n", err)
		return 1
	}
	defer capture.Close()

	hub := ipc.NewHub()
	speaker := speech.New(cfg.TTS, logger)
	notifier := notify.New(cfg.Notify, logger)
	resolver := intent.New(cfg.Ollama, registry, logger)
	recognizer := listen.New(
		cfg.ASR.Endpoint,
		cfg.WakeWords,
		capture.Chunks(),
		listen.WithVolume(func(level float64) {
			hub.Publish(ipc.Event{Type: ipc.EventVolume, Level: level})
		}),
	)

	worker := dispatch.New(dispatch.Config{
		WakeWords:  cfg.WakeWords,
		Recognizer: recognizer,
		Speaker:    speaker,
		Resolver:   resolver,
		Apps:       appIndex,
		Registry:   registry,
		Publisher:  hub,
		SendEmail: func(ctx context.Context, email ipc.EmailPreview) string {
			return tool.SendEmail(ctx, cfg.Services.Email, email.Recipient, email.Subject, email.Body)
		},
		Logger: logger,
	})

	poller := schedule.New(
		st,
		speaker,
		notifier,
		time.Duration(cfg.PollInterval)*time.Second,
		logger,
	)

	handler := ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: string(worker.Mode())}
		case ipc.CommandStop:
			cancelRun()
			return ipc.Response{OK: true, Message: "stopping"}
		case ipc.CommandEvent:
			if req.Event == nil {
				return ipc.Response{OK: false, Error: "event payload missing"}
			}
			if !worker.HandleEvent(*req.Event) {
				return ipc.Response{OK: false, Error: "event queue is full"}
			}
			return ipc.Response{OK: true}
		default:
			return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
		}
	})

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return worker.Run(groupCtx) })
	group.Go(func() error { return poller.Run(groupCtx) })
	group.Go(func() error { return ipc.Serve(groupCtx, listener, handler, hub) })

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, listen.ErrSourceClosed) {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("daemon stopped", "error", err.Error())
		return 1
	}

	logger.Info("daemon stopped")
	fmt.Fprintln(r.Stdout, "stopped")
	return 0
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
