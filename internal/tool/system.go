package tool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// openWebsite launches a URL in the default browser, prepending https
// when the model omitted the scheme.
func openWebsite(open func(ctx context.Context, target string) error) RunFunc {
	return func(ctx context.Context, args Args) (string, error) {
		target := args.Get("url")
		if target == "" {
			return "I need a website address to open.", nil
		}
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			target = "https://" + target
		}
		if err := open(ctx, target); err != nil {
			return "", fmt.Errorf("open website: %w", err)
		}
		return fmt.Sprintf("Opening %s.", target), nil
	}
}

func createFolder(ctx context.Context, args Args) (string, error) {
	name := args.Get("folder_name")
	if name == "" || name != filepath.Base(name) {
		return "I need a plain folder name for that.", nil
	}

	desktop, err := desktopDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(desktop, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Sprintf("A folder named '%s' already exists on your desktop.", name), nil
		}
		return "", fmt.Errorf("create folder %q: %w", path, err)
	}
	return fmt.Sprintf("Folder '%s' created on your desktop.", name), nil
}

func desktopDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Desktop"), nil
}

func setSystemVolume(ctx context.Context, args Args) (string, error) {
	level, ok := percentArg(args, "level")
	if !ok {
		return "Volume level must be between 0 and 100.", nil
	}
	cmd := exec.CommandContext(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", level))
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", commandError("pactl set-sink-volume", out, err)
	}
	return fmt.Sprintf("System volume set to %d%%.", level), nil
}

func setScreenBrightness(ctx context.Context, args Args) (string, error) {
	level, ok := percentArg(args, "level")
	if !ok {
		return "Brightness level must be between 0 and 100.", nil
	}
	cmd := exec.CommandContext(ctx, "brightnessctl", "set", fmt.Sprintf("%d%%", level))
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", commandError("brightnessctl set", out, err)
	}
	return fmt.Sprintf("Screen brightness set to %d%%.", level), nil
}

// writeText types the given text at the current cursor location via the
// Wayland virtual keyboard helper.
func writeText(ctx context.Context, args Args) (string, error) {
	text := args.Get("text_to_write")
	if text == "" {
		return "There was no text to write.", nil
	}
	cmd := exec.CommandContext(ctx, "wtype", text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", commandError("wtype", out, err)
	}
	return "Text written successfully.", nil
}

// percentArg reads a 0..100 integer argument.
func percentArg(args Args, name string) (int, bool) {
	level := args.Int(name, -1)
	if level < 0 || level > 100 {
		return 0, false
	}
	return level, true
}

func commandError(what string, out []byte, err error) error {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", what, err)
	}
	return fmt.Errorf("%s failed: %w (%s)", what, err, trimmed)
}
