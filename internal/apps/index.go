// Package apps discovers installed desktop applications and resolves
// fuzzy spoken names against them.
package apps

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one launchable desktop application.
type Entry struct {
	Name string
	ID   string // desktop file id, e.g. "org.gnome.Calculator"
	Exec string
}

// Index is the cached application table scanned once at startup.
type Index struct {
	byName map[string]Entry
}

// Scan walks the XDG application directories and indexes every visible
// .desktop entry by display name. Later directories do not override
// earlier ones, matching the XDG precedence order.
func Scan() (*Index, error) {
	byName := make(map[string]Entry)
	for _, dir := range applicationDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, file := range entries {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".desktop") {
				continue
			}
			entry, ok := parseDesktopFile(filepath.Join(dir, file.Name()))
			if !ok {
				continue
			}
			if _, exists := byName[entry.Name]; !exists {
				byName[entry.Name] = entry
			}
		}
	}
	return &Index{byName: byName}, nil
}

// NewIndex builds an index from explicit entries.
func NewIndex(entries ...Entry) *Index {
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}
	return &Index{byName: byName}
}

// Len reports the number of indexed applications.
func (i *Index) Len() int {
	return len(i.byName)
}

// Find returns every application whose name matches the query in either
// containment direction, case-insensitively, sorted for stable output.
func (i *Index) Find(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var matches []string
	for name := range i.byName {
		lower := strings.ToLower(name)
		if strings.Contains(lower, query) || strings.Contains(query, lower) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// Open launches the named application. gtk-launch handles the desktop
// id indirection; entries without an id fall back to their Exec line.
func (i *Index) Open(ctx context.Context, name string) (string, error) {
	entry, ok := i.byName[name]
	if !ok {
		return "", fmt.Errorf("application %q is not in the index", name)
	}

	var cmd *exec.Cmd
	if entry.ID != "" {
		cmd = exec.CommandContext(ctx, "gtk-launch", entry.ID)
	} else {
		argv := parseExecLine(entry.Exec)
		if len(argv) == 0 {
			return "", fmt.Errorf("application %q has no launch command", name)
		}
		cmd = exec.CommandContext(ctx, argv[0], argv[1:]...)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("launch %q: %w", name, err)
	}
	// The application outlives us; reap it in the background.
	go func() { _ = cmd.Wait() }()

	return fmt.Sprintf("Opening %s.", entry.Name), nil
}

// applicationDirs lists XDG .desktop locations in precedence order.
func applicationDirs() []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share", "applications"))
	}
	if dataDirs := strings.TrimSpace(os.Getenv("XDG_DATA_DIRS")); dataDirs != "" {
		for _, dir := range strings.Split(dataDirs, ":") {
			if dir = strings.TrimSpace(dir); dir != "" {
				dirs = append(dirs, filepath.Join(dir, "applications"))
			}
		}
		return dirs
	}
	return append(dirs, "/usr/local/share/applications", "/usr/share/applications")
}

// parseDesktopFile extracts Name and Exec from the [Desktop Entry]
// section, skipping hidden entries.
func parseDesktopFile(path string) (Entry, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, false
	}
	defer f.Close()

	entry := Entry{ID: strings.TrimSuffix(filepath.Base(path), ".desktop")}
	inDesktopEntry := false
	hidden := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inDesktopEntry = line == "[Desktop Entry]"
			continue
		}
		if !inDesktopEntry {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Name="):
			if entry.Name == "" {
				entry.Name = strings.TrimPrefix(line, "Name=")
			}
		case strings.HasPrefix(line, "Exec="):
			if entry.Exec == "" {
				entry.Exec = strings.TrimPrefix(line, "Exec=")
			}
		case line == "NoDisplay=true" || line == "Hidden=true":
			hidden = true
		}
	}

	if hidden || entry.Name == "" {
		return Entry{}, false
	}
	return entry, true
}

// parseExecLine splits an Exec value and drops desktop-entry field codes.
func parseExecLine(raw string) []string {
	var argv []string
	for _, field := range strings.Fields(raw) {
		if strings.HasPrefix(field, "%") {
			continue
		}
		argv = append(argv, field)
	}
	return argv
}
