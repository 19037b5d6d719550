// Package logtail reads the dashboard's own log file: the last lines for
// the logs command, and new lines as they are appended.
package logtail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Prefix is what the dashboard puts in front of every log line.
const Prefix = "baristaboard"

const stampLayout = "2006/01/02 15:04:05"

// Entry is one parsed log line.
type Entry struct {
	Time      time.Time
	Component string // "app", "realtime", ... empty when the line has none
	Message   string
	Raw       string
}

// Parse splits a line written by the standard logger with the dashboard
// prefix. Lines that do not match keep everything in Message.
func Parse(line string) Entry {
	e := Entry{Raw: line, Message: line}
	rest := strings.TrimPrefix(line, Prefix+" ")
	if len(rest) < len(stampLayout) {
		return e
	}
	t, err := time.ParseInLocation(stampLayout, rest[:len(stampLayout)], time.Local)
	if err != nil {
		return e
	}
	e.Time = t
	rest = strings.TrimPrefix(rest[len(stampLayout):], " ")
	e.Message = rest
	if head, tail, ok := strings.Cut(rest, ": "); ok && head != "" && !strings.ContainsAny(head, " \t") {
		e.Component = head
		e.Message = tail
	}
	return e
}

// Tail returns the last n lines of the file at path and the offset just
// past them. A missing file is empty; n <= 0 returns every line.
func Tail(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var lines []string
	var offset int64
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if strings.HasSuffix(line, "\n") {
			offset += int64(len(line))
			lines = append(lines, strings.TrimRight(line, "\r\n"))
			if n > 0 && len(lines) > n {
				lines = lines[1:]
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log: %w", err)
		}
	}
	return lines, offset, nil
}

// Follow calls fn for every complete line appended to path after offset,
// until ctx is done. A file that shrinks (rotated or truncated) is read
// again from the start.
func Follow(ctx context.Context, path string, offset int64, fn func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	offset, err = drain(path, offset, fn)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if offset, err = drain(path, offset, fn); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch log: %w", err)
		}
	}
}

// drain reads complete lines from offset and returns the new offset.
// A trailing partial line is left for the next call.
func drain(path string, offset int64, fn func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if !strings.HasSuffix(line, "\n") {
			return offset, nil
		}
		offset += int64(len(line))
		fn(strings.TrimRight(line, "\r\n"))
		if err != nil {
			return offset, nil
		}
	}
}
