// Package source provides record sources the evaluation pipeline consumes.
package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/thisisjab/rulezilla/entity"
)

type FileRecordSourceConfig struct {
	Name       string   `yaml:"-"`
	Path       string   `yaml:"path"`
	Processors []string `yaml:"processors"`
	// FromStart emits the lines already in the file before following new ones.
	FromStart bool `yaml:"from_start"`
}

// FileRecordSource works by watching a file for changes and reading new lines as they are written.
// Every complete line is one record.
type FileRecordSource struct {
	cfg    FileRecordSourceConfig
	logger *slog.Logger
}

// NewFileRecordSource creates a new FileRecordSource instance.
func NewFileRecordSource(logger *slog.Logger, cfg FileRecordSourceConfig) (*FileRecordSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file source %q: path is required", cfg.Name)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FileRecordSource{
		cfg:    cfg,
		logger: logger.With("source", cfg.Name),
	}, nil
}

func (f *FileRecordSource) Name() string {
	return f.cfg.Name
}

func (f *FileRecordSource) ProcessorNames() []string {
	return f.cfg.Processors
}

// Provide follows the file until ctx is done. The parent directory is watched
// so that rotation is followed: when a file is created at the path again, the
// rest of the old file is emitted and reading continues from the start of the
// new one.
func (f *FileRecordSource) Provide(ctx context.Context, records chan<- entity.RawRecord) error {
	file, err := os.Open(f.cfg.Path)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer func() { file.Close() }()

	if !f.cfg.FromStart {
		// Reads triggered by fsnotify move the cursor to the end again.
		if _, err = file.Seek(0, io.SeekEnd); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	path := filepath.Clean(f.cfg.Path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("cannot add directory to watcher: %w", err)
	}

	r := &lineReader{reader: bufio.NewReader(file)}

	if f.cfg.FromStart {
		if err := f.drain(ctx, r, records); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				f.logger.Debug("fsnotify watcher channel is closed.")
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}

			switch {
			case event.Has(fsnotify.Write):
				if err := f.drain(ctx, r, records); err != nil {
					return err
				}

			case event.Has(fsnotify.Create):
				if err := f.drain(ctx, r, records); err != nil {
					return err
				}

				rotated, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("cannot reopen rotated file: %w", err)
				}
				file.Close()
				file = rotated
				r = &lineReader{reader: bufio.NewReader(file)}

				f.logger.Info("file rotated, reading new file from start.")
				if err := f.drain(ctx, r, records); err != nil {
					return err
				}

			default:
				// Remove and Rename leave the open handle valid until a new file appears.
				f.logger.Debug("Received unhandled event from fsnotify.", "event", event.String())
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// drain emits every complete line currently readable.
func (f *FileRecordSource) drain(ctx context.Context, r *lineReader, records chan<- entity.RawRecord) error {
	for {
		line, err := r.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(line) == 0 {
			continue
		}

		rec := entity.RawRecord{
			Source:     f.cfg.Name,
			Data:       line,
			ReceivedAt: time.Now(),
		}

		select {
		case records <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// lineReader returns complete lines only. A trailing fragment without a
// newline is kept until the rest of the line is written.
type lineReader struct {
	reader  *bufio.Reader
	partial []byte
}

func (l *lineReader) next() ([]byte, error) {
	chunk, err := l.reader.ReadBytes('\n')
	if err == io.EOF {
		l.partial = append(l.partial, chunk...)
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	line := chunk
	if len(l.partial) > 0 {
		line = append(l.partial, chunk...)
		l.partial = nil
	}

	return bytes.TrimRight(line, "\r\n"), nil
}
