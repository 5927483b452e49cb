// Package publish moves rendered outputs from a working tree into the published set.
package publish

import (
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
	"git.home.luguber.info/inful/mapbuilder/internal/metrics"
)

// Result describes one publication.
type Result struct {
	Moved    int
	Expected int
	Mismatch bool
	Files    []string // published file names, sorted
}

// Publisher replaces the content of a publish directory with freshly rendered outputs.
//
// Publication is clear-then-move: readers can observe an empty (or partially filled)
// directory while it runs.
type Publisher struct {
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewPublisher creates a Publisher. A nil logger uses slog.Default().
func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{logger: logger, recorder: metrics.NoopRecorder{}}
}

// WithRecorder attaches a metrics recorder (fluent helper).
func (p *Publisher) WithRecorder(r metrics.Recorder) *Publisher {
	if r != nil {
		p.recorder = r
	}
	return p
}

// Publish creates publishDir, removes every entry in it and moves each output file from
// outputDir into it. When the number of moved files differs from expected an integrity alert
// is logged and counted, but publication is not aborted.
func (p *Publisher) Publish(publishDir, outputDir string, expected int) (Result, error) {
	res := Result{Expected: expected}

	if err := os.MkdirAll(publishDir, 0o750); err != nil {
		return res, errors.PublishError("failed to create publish directory").
			WithCause(err).
			WithContext("path", publishDir).
			Build()
	}
	if err := clearDir(publishDir); err != nil {
		return res, err
	}

	outputs, err := listOutputs(outputDir)
	if err != nil {
		return res, err
	}

	var moveErrs []error
	for _, name := range outputs {
		src := filepath.Join(outputDir, name)
		dst := filepath.Join(publishDir, name)
		if err := moveFile(src, dst); err != nil {
			p.logger.Error("Failed to move rendered output", logfields.Path(src), logfields.Error(err))
			moveErrs = append(moveErrs, err)
			continue
		}
		res.Moved++
		res.Files = append(res.Files, name)
	}

	if res.Moved != expected {
		res.Mismatch = true
		p.recorder.IncIntegrityAlert()
		p.logger.Error("Published output count does not match asset count",
			logfields.Count(res.Moved),
			logfields.Expected(expected),
			logfields.Path(publishDir))
	}

	if len(moveErrs) > 0 {
		return res, errors.PublishError("failed to move some rendered outputs").
			WithCause(stderrors.Join(moveErrs...)).
			WithContext("path", publishDir).
			WithContext("failed", len(moveErrs)).
			Build()
	}

	p.logger.Info("Published rendered outputs", logfields.Count(res.Moved), logfields.Path(publishDir))
	return res, nil
}

// listOutputs returns the sorted names of the regular files in dir. Every file the renderer
// left behind is published and counted. A missing output directory means nothing was rendered.
func listOutputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FileSystemError("failed to read output directory").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.FileSystemError("failed to read publish directory").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return errors.FileSystemError("failed to remove published entry").
				WithCause(err).
				WithContext("path", path).
				Build()
		}
	}
	return nil
}

// moveFile renames src to dst, copying and removing when they live on different devices.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !stderrors.As(err, &linkErr) || !stderrors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
