// Package render executes a project's stored executable to produce an image
// at a requested resolution. The child process is untrusted: it runs with a
// wall-clock timeout, in its own process group so the whole tree dies on
// violation, and writes to a fresh per-request output file so concurrent
// renders of the same project never clobber each other.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"
)

// FailureKind distinguishes the ways a render can fail. Diagnostics need the
// distinction even when the caller-facing response collapses them.
type FailureKind string

const (
	// FailBadSize rejects non-positive or over-limit dimensions.
	FailBadSize FailureKind = "bad_size"
	// FailSpawn means the child process could not be started.
	FailSpawn FailureKind = "spawn"
	// FailExit means the child exited non-zero.
	FailExit FailureKind = "exit"
	// FailTimeout means the wall-clock bound elapsed and the child was killed.
	FailTimeout FailureKind = "timeout"
	// FailOutput means the child exited 0 but its output file was unreadable.
	FailOutput FailureKind = "output"
)

// Error is a render failure with its kind preserved for diagnostics.
type Error struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render failed (%s): %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("render failed (%s): %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Failure extracts the failure kind from an error returned by Render.
func Failure(err error) (FailureKind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}

// Engine spawns stored executables as isolated child processes.
type Engine struct {
	// launcher is prepended to the executable path, e.g. ["java", "-jar"]
	// for jar artifacts. Empty means the artifact is executed directly.
	launcher     []string
	timeout      time.Duration
	maxDimension int
	tempDir      string
}

func NewEngine(launcher []string, timeout time.Duration, maxDimension int, tempDir string) *Engine {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Engine{
		launcher:     launcher,
		timeout:      timeout,
		maxDimension: maxDimension,
		tempDir:      tempDir,
	}
}

// Render runs the executable at execPath with arguments
// (width, height, outputPath) and returns the produced image bytes.
//
// The output path is a fresh temporary file, removed on every exit path.
// stdout and stderr are captured for diagnostics and discarded on success.
// Renders are all-or-nothing: no partial output is ever returned.
func (e *Engine) Render(ctx context.Context, execPath string, width, height int) ([]byte, error) {
	if err := e.validateSize(width, height); err != nil {
		return nil, err
	}

	out, err := os.CreateTemp(e.tempDir, "render-*.jpg")
	if err != nil {
		return nil, &Error{Kind: FailSpawn, Detail: "allocate output file", Err: err}
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	argv := append(append([]string{}, e.launcher...),
		execPath, strconv.Itoa(width), strconv.Itoa(height), outPath)

	cmd := exec.Command(argv[0], argv[1:]...)

	// Own process group so the whole child tree can be killed on timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &Error{Kind: FailSpawn, Detail: "start " + argv[0], Err: err}
	}

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-rctx.Done():
		// Kill the process group (negative pid), then reap the child.
		syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		return nil, &Error{
			Kind:   FailTimeout,
			Detail: fmt.Sprintf("executable exceeded %s", e.timeout),
			Err:    rctx.Err(),
		}
	case err = <-done:
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &Error{
				Kind:   FailExit,
				Detail: fmt.Sprintf("exit code %d: %s", exitErr.ExitCode(), tail(stderr.Bytes())),
				Err:    err,
			}
		}
		return nil, &Error{Kind: FailSpawn, Detail: "wait for executable", Err: err}
	}

	image, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &Error{Kind: FailOutput, Detail: "read output image", Err: err}
	}
	if len(image) == 0 {
		return nil, &Error{Kind: FailOutput, Detail: "executable produced no output"}
	}
	return image, nil
}

func (e *Engine) validateSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return &Error{Kind: FailBadSize, Detail: "width and height must be positive"}
	}
	if width > e.maxDimension || height > e.maxDimension {
		return &Error{
			Kind:   FailBadSize,
			Detail: fmt.Sprintf("width and height must be at most %d", e.maxDimension),
		}
	}
	return nil
}

// tail returns the last part of captured child output for error messages.
func tail(b []byte) string {
	const limit = 512
	if len(b) > limit {
		b = b[len(b)-limit:]
	}
	return string(bytes.TrimSpace(b))
}
