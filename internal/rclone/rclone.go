// Package rclone shells out to the rclone binary. Remotes are addressed the
// rclone way, "remote:path", and configuration of the remotes themselves
// lives in the rclone config file on the host.
package rclone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Entry is one row of `rclone lsjson` output.
type Entry struct {
	Path  string `json:"Path"`
	Name  string `json:"Name"`
	Size  int64  `json:"Size"`
	IsDir bool   `json:"IsDir"`
}

// Runner executes an rclone invocation and returns its stdout. Tests swap in
// a fake; production uses ExecRunner.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "rclone", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rclone %v: %w: %s", args, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

type Rclone struct {
	runner Runner
}

func New() *Rclone {
	return &Rclone{runner: ExecRunner{}}
}

func NewWithRunner(runner Runner) *Rclone {
	return &Rclone{runner: runner}
}

// Copyto copies a single file, leaving the source in place.
func (r *Rclone) Copyto(ctx context.Context, src, dst string) error {
	_, err := r.runner.Run(ctx, "copyto", src, dst)
	return err
}

// Moveto moves a single file, removing the source.
func (r *Rclone) Moveto(ctx context.Context, src, dst string) error {
	_, err := r.runner.Run(ctx, "moveto", src, dst)
	return err
}

// Ls lists the files under path. Include filters use rclone's filter syntax,
// e.g. "{2025-01-02*,2025-01-03*}".
func (r *Rclone) Ls(ctx context.Context, path string, includeFilters ...string) ([]Entry, error) {
	args := []string{"lsjson", path}
	for _, filter := range includeFilters {
		args = append(args, "--include", filter)
	}
	out, err := r.runner.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, fmt.Errorf("unable to parse rclone lsjson output: %w", err)
	}
	return entries, nil
}

// Delete removes a single file.
func (r *Rclone) Delete(ctx context.Context, path string) error {
	_, err := r.runner.Run(ctx, "deletefile", path)
	return err
}

// Purge removes a directory and all of its contents.
func (r *Rclone) Purge(ctx context.Context, path string) error {
	_, err := r.runner.Run(ctx, "purge", path)
	return err
}
