// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExec answers LookPath from onPath and RunSilent from ok, keyed by the
// joined command line. RunPiped records its arguments and echoes stdin
// unless pipeErr is set.
type fakeExec struct {
	onPath  map[string]bool
	ok      map[string]bool
	pipeErr error

	bin  string
	args []string
}

func (f *fakeExec) LookPath(file string) (string, error) {
	if f.onPath[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not on PATH")
}

func (f *fakeExec) RunSilent(name string, args ...string) error {
	if f.ok[strings.Join(append([]string{name}, args...), " ")] {
		return nil
	}
	return errors.New("exit status 1")
}

func (f *fakeExec) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	f.bin, f.args = name, args
	if f.pipeErr != nil {
		return f.pipeErr
	}
	_, err := io.Copy(stdout, stdin)
	return err
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func TestRun_BuildsCommandLine(t *testing.T) {
	tests := []struct {
		name string
		mk   func(executor) *runtime
		spec RunSpec
		want string
	}{
		{"docker bare image", newDockerRuntime, RunSpec{Image: "markitdown:latest"}, "docker run --rm -i markitdown:latest"},
		{"podman bare image", newPodmanRuntime, RunSpec{Image: "markitdown:latest"}, "podman run --rm -i markitdown:latest"},
		{"args follow image", newDockerRuntime, RunSpec{Image: "markitdown:latest", Args: []string{"--extension", "pdf"}}, "docker run --rm -i markitdown:latest --extension pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := &fakeExec{}
			var out bytes.Buffer
			require.NoError(t, tt.mk(fe).Run(context.Background(), tt.spec, strings.NewReader("%PDF"), &out))
			assert.Equal(t, tt.want, strings.Join(append([]string{fe.bin}, fe.args...), " "))
			assert.Equal(t, "%PDF", out.String())
		})
	}
}

func TestRun_WrapsFailure(t *testing.T) {
	fe := &fakeExec{pipeErr: errors.New("container exited with code 1")}
	err := newPodmanRuntime(fe).Run(context.Background(), RunSpec{Image: "markitdown:latest"}, strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "podman")
	assert.Contains(t, err.Error(), "markitdown:latest")
	assert.ErrorIs(t, err, fe.pipeErr)
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name   string
		onPath []string
		ok     []string
		want   string
	}{
		{"docker", []string{"docker"}, []string{"docker info"}, "docker"},
		{"podman fallback", []string{"podman"}, []string{"podman info"}, "podman"},
		{"docker info fails", []string{"docker", "podman"}, []string{"podman info"}, "podman"},
		{"docker preferred", []string{"docker", "podman"}, []string{"docker info", "podman info"}, "docker"},
		{"none", nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(&fakeExec{onPath: set(tt.onPath...), ok: set(tt.ok...)})
			if tt.want == "" {
				assert.ErrorContains(t, err, "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	const img = "markitdown:latest"
	tests := []struct {
		name    string
		mk      func(executor) *runtime
		ok      []string
		wantErr bool
	}{
		{"docker present", newDockerRuntime, []string{"docker image inspect " + img}, false},
		{"docker missing", newDockerRuntime, nil, true},
		{"podman present", newPodmanRuntime, []string{"podman image exists " + img}, false},
		{"podman missing", newPodmanRuntime, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mk(&fakeExec{ok: set(tt.ok...)}).ImageExists(img)
			if tt.wantErr {
				assert.ErrorContains(t, err, img)
				return
			}
			assert.NoError(t, err)
		})
	}
}
