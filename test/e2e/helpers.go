//go:build e2e

package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// E2ETestEnv holds the built binary and the environment it runs with
type E2ETestEnv struct {
	T         *testing.T
	BinaryDir string
	WorkDir   string
	Env       map[string]string
}

// SetupE2EEnv builds kbstrap and prepares an isolated working directory.
// Inherited KBSTRAP_* variables are dropped so only Env applies.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	env := &E2ETestEnv{
		T:       t,
		WorkDir: t.TempDir(),
		Env:     map[string]string{},
	}
	env.BuildBinary()
	return env
}

// Cleanup removes the built binary
func (e *E2ETestEnv) Cleanup() {
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinary builds the kbstrap binary
func (e *E2ETestEnv) BuildBinary() {
	tmpDir, err := os.MkdirTemp("", "kbstrap-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "kbstrap"), "./cmd/kbstrap")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build kbstrap: %v\n%s", err, out)
	}
}

// WriteDataDir writes files into a data directory under WorkDir and returns its path
func (e *E2ETestEnv) WriteDataDir(name string, files map[string]string) string {
	root := filepath.Join(e.WorkDir, name)
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			e.T.Fatalf("failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			e.T.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return root
}

// RunKbstrap runs kbstrap with empty stdin
func (e *E2ETestEnv) RunKbstrap(args ...string) (stdout, stderr string, err error) {
	return e.RunKbstrapWithInput("", args...)
}

// RunKbstrapWithInput runs kbstrap with stdin input, keeping stdout and
// stderr apart since results and logs go to different streams
func (e *E2ETestEnv) RunKbstrapWithInput(input string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "kbstrap"), args...)
	cmd.Dir = e.WorkDir
	cmd.Stdin = strings.NewReader(input)
	cmd.Env = e.environ()

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err = cmd.Run()
	return out.String(), errOut.String(), err
}

func (e *E2ETestEnv) environ() []string {
	var environ []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "KBSTRAP_") {
			continue
		}
		environ = append(environ, kv)
	}
	for k, v := range e.Env {
		environ = append(environ, k+"="+v)
	}
	return environ
}
