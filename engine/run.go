package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pier-build/pier/artifact"
	"github.com/pier-build/pier/command"
	"github.com/pier-build/pier/exec"
	"github.com/pier-build/pier/hash"
	"github.com/pier-build/pier/sandbox"
)

const stdoutPath = "_stdout"

// RunCommandOutput runs cmd (or returns its memoized result) and
// reconstructs output's declared paths into the typed value output.Combine
// produces.
func (e *Engine) RunCommandOutput(ctx context.Context, cmd command.Command, output command.Output) (interface{}, error) {
	h, err := e.hashOf(cmd, output.Paths)
	if err != nil {
		return nil, err
	}

	key := "cmd:" + h
	if _, err := e.memo.Ask(key, func() (string, error) {
		return e.build(ctx, cmd, output.Paths, h)
	}); err != nil {
		return nil, err
	}

	return output.Combine(output.Artifacts(h)), nil
}

// RunCommand runs cmd and returns the Built artifacts for each declared
// output path, without applying an Output's reconstructor.
func (e *Engine) RunCommand(ctx context.Context, cmd command.Command, outputPaths []string) (map[string]artifact.Artifact, error) {
	h, err := e.hashOf(cmd, outputPaths)
	if err != nil {
		return nil, err
	}
	key := "cmd:" + h
	if _, err := e.memo.Ask(key, func() (string, error) {
		return e.build(ctx, cmd, outputPaths, h)
	}); err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact, len(outputPaths))
	for _, p := range outputPaths {
		out[p] = artifact.Built(h, p)
	}
	return out, nil
}

// RunCommandStdout runs cmd and returns the concatenated stdout of every
// program step, declaring no outputs of its own beyond the implicit
// "_stdout" file.
func (e *Engine) RunCommandStdout(ctx context.Context, cmd command.Command) (string, error) {
	h, err := e.hashOf(cmd, nil)
	if err != nil {
		return "", err
	}
	key := "cmd:" + h
	if _, err := e.memo.Ask(key, func() (string, error) {
		return e.build(ctx, cmd, nil, h)
	}); err != nil {
		return "", err
	}
	return e.ReadArtifact(artifact.Built(h, stdoutPath))
}

// WriteArtifact memoizes writing contents to a single-file artifact at
// path, per §4.4's write-literal-file rule.
func (e *Engine) WriteArtifact(ctx context.Context, path string, contents []byte) (artifact.Artifact, error) {
	if err := command.ValidatePath(path); err != nil {
		return artifact.Artifact{}, err
	}
	h := command.WriteHash(contents)
	key := "write:" + h
	if _, err := e.memo.Ask(key, func() (string, error) {
		return e.store.Acquire(ctx, h, nil, func(tmpResultDir string) error {
			dest := filepath.Join(tmpResultDir, filepath.FromSlash(path))
			if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
				return err
			}
			return os.WriteFile(dest, contents, 0644)
		})
	}); err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.Built(h, path), nil
}

// CallArtifact executes the built binary bin in a one-shot sandbox
// populated with inputs, outside of the memoizer (§4.10).
func (e *Engine) CallArtifact(ctx context.Context, bin artifact.Artifact, args []string, inputs []artifact.Artifact) (exec.Result, error) {
	tmp, err := e.sandbox.NewTempDir("call")
	if err != nil {
		return exec.Result{}, err
	}
	defer e.cleanupTemp(tmp)

	all := append(append([]artifact.Artifact{}, inputs...), bin)
	if err := e.sandbox.Materialize(tmp, all); err != nil {
		return exec.Result{}, err
	}

	program, err := e.resolveCallee(tmp, command.FromArtifact(bin))
	if err != nil {
		return exec.Result{}, err
	}
	return e.executor.Execute(ctx, exec.Opts{
		Program: program,
		Args:    exec.SpliceTMPDIR(args, tmp),
		Dir:     tmp,
		Env:     e.Env(),
	})
}

func (e *Engine) hashOf(cmd command.Command, outputPaths []string) (string, error) {
	for _, p := range outputPaths {
		if err := command.ValidatePath(p); err != nil {
			return "", err
		}
	}
	externalHashes, err := e.externalHashesFor(cmd)
	if err != nil {
		return "", err
	}
	q := command.Q{Command: cmd, OutputPaths: outputPaths}
	return q.Hash(externalHashes)
}

// externalHashesFor computes the content hash of every relative-path
// External input, per §4.3. Hashes are recomputed on every call rather
// than cached against file metadata: this module does not attempt
// fine-grained read tracing (see the Non-goals), so a changed input is
// detected by re-reading it, not by comparing mtimes against a trace.
func (e *Engine) externalHashesFor(cmd command.Command) ([]command.ExternalHash, error) {
	hasher := hash.SHA256()
	var out []command.ExternalHash
	for _, a := range cmd.InputArtifacts() {
		if a.Kind() != artifact.External || a.IsAbsolute() {
			continue
		}
		realPath := filepath.Join(e.ProjectRoot, filepath.FromSlash(a.Subpath()))
		sum, err := hasher.File(realPath)
		if err != nil {
			return nil, fmt.Errorf("engine: failed to hash external input %s: %w", a, err)
		}
		out = append(out, command.ExternalHash{Path: a.Subpath(), Hash: sum})
	}
	return out, nil
}

// build executes cmd's steps inside a fresh sandbox and moves its declared
// outputs into the artifact store under hash h. It is invoked at most once
// per hash thanks to artifactstore.Store.Acquire's singleflight guarantee.
func (e *Engine) build(ctx context.Context, cmd command.Command, outputPaths []string, h string) (string, error) {
	allOutputs := append(append([]string{}, outputPaths...), stdoutPath)
	e.deps.record(h, dependencyHashes(cmd))

	_, err := e.store.Acquire(ctx, h, func() { e.announce(cmd) }, func(tmpResultDir string) error {
		sandboxDir, err := e.sandbox.NewTempDir(h)
		if err != nil {
			return err
		}
		defer e.cleanupTemp(sandboxDir)

		if err := e.sandbox.Materialize(sandboxDir, cmd.InputArtifacts()); err != nil {
			return err
		}
		if err := sandbox.EnsureOutputDirs(sandboxDir, allOutputs); err != nil {
			return err
		}

		stdout, err := e.runSteps(ctx, sandboxDir, cmd.Steps)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(sandboxDir, stdoutPath), stdout, 0644); err != nil {
			return err
		}

		for _, p := range allOutputs {
			src := filepath.Join(sandboxDir, filepath.FromSlash(p))
			if _, err := os.Stat(src); err != nil {
				return fmt.Errorf("engine: missing output %q after running command (sandbox %s): %w", p, sandboxDir, err)
			}
		}
		for _, p := range allOutputs {
			src := filepath.Join(sandboxDir, filepath.FromSlash(p))
			dst := filepath.Join(tmpResultDir, filepath.FromSlash(p))
			if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
				return err
			}
			if err := os.Rename(src, dst); err != nil {
				return fmt.Errorf("engine: failed to move output %q into store: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return h, nil
}

// dependencyHashes returns the distinct hashes of every Built input cmd
// depends on, for the dependency-graph diagnostic recorded by build.
func dependencyHashes(cmd command.Command) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range cmd.InputArtifacts() {
		if a.Kind() != artifact.Built || seen[a.Hash()] {
			continue
		}
		seen[a.Hash()] = true
		out = append(out, a.Hash())
	}
	return out
}

func (e *Engine) runSteps(ctx context.Context, sandboxDir string, steps []command.Step) ([]byte, error) {
	var stdout bytes.Buffer
	for _, step := range steps {
		switch step.Kind {
		case command.KindMessage:
			if e.verbosity >= Normal {
				e.log.Info(step.Text)
			}
		case command.KindShadow:
			if err := e.sandbox.LinkShadow(sandboxDir, step.ShadowArtifact, step.ShadowDest); err != nil {
				return nil, err
			}
		case command.KindMkdir:
			dir := filepath.Join(sandboxDir, filepath.FromSlash(step.MkdirPath))
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("engine: failed to create directory %q: %w", step.MkdirPath, err)
			}
		case command.KindCall:
			program, err := e.resolveCallee(sandboxDir, step.Callee)
			if err != nil {
				return nil, err
			}
			cwd := filepath.Join(sandboxDir, filepath.FromSlash(step.Cwd))
			if e.verbosity == Loud {
				e.log.WithField("cwd", cwd).Infof("exec: %s %v", program, step.Args)
			}
			result, err := e.executor.Execute(ctx, exec.Opts{
				Program: program,
				Args:    exec.SpliceTMPDIR(step.Args, sandboxDir),
				Dir:     cwd,
				Env:     e.Env(),
			})
			if err != nil {
				if e.verbosity >= Normal {
					e.log.WithError(err).WithField("stderr", string(result.Stderr)).Error("command failed")
				}
				return nil, err
			}
			stdout.Write(result.Stdout)
		}
	}
	return stdout.Bytes(), nil
}

func (e *Engine) resolveCallee(sandboxDir string, callee command.Callee) (string, error) {
	switch callee.Kind {
	case command.CalleeEnv:
		return callee.Name, nil
	case command.CalleeArtifact:
		a := callee.Artifact
		if a.Kind() == artifact.External && a.IsAbsolute() {
			return a.Subpath(), nil
		}
		return filepath.Join(sandboxDir, filepath.FromSlash(a.PathIn())), nil
	case command.CalleeTemp:
		return filepath.Join(sandboxDir, filepath.FromSlash(callee.Name)), nil
	default:
		return "", fmt.Errorf("engine: unknown callee kind %q", callee.Kind)
	}
}

func (e *Engine) announce(cmd command.Command) {
	if e.verbosity < Normal {
		return
	}
	for _, step := range cmd.Steps {
		if step.Kind == command.KindMessage {
			e.log.Info(step.Text)
		}
	}
}

func (e *Engine) cleanupTemp(dir string) {
	if e.temps == KeepTemps {
		return
	}
	os.RemoveAll(dir)
}
