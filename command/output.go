package command

import (
	"fmt"
	"path"

	"github.com/pier-build/pier/artifact"
)

// Output declares the set of output paths a Command must produce, plus a
// pure function reconstructing a typed result once those paths have been
// resolved into Artifacts. Outputs compose applicatively: And concatenates
// the declared paths and pairs the two reconstructors.
type Output struct {
	Paths   []string
	Combine func(results map[string]artifact.Artifact) interface{}
}

// ValidatePath checks the invariants declared outputs must satisfy: not
// empty, not ".", normalized, no ".." component, relative.
func ValidatePath(p string) error {
	if p == "" || p == "." {
		return fmt.Errorf("command: output path must not be empty or \".\"")
	}
	if path.IsAbs(p) {
		return fmt.Errorf("command: output path %q must be relative", p)
	}
	clean := path.Clean(p)
	if clean != p {
		return fmt.Errorf("command: output path %q is not normalized (expected %q)", p, clean)
	}
	for _, part := range splitPath(clean) {
		if part == ".." {
			return fmt.Errorf("command: output path %q may not contain \"..\"", p)
		}
	}
	return nil
}

func splitPath(p string) []string {
	var parts []string
	for _, part := range pathSplitAll(p) {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func pathSplitAll(p string) []string {
	var out []string
	cur := ""
	for _, r := range p {
		if r == '/' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}

// Path declares a single output path, reconstructing to the Built artifact
// at that path once the command hash is known.
func Path(p string) (Output, error) {
	if err := ValidatePath(p); err != nil {
		return Output{}, err
	}
	return Output{
		Paths: []string{p},
		Combine: func(results map[string]artifact.Artifact) interface{} {
			return results[p]
		},
	}, nil
}

// MustPath is Path but panics on an invalid path; useful for output
// descriptors built from compile-time-constant strings.
func MustPath(p string) Output {
	o, err := Path(p)
	if err != nil {
		panic(err)
	}
	return o
}

// And composes two Output descriptors: declared paths concatenate and the
// combined result is a 2-element array of the two reconstructed values.
func (o Output) And(other Output) Output {
	return Output{
		Paths: append(append([]string{}, o.Paths...), other.Paths...),
		Combine: func(results map[string]artifact.Artifact) interface{} {
			return [2]interface{}{o.Combine(results), other.Combine(results)}
		},
	}
}

// Map transforms the reconstructed value of o with f, preserving its
// declared paths.
func (o Output) Map(f func(interface{}) interface{}) Output {
	inner := o.Combine
	return Output{
		Paths: o.Paths,
		Combine: func(results map[string]artifact.Artifact) interface{} {
			return f(inner(results))
		},
	}
}

// Artifacts reconstructs Built artifacts for every declared path against
// hash h.
func (o Output) Artifacts(h string) map[string]artifact.Artifact {
	out := make(map[string]artifact.Artifact, len(o.Paths))
	for _, p := range o.Paths {
		out[p] = artifact.Built(h, p)
	}
	return out
}
