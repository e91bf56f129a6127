package command

import (
	"encoding/json"
	"sort"

	"github.com/pier-build/pier/artifact"
	"github.com/pier-build/pier/hash"
)

// Q (CommandQ) is the memoization key for a command: the command value
// together with the output paths it must produce. Its Hash is the identity
// of the Built artifacts the command yields.
type Q struct {
	Command     Command
	OutputPaths []string
}

// ExternalHash pairs an External artifact's relative path with the content
// hash of the file it currently points at. Callers (the engine) compute
// these before hashing a Q, since the hash must change whenever a source
// file changes even though the Command value itself did not.
type ExternalHash struct {
	Path string
	Hash string
}

type encodedArtifact struct {
	Kind    string `json:"kind"`
	Hash    string `json:"hash,omitempty"`
	Subpath string `json:"subpath"`
}

func encodeArtifact(a artifact.Artifact) encodedArtifact {
	return encodedArtifact{Kind: a.Kind().String(), Hash: a.Hash(), Subpath: a.Subpath()}
}

type encodedStep struct {
	Kind           string `json:"kind"`
	CalleeKind     string `json:"calleeKind,omitempty"`
	CalleeName     string `json:"calleeName,omitempty"`
	CalleeArtifact *encodedArtifact `json:"calleeArtifact,omitempty"`
	Args           []string         `json:"args,omitempty"`
	Cwd            string           `json:"cwd,omitempty"`
	Text           string           `json:"text,omitempty"`
	ShadowDest     string           `json:"shadowDest,omitempty"`
	ShadowArtifact *encodedArtifact `json:"shadowArtifact,omitempty"`
	MkdirPath      string           `json:"mkdirPath,omitempty"`
}

func encodeStep(s Step) encodedStep {
	e := encodedStep{Kind: string(s.Kind)}
	switch s.Kind {
	case KindCall:
		e.CalleeKind = string(s.Callee.Kind)
		e.CalleeName = s.Callee.Name
		if s.Callee.Kind == CalleeArtifact {
			ea := encodeArtifact(s.Callee.Artifact)
			e.CalleeArtifact = &ea
		}
		e.Args = s.Args
		e.Cwd = s.Cwd
	case KindMessage:
		e.Text = s.Text
	case KindShadow:
		e.ShadowDest = s.ShadowDest
		ea := encodeArtifact(s.ShadowArtifact)
		e.ShadowArtifact = &ea
	case KindMkdir:
		e.MkdirPath = s.MkdirPath
	}
	return e
}

type encodedQ struct {
	Tag            string            `json:"tag"`
	Steps          []encodedStep     `json:"steps"`
	Inputs         []encodedArtifact `json:"inputs"`
	OutputPaths    []string          `json:"outputPaths"`
	ExternalHashes []ExternalHash    `json:"externalHashes"`
}

// Canonicalize renders q (paired with externalHashes, the content hashes of
// every relative-path External input) into a deterministic byte sequence.
// Two Qs with the same Command value (regardless of input insertion order)
// and the same external file contents always canonicalize identically.
func (q Q) Canonicalize(externalHashes []ExternalHash) ([]byte, error) {
	inputs := q.Command.InputArtifacts()
	encodedInputs := make([]encodedArtifact, len(inputs))
	for i, a := range inputs {
		encodedInputs[i] = encodeArtifact(a)
	}

	steps := make([]encodedStep, len(q.Command.Steps))
	for i, s := range q.Command.Steps {
		steps[i] = encodeStep(s)
	}

	sortedExternal := append([]ExternalHash{}, externalHashes...)
	sort.Slice(sortedExternal, func(i, j int) bool {
		return sortedExternal[i].Path < sortedExternal[j].Path
	})

	e := encodedQ{
		Tag:            "commandHash",
		Steps:          steps,
		Inputs:         encodedInputs,
		OutputPaths:    q.OutputPaths,
		ExternalHashes: sortedExternal,
	}
	return json.Marshal(e)
}

// Hash computes the content-addressed hash of q given the content hashes of
// its relative External inputs. The result is a URL-safe, padding-free
// base64 string suitable for use as a store directory name (§4.3, §6).
func (q Q) Hash(externalHashes []ExternalHash) (string, error) {
	data, err := q.Canonicalize(externalHashes)
	if err != nil {
		return "", err
	}
	return hash.SumURL(data), nil
}

// WriteHash computes the hash used by writeArtifact (§4.4): the digest of
// the literal prefixed contents, independent of any CommandQ.
func WriteHash(contents []byte) string {
	prefixed := append([]byte("writeArtifact: "), contents...)
	return hash.SumURL(prefixed)
}
