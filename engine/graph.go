package engine

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pier-build/pier/graph"
)

// hashNode is a build-hash wrapper satisfying graph.Node, so the generic
// graph package can index nodes by their content hash.
type hashNode string

func (n hashNode) NodeID() string { return string(n) }

// depGraph collects the dependency edges discovered while building
// commands, guarded by its own mutex since builds run concurrently. Edges
// are also appended to a log file under the store root so a later,
// separate process (cmd/pier's "graph" subcommand) can render the graph
// accumulated across many build invocations, not just the current process.
type depGraph struct {
	mu      sync.Mutex
	g       *graph.Graph
	logPath string
}

func newDepGraph(storeRoot string) *depGraph {
	return &depGraph{g: graph.NewGraph(), logPath: storeRoot + "/graph.log"}
}

// record adds an edge from each of deps to h, meaning "h was built using
// the artifact produced by each dep", and best-effort appends the same
// edges to the on-disk graph log.
func (d *depGraph) record(h string, deps []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.g.Add(hashNode(h))
	for _, dep := range deps {
		d.g.Connect(hashNode(dep), hashNode(h))
	}
	d.appendLog(h, deps)
}

func (d *depGraph) appendLog(h string, deps []string) {
	if len(deps) == 0 {
		return
	}
	f, err := os.OpenFile(d.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return // diagnostics-only; a failure here must never fail a build
	}
	defer f.Close()
	for _, dep := range deps {
		fmt.Fprintf(f, "%s\t%s\n", dep, h)
	}
}

// LoadGraphLog reconstructs a dependency graph.Graph from the edges
// recorded (across possibly many past processes) at storeRoot/graph.log.
func LoadGraphLog(storeRoot string) (*graph.Graph, error) {
	f, err := os.Open(storeRoot + "/graph.log")
	if err != nil {
		if os.IsNotExist(err) {
			return graph.NewGraph(), nil
		}
		return nil, err
	}
	defer f.Close()

	g := graph.NewGraph()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\t", 2)
		if len(parts) != 2 {
			continue
		}
		g.Connect(hashNode(parts[0]), hashNode(parts[1]))
	}
	return g, scanner.Err()
}

// DependencyGraph exposes the dependency edges recorded so far between
// build hashes, for diagnostics.
func (e *Engine) DependencyGraph() *graph.Graph {
	return e.deps.g
}

// ExportDOT renders the recorded build-hash dependency graph in Graphviz
// DOT format.
func (e *Engine) ExportDOT() []byte {
	return e.deps.g.ExportDOT()
}
