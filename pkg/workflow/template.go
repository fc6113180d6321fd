// Package workflow loads the exported ComfyUI workflow-API graph and binds
// its two per-request parameters: the input asset name on the LoadImage node
// and the output filename prefix on the SaveImage node.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMissingNode indicates a mutation-point node id is absent from the
// graph, or the node has no inputs object. This is a configuration problem
// (wrong exported graph or wrong node ids), not a runtime one.
var ErrMissingNode = errors.New("workflow: mutation node missing from graph")

// Template describes a workflow graph file and its two mutation points.
type Template struct {
	path       string
	loadNodeID string
	saveNodeID string
}

// NewTemplate creates a template for the graph at path.
func NewTemplate(path, loadNodeID, saveNodeID string) *Template {
	return &Template{path: path, loadNodeID: loadNodeID, saveNodeID: saveNodeID}
}

// Validate checks at startup that the graph parses and both mutation points
// exist, so a misconfigured template fails the process early instead of the
// first request.
func (t *Template) Validate() error {
	_, err := t.Bind("startup-probe.png", "startup-probe")
	return err
}

// Bind loads a fresh copy of the graph, sets the input asset name and output
// prefix, and returns the bound graph ready for submission. Each call reads
// the file again so concurrent requests never share a mutable graph.
func (t *Template) Bind(assetName, outputPrefix string) (json.RawMessage, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow template %s: %w", t.path, err)
	}

	var graph map[string]map[string]any
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("failed to parse workflow template %s: %w", t.path, err)
	}

	if err := setInput(graph, t.loadNodeID, "image", assetName); err != nil {
		return nil, err
	}
	if err := setInput(graph, t.saveNodeID, "filename_prefix", outputPrefix); err != nil {
		return nil, err
	}

	bound, err := json.Marshal(graph)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize bound workflow: %w", err)
	}
	return bound, nil
}

func setInput(graph map[string]map[string]any, nodeID, key string, value string) error {
	node, ok := graph[nodeID]
	if !ok {
		return fmt.Errorf("%w: node %q", ErrMissingNode, nodeID)
	}
	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: node %q has no inputs", ErrMissingNode, nodeID)
	}
	inputs[key] = value
	return nil
}
