package workflow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGraph = `{
  "16": {
    "class_type": "LoadImage",
    "inputs": {"image": "placeholder.png", "upload": "image"}
  },
  "20": {
    "class_type": "KSampler",
    "inputs": {"seed": 42, "steps": 20}
  },
  "35": {
    "class_type": "SaveImage",
    "inputs": {"filename_prefix": "placeholder", "images": ["20", 0]}
  }
}`

func writeGraph(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow_api.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBindMutatesBothSlots(t *testing.T) {
	tmpl := NewTemplate(writeGraph(t, sampleGraph), "16", "35")

	bound, err := tmpl.Bind("merged_result_x.png", "checkint_x")
	require.NoError(t, err)

	var graph map[string]map[string]any
	require.NoError(t, json.Unmarshal(bound, &graph))

	assert.Equal(t, "merged_result_x.png", graph["16"]["inputs"].(map[string]any)["image"])
	assert.Equal(t, "checkint_x", graph["35"]["inputs"].(map[string]any)["filename_prefix"])
	// Untouched nodes survive round-tripping.
	assert.Equal(t, float64(20), graph["20"]["inputs"].(map[string]any)["steps"])
}

func TestBindReloadsPerCall(t *testing.T) {
	tmpl := NewTemplate(writeGraph(t, sampleGraph), "16", "35")

	first, err := tmpl.Bind("a.png", "a")
	require.NoError(t, err)
	second, err := tmpl.Bind("b.png", "b")
	require.NoError(t, err)

	var g1, g2 map[string]map[string]any
	require.NoError(t, json.Unmarshal(first, &g1))
	require.NoError(t, json.Unmarshal(second, &g2))
	assert.Equal(t, "a.png", g1["16"]["inputs"].(map[string]any)["image"])
	assert.Equal(t, "b.png", g2["16"]["inputs"].(map[string]any)["image"])
}

func TestValidateMissingNode(t *testing.T) {
	tmpl := NewTemplate(writeGraph(t, sampleGraph), "16", "99")
	assert.ErrorIs(t, tmpl.Validate(), ErrMissingNode)
}

func TestValidateNodeWithoutInputs(t *testing.T) {
	graph := `{"16": {"class_type": "LoadImage"}, "35": {"inputs": {}}}`
	tmpl := NewTemplate(writeGraph(t, graph), "16", "35")
	assert.ErrorIs(t, tmpl.Validate(), ErrMissingNode)
}

func TestValidateMissingFile(t *testing.T) {
	tmpl := NewTemplate(filepath.Join(t.TempDir(), "absent.json"), "16", "35")
	assert.Error(t, tmpl.Validate())
}
