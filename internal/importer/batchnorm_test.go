package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/layers"
)

func batchNormNode(t *testing.T, channels int) *graph.Node {
	t.Helper()
	return &graph.Node{
		Name:      "bn",
		OpName:    opBatchNormalization,
		Arguments: []*graph.Variable{{Name: "in", Shape: graph.Shape{channels, 4, 4}}},
		Outputs:   []*graph.Variable{{Name: "out", Shape: graph.Shape{channels, 4, 4}}},
		Parameters: []*graph.Parameter{
			{Name: "scale", Value: zeros(t, channels)},
			{Name: "bias", Value: zeros(t, channels)},
		},
		Constants: []*graph.Parameter{
			{Name: "aggregate_mean", Value: zeros(t, channels)},
			{Name: "aggregate_variance", Value: zeros(t, channels)},
		},
	}
}

// TestBatchNormalization_Fusion tests the expansion into normalization,
// scaling and bias primitives with unpadded internal boundaries.
func TestBatchNormalization_Fusion(t *testing.T) {
	node := batchNormNode(t, 3)
	node.Parameters[0].Value = value(t, graph.Shape{3}, []float32{2, 3, 4})
	node.Parameters[1].Value = value(t, graph.Shape{3}, []float32{-1, 0, 1})
	node.Constants[0].Value = value(t, graph.Shape{3}, []float32{5, 6, 7})
	node.Constants[1].Value = value(t, graph.Shape{3}, []float32{1, 1, 1})

	result, err := Import([]*graph.Node{node}, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, []layers.Kind{layers.BatchNormalization, layers.Scaling, layers.Bias}, layerKinds(result))

	bn := result[0].(*layers.BatchNormalizationLayer)
	assert.Equal(t, []float32{5, 6, 7}, bn.Mean)
	assert.Equal(t, []float32{1, 1, 1}, bn.Variance)
	assert.Equal(t, float32(1e-5), bn.Epsilon)

	scaling := result[1].(*layers.ScalingLayer)
	assert.Equal(t, []float32{2, 3, 4}, scaling.Scales)
	assert.Equal(t, layers.NoPadding(), scaling.Params.InputPadding)
	assert.Equal(t, layers.NoPadding(), scaling.Params.OutputPadding)

	bias := result[2].(*layers.BiasLayer)
	assert.Equal(t, []float32{-1, 0, 1}, bias.Bias)

	// The group shares one boundary: normalize in, bias out.
	shape := layers.Shape{Rows: 4, Columns: 4, Channels: 3}
	assert.Equal(t, shape, bn.Params.InputShape)
	assert.Equal(t, shape, bias.Params.OutputShape)
}

// TestBatchNormalization_MissingStatistics tests that a node without its
// aggregate constants is skipped.
func TestBatchNormalization_MissingStatistics(t *testing.T) {
	node := batchNormNode(t, 3)
	node.Constants = nil

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Contains(t, reason, "aggregate_mean")
}

// TestBatchNormalization_PositionalParameters tests the positional
// fallback used by stripped graphs.
func TestBatchNormalization_PositionalParameters(t *testing.T) {
	node := batchNormNode(t, 3)
	for _, p := range node.Parameters {
		p.Name = ""
	}
	for _, c := range node.Constants {
		c.Name = ""
	}

	result, err := Import([]*graph.Node{node}, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, result, 3)
}
