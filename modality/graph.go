package modality

import (
	"math"

	lvlath "github.com/katalvlaran/lvlath/core"
	"gonum.org/v1/gonum/mat"

	"github.com/creso-ml/creso/pkg/errors"
)

// GraphFeatureCount is the number of structural descriptors computed per
// vertex: degree, mean neighbor degree, max neighbor degree, weight sum,
// weight mean, weight max, weight min, self-loop count.
const GraphFeatureCount = 8

// Graph adapts an lvlath graph into one canonical sample per vertex.
//
// Samples follow the graph's sorted vertex-ID order (lvlath Vertices() is
// deterministic), so labels must be aligned with that order. The adapter
// reads the graph but never mutates it.
type Graph struct {
	inputDim int
}

// NewGraph creates a graph adapter.
func NewGraph(inputDim int) *Graph {
	return &Graph{inputDim: inputDim}
}

// Task implements Adapter.
func (a *Graph) Task() Task { return TaskGraph }

// ToCanonical implements Adapter. Accepts *lvlath/core.Graph.
func (a *Graph) ToCanonical(raw any) (*mat.Dense, error) {
	const op = "Graph.ToCanonical"

	g, ok := raw.(*lvlath.Graph)
	if !ok {
		return nil, errors.NewDataValidationErrorReason(op, 0,
			"unsupported input type: want *lvlath/core.Graph")
	}
	if a.inputDim != GraphFeatureCount {
		return nil, errors.NewDataValidationError(op, 1, GraphFeatureCount, a.inputDim)
	}

	ids := g.Vertices()
	if len(ids) == 0 {
		return nil, errors.NewDataValidationErrorReason(op, 0, "graph has no vertices")
	}

	// Degrees are needed twice (own + neighbor aggregation); compute once.
	degrees := make(map[string]int, len(ids))
	for _, id := range ids {
		edges, err := g.Neighbors(id)
		if err != nil {
			return nil, errors.Wrap(err, "creso: Graph.ToCanonical")
		}
		degrees[id] = len(edges)
	}

	batch := mat.NewDense(len(ids), GraphFeatureCount, nil)
	for i, id := range ids {
		edges, err := g.Neighbors(id)
		if err != nil {
			return nil, errors.Wrap(err, "creso: Graph.ToCanonical")
		}
		batch.SetRow(i, vertexDescriptor(id, edges, degrees))
	}
	return batch, nil
}

// vertexDescriptor aggregates a vertex's incident edges into the fixed
// structural feature vector.
func vertexDescriptor(id string, edges []*lvlath.Edge, degrees map[string]int) []float64 {
	degree := float64(len(edges))

	var (
		weightSum   float64
		weightMax   = math.Inf(-1)
		weightMin   = math.Inf(1)
		selfLoops   float64
		nbrDegSum   float64
		nbrDegMax   float64
		nbrDegCount float64
	)
	for _, e := range edges {
		w := float64(e.Weight)
		weightSum += w
		if w > weightMax {
			weightMax = w
		}
		if w < weightMin {
			weightMin = w
		}

		other := e.To
		if other == id {
			other = e.From
		}
		if e.From == id && e.To == id {
			selfLoops++
			continue
		}
		d := float64(degrees[other])
		nbrDegSum += d
		if d > nbrDegMax {
			nbrDegMax = d
		}
		nbrDegCount++
	}

	weightMean := 0.0
	if len(edges) > 0 {
		weightMean = weightSum / degree
	} else {
		weightMax, weightMin = 0, 0
	}
	nbrDegMean := 0.0
	if nbrDegCount > 0 {
		nbrDegMean = nbrDegSum / nbrDegCount
	}

	return []float64{
		degree,
		nbrDegMean,
		nbrDegMax,
		weightSum,
		weightMean,
		weightMax,
		weightMin,
		selfLoops,
	}
}
