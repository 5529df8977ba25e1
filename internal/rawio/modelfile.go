package rawio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"pottsfit/internal/model"
)

// ModelContainer is the schema-less binary map holding the serialized
// model: N_ij is the lower-triangular sequence of non-gap pair counts
// enumerated row-wise, q_ij the flattened corrected pair probabilities, 400
// entries per pair in increasing (i, j>i) order, row-major per block.
type ModelContainer struct {
	NIJ []float64 `msgpack:"N_ij"`
	QIJ []float64 `msgpack:"q_ij"`
}

// WriteModel encodes the corrected pairwise model probabilities
// q_ij[a,b] = pair_freq[i,j,a,b] - w[i,j,a,b]*lambda_pair/Nij[i,j] into the
// container. Negative or non-finite entries are an expected consequence of
// small Nij: they are clamped to zero and counted in a warning.
func WriteModel(target any, x *model.Potentials, pairFreq, nij []float64, lambdaPair float64) error {
	sink, err := NewSink(target)
	if err != nil {
		return err
	}
	defer func() {
		_ = sink.Close()
	}()

	container := BuildModelContainer(x, pairFreq, nij, lambdaPair)
	payload, err := msgpack.Marshal(container)
	if err != nil {
		return fmt.Errorf("encode model container: %w", err)
	}
	if _, err := sink.Write(payload); err != nil {
		return fmt.Errorf("write model container: %w", err)
	}
	return sink.Close()
}

func BuildModelContainer(x *model.Potentials, pairFreq, nij []float64, lambdaPair float64) ModelContainer {
	ncol := x.NCol
	nPairs := ncol * (ncol - 1) / 2

	container := ModelContainer{
		NIJ: make([]float64, 0, nPairs),
		QIJ: make([]float64, 0, nPairs*model.NumAmino*model.NumAmino),
	}
	for i := 1; i < ncol; i++ {
		for j := 0; j < i; j++ {
			container.NIJ = append(container.NIJ, nij[i*ncol+j])
		}
	}

	clamped := 0
	for i := 0; i < ncol-1; i++ {
		for j := i + 1; j < ncol; j++ {
			n := nij[i*ncol+j]
			for a := 0; a < model.NumAmino; a++ {
				for b := 0; b < model.NumAmino; b++ {
					f := pairFreq[((i*ncol+j)*model.NumStates+a)*model.NumStates+b]
					q := f - x.W(i, j, a, b)*lambdaPair/n
					if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
						q = 0
						clamped++
					}
					container.QIJ = append(container.QIJ, q)
				}
			}
		}
	}
	if clamped > 0 {
		log.Warn().Int("entries", clamped).Msg("clamped negative or non-finite model probabilities to zero")
	}
	return container
}

// ReadModel decodes a container written by WriteModel.
func ReadModel(target any) (ModelContainer, error) {
	src, err := NewSource(target)
	if err != nil {
		return ModelContainer{}, err
	}
	defer func() {
		_ = src.Close()
	}()

	var container ModelContainer
	dec := msgpack.NewDecoder(src)
	if err := dec.Decode(&container); err != nil {
		return ModelContainer{}, fmt.Errorf("decode model container: %w", err)
	}
	return container, nil
}

// LowerTriangularPair maps the k-th entry of the row-wise lower-triangular
// enumeration (1,0),(2,0),(2,1),(3,0),... back to its (i, j<i) coordinates.
func LowerTriangularPair(k int) (int, int) {
	i := int((1 + math.Sqrt(1+8*float64(k))) / 2)
	j := k - i*(i-1)/2
	return i, j
}

// PairRank is the position of (i, j>i) in the increasing-(i,j) pair
// enumeration used by the q_ij sequence.
func PairRank(ncol, i, j int) int {
	return i*ncol - i*(i+1)/2 + (j - i - 1)
}
