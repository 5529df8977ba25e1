package model

import "math"

// Potentials holds the Potts model parameters: single potentials v shaped
// [L,21] and pair potentials w shaped [L,L,21,21], both stored flat
// row-major. The pair tensor keeps w[i,j,a,b] == w[j,i,b,a].
type Potentials struct {
	NCol   int
	Single []float64
	Pair   []float64
}

func NewPotentials(ncol int) *Potentials {
	return &Potentials{
		NCol:   ncol,
		Single: make([]float64, ncol*NumStates),
		Pair:   make([]float64, ncol*ncol*NumStates*NumStates),
	}
}

func (p *Potentials) SingleIndex(i, a int) int {
	return i*NumStates + a
}

func (p *Potentials) PairIndex(i, j, a, b int) int {
	return ((i*p.NCol+j)*NumStates+a)*NumStates + b
}

func (p *Potentials) V(i, a int) float64 {
	return p.Single[p.SingleIndex(i, a)]
}

func (p *Potentials) SetV(i, a int, v float64) {
	p.Single[p.SingleIndex(i, a)] = v
}

func (p *Potentials) W(i, j, a, b int) float64 {
	return p.Pair[p.PairIndex(i, j, a, b)]
}

// SetW writes both symmetric entries of the pair tensor.
func (p *Potentials) SetW(i, j, a, b int, w float64) {
	p.Pair[p.PairIndex(i, j, a, b)] = w
	p.Pair[p.PairIndex(j, i, b, a)] = w
}

func (p *Potentials) Clone() *Potentials {
	clone := &Potentials{
		NCol:   p.NCol,
		Single: make([]float64, len(p.Single)),
		Pair:   make([]float64, len(p.Pair)),
	}
	copy(clone.Single, p.Single)
	copy(clone.Pair, p.Pair)
	return clone
}

func (p *Potentials) Zero() {
	for i := range p.Single {
		p.Single[i] = 0
	}
	for i := range p.Pair {
		p.Pair[i] = 0
	}
}

// Finite reports whether every parameter is a finite number.
func (p *Potentials) Finite() bool {
	for _, v := range p.Single {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, w := range p.Pair {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return false
		}
	}
	return true
}

// Norm is the Euclidean norm over all parameters.
func (p *Potentials) Norm() float64 {
	var sum float64
	for _, v := range p.Single {
		sum += v * v
	}
	for _, w := range p.Pair {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// RegType selects the regularization penalty shape.
type RegType string

const (
	RegL1 RegType = "L1"
	RegL2 RegType = "L2"
)

// PriorMode selects the mean of the Gaussian prior on single potentials.
type PriorMode string

const (
	PriorVCenter PriorMode = "v-center"
	PriorVZero   PriorMode = "v-zero"
)

// Regularization is the immutable penalty specification computed once from
// the alignment dimensions. MuSingle is the prior mean for the single
// potentials (v* under PriorVCenter, zeros under PriorVZero), shaped [L,21]
// flat.
type Regularization struct {
	Type         RegType
	LambdaSingle float64
	LambdaPair   float64
	Prior        PriorMode
	MuSingle     []float64
}
