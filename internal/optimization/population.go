package optimization

import (
	"gonum.org/v1/gonum/mat"
)

// Field describes the decoding bounds of a real-coded chromosome: one
// [lower, upper] interval per decision variable. Decoding clamps each gene
// into its interval.
type Field struct {
	Lower []float64
	Upper []float64
}

// NewField creates a field with the given per-variable bounds. The two
// slices must have equal length.
func NewField(lower, upper []float64) (*Field, error) {
	if len(lower) != len(upper) {
		return nil, NewConfigurationErrorf("field bounds length mismatch: %d lower vs %d upper", len(lower), len(upper))
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return nil, NewConfigurationErrorf("field variable %d has lower bound %v above upper bound %v", i, lower[i], upper[i])
		}
	}
	return &Field{Lower: lower, Upper: upper}, nil
}

// UniformField creates a field where every variable shares the same bounds.
func UniformField(vars int, lower, upper float64) (*Field, error) {
	lo := make([]float64, vars)
	hi := make([]float64, vars)
	for i := range lo {
		lo[i] = lower
		hi[i] = upper
	}
	return NewField(lo, hi)
}

// Vars returns the number of decision variables the field describes.
func (f *Field) Vars() int {
	return len(f.Lower)
}

// Clamp limits x to the field's bounds for variable j.
func (f *Field) Clamp(j int, x float64) float64 {
	if x < f.Lower[j] {
		return f.Lower[j]
	}
	if x > f.Upper[j] {
		return f.Upper[j]
	}
	return x
}

// Population holds the individuals a task evaluates together in one
// generation. The engine reads a population's matrices but never mutates
// their contents; it subsets populations to feasibility-restricted copies.
//
// Matrix shapes, for N individuals:
//
//	Chrom: N x vars   genotypes
//	Phen:  N x vars   decoded phenotypes
//	ObjV:  N x M      objective values (M == 1 for single-objective tasks)
//	CV:    N x C      constraint violations, nil when unconstrained
//	FitnV: N          fitness values, higher is fitter
type Population struct {
	Chrom *mat.Dense
	Phen  *mat.Dense
	ObjV  *mat.Dense
	CV    *mat.Dense
	FitnV *mat.VecDense
	Field *Field
}

// NewPopulation creates a population from a genotype matrix. The field may
// be nil, in which case decoding is the identity.
func NewPopulation(chrom *mat.Dense, field *Field) *Population {
	return &Population{Chrom: chrom, Field: field}
}

// NewEmptyPopulation creates the size-zero sentinel used for "no best
// individual found yet".
func NewEmptyPopulation() *Population {
	return &Population{}
}

// Size returns the number of individuals.
func (p *Population) Size() int {
	if p == nil {
		return 0
	}
	switch {
	case p.Chrom != nil:
		r, _ := p.Chrom.Dims()
		return r
	case p.Phen != nil:
		r, _ := p.Phen.Dims()
		return r
	case p.ObjV != nil:
		r, _ := p.ObjV.Dims()
		return r
	}
	return 0
}

// Decode computes the phenotype matrix from the genotype matrix, clamping
// each gene into the field's bounds. Without a field the phenotype is a
// copy of the genotype.
func (p *Population) Decode() {
	if p.Chrom == nil {
		return
	}
	r, c := p.Chrom.Dims()
	phen := mat.NewDense(r, c, nil)
	phen.Copy(p.Chrom)
	if p.Field != nil {
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				phen.Set(i, j, p.Field.Clamp(j, phen.At(i, j)))
			}
		}
	}
	p.Phen = phen
}

// Feasible returns the indices of individuals satisfying every constraint,
// in ascending order. An individual is feasible iff all its constraint
// violation values are <= 0. Without a CV matrix every individual is
// feasible.
func (p *Population) Feasible() []int {
	n := p.Size()
	if p.CV == nil {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	_, c := p.CV.Dims()
	var idx []int
	for i := 0; i < n; i++ {
		ok := true
		for j := 0; j < c; j++ {
			if p.CV.At(i, j) > 0 {
				ok = false
				break
			}
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// Take returns a new population holding deep copies of the rows at the
// given indices, preserving every matrix that is present on the receiver.
func (p *Population) Take(indices []int) *Population {
	sub := &Population{Field: p.Field}
	sub.Chrom = takeRows(p.Chrom, indices)
	sub.Phen = takeRows(p.Phen, indices)
	sub.ObjV = takeRows(p.ObjV, indices)
	sub.CV = takeRows(p.CV, indices)
	if p.FitnV != nil {
		v := mat.NewVecDense(len(indices), nil)
		for i, src := range indices {
			v.SetVec(i, p.FitnV.AtVec(src))
		}
		sub.FitnV = v
	}
	return sub
}

// BestIndex returns the index of the individual with maximal fitness,
// or -1 for an empty population or one without fitness values.
func (p *Population) BestIndex() int {
	if p.Size() == 0 || p.FitnV == nil {
		return -1
	}
	best := 0
	for i := 1; i < p.FitnV.Len(); i++ {
		if p.FitnV.AtVec(i) > p.FitnV.AtVec(best) {
			best = i
		}
	}
	return best
}

// ObjColumn returns a copy of objective column m as a plain slice.
func (p *Population) ObjColumn(m int) []float64 {
	if p.ObjV == nil {
		return nil
	}
	r, _ := p.ObjV.Dims()
	col := make([]float64, r)
	mat.Col(col, m, p.ObjV)
	return col
}

func takeRows(src *mat.Dense, indices []int) *mat.Dense {
	if src == nil {
		return nil
	}
	_, c := src.Dims()
	dst := mat.NewDense(len(indices), c, nil)
	for i, row := range indices {
		for j := 0; j < c; j++ {
			dst.Set(i, j, src.At(row, j))
		}
	}
	return dst
}
