package poseidon

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/exp/slices"
)

// generateMDS samples a Cauchy matrix aᵢⱼ = 1/(xᵢ + yⱼ) from the Grain stream, skipping
// the first skip candidates, and returns it with its inverse.
func generateMDS(g *grain, width, skip int) (mds, mdsInv [][]fr.Element) {
	var xs, ys []fr.Element
	for {
		for {
			vals := make([]fr.Element, 2*width)
			for i := range vals {
				vals[i] = g.nextFieldElementWithoutRejection()
			}
			if allDistinct(vals) {
				xs, ys = vals[:width], vals[width:]
				break
			}
		}
		if skip != 0 {
			skip--
			continue
		}
		break
	}

	mds = newMatrix(width)
	for i := range xs {
		for j := range ys {
			var sum fr.Element
			sum.Add(&xs[i], &ys[j])
			if sum.IsZero() {
				panic("poseidon: degenerate Cauchy matrix")
			}
			mds[i][j].Inverse(&sum)
		}
	}

	mdsInv, ok := invert(mds)
	if !ok {
		panic("poseidon: singular MDS matrix")
	}
	return mds, mdsInv
}

func allDistinct(vals []fr.Element) bool {
	sorted := slices.Clone(vals)
	slices.SortFunc(sorted, func(a, b fr.Element) int { return a.Cmp(&b) })
	sorted = slices.CompactFunc(sorted, func(a, b fr.Element) bool { return a.Equal(&b) })
	return len(sorted) == len(vals)
}

func newMatrix(n int) [][]fr.Element {
	m := make([][]fr.Element, n)
	for i := range m {
		m[i] = make([]fr.Element, n)
	}
	return m
}

// invert computes m⁻¹ by Gauss-Jordan elimination.
func invert(m [][]fr.Element) ([][]fr.Element, bool) {
	n := len(m)
	a := newMatrix(n)
	inv := newMatrix(n)
	for i := range m {
		copy(a[i], m[i])
		inv[i][i].SetOne()
	}

	var t fr.Element
	for col := 0; col < n; col++ {
		pivot := -1
		for row := col; row < n; row++ {
			if !a[row][col].IsZero() {
				pivot = row
				break
			}
		}
		if pivot == -1 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		var pInv fr.Element
		pInv.Inverse(&a[col][col])
		for j := 0; j < n; j++ {
			a[col][j].Mul(&a[col][j], &pInv)
			inv[col][j].Mul(&inv[col][j], &pInv)
		}

		for row := 0; row < n; row++ {
			if row == col || a[row][col].IsZero() {
				continue
			}
			f := a[row][col]
			for j := 0; j < n; j++ {
				t.Mul(&f, &a[col][j])
				a[row][j].Sub(&a[row][j], &t)
				t.Mul(&f, &inv[col][j])
				inv[row][j].Sub(&inv[row][j], &t)
			}
		}
	}
	return inv, true
}
