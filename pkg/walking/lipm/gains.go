package lipm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Gravity in m/s^2.
const Gravity = 9.81

// Weights of the preview controller cost: tracking error and input.
const (
	WeightError = 1.0e+8
	WeightInput = 1.0
)

const (
	riccatiMaxIterations = 100000
	riccatiTolerance     = 1e-11
)

var errNotConverged = errors.New("riccati iteration did not converge")

// model is the discrete cart-table model of one axis with jerk input,
// state = (position, velocity, acceleration), output = ZMP.
type model struct {
	a [3][3]float64
	b [3]float64
	c [3]float64
}

// gains of the preview servo controller:
//   du = ke*e + kx.(x - xp) + sum(preview[j] * dref[k+j])
type gains struct {
	ke      float64
	kx      [3]float64
	preview []float64
}

func newModel(comHeight, dt float64) model {
	return model{
		a: [3][3]float64{
			{1, dt, dt * dt / 2},
			{0, 1, dt},
			{0, 0, 1},
		},
		b: [3]float64{dt * dt * dt / 6, dt * dt / 2, dt},
		c: [3]float64{1, 0, -comHeight / Gravity},
	}
}

// augmented builds the error system: X = (e, dx), e = ref - zmp.
func (m model) augmented() (phi, g *mat.Dense) {
	phi = mat.NewDense(4, 4, nil)
	g = mat.NewDense(4, 1, nil)
	phi.Set(0, 0, 1)
	var cb float64
	for j := 0; j < 3; j++ {
		var ca float64
		for k := 0; k < 3; k++ {
			ca += m.c[k] * m.a[k][j]
			phi.Set(j+1, k+1, m.a[j][k])
		}
		phi.Set(0, j+1, -ca)
		cb += m.c[j] * m.b[j]
		g.Set(j+1, 0, m.b[j])
	}
	g.Set(0, 0, -cb)
	return
}

// solveDARE solves the discrete algebraic Riccati equation
//   P = phi'P phi - phi'P g (r + g'P g)^-1 g'P phi + q
// by iterating the Riccati difference equation from P = q.
func solveDARE(phi, g, q *mat.Dense, r float64) (*mat.Dense, error) {
	p := mat.DenseCopyOf(q)
	for n := 0; n < riccatiMaxIterations; n++ {
		next := riccatiStep(phi, g, q, p, r)
		if !finite(next) {
			return nil, errNotConverged
		}
		if maxAbsDiff(next, p) <= riccatiTolerance*math.Max(1, maxAbs(next)) {
			return next, nil
		}
		p = next
	}
	return nil, errNotConverged
}

func riccatiStep(phi, g, q, p *mat.Dense, r float64) *mat.Dense {
	var pg, gpg, gpphi, k, pphi, corr mat.Dense
	pg.Mul(p, g)
	gpg.Mul(g.T(), &pg)
	gpphi.Mul(pg.T(), phi)
	k.Scale(1/(r+gpg.At(0, 0)), &gpphi)
	pphi.Mul(p, phi)
	next := mat.NewDense(4, 4, nil)
	next.Mul(phi.T(), &pphi)
	corr.Mul(gpphi.T(), &k)
	next.Sub(next, &corr)
	next.Add(next, q)
	return next
}

// previewGains computes the controller gains with a preview horizon of
// n ticks.
func previewGains(m model, n int) (gains, error) {
	phi, g := m.augmented()
	q := mat.NewDense(4, 4, nil)
	q.Set(0, 0, WeightError)
	p, err := solveDARE(phi, g, q, WeightInput)
	if err != nil {
		return gains{}, err
	}

	var pg, gpg, gpphi, k mat.Dense
	pg.Mul(p, g)
	gpg.Mul(g.T(), &pg)
	s := WeightInput + gpg.At(0, 0)
	gpphi.Mul(pg.T(), phi)
	k.Scale(1/s, &gpphi)

	res := gains{ke: -k.At(0, 0), preview: make([]float64, n)}
	for j := 0; j < 3; j++ {
		res.kx[j] = -k.At(0, j+1)
	}

	// closed loop: xi = phi - g k
	var gk, xi mat.Dense
	gk.Mul(g, &k)
	xi.Sub(phi, &gk)

	// preview[j] = -s^-1 g' (xi')^(j-1) P e1
	v := mat.NewVecDense(4, nil)
	v.CopyVec(p.ColView(0))
	for j := 1; j < n; j++ {
		res.preview[j] = -mat.Dot(g.ColView(0), v) / s
		var next mat.VecDense
		next.MulVec(xi.T(), v)
		v = &next
	}
	for _, f := range res.preview {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return gains{}, fmt.Errorf("preview gains not finite")
		}
	}
	return res, nil
}

func maxAbs(m *mat.Dense) float64 {
	var max float64
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			max = math.Max(max, math.Abs(m.At(i, j)))
		}
	}
	return max
}

func maxAbsDiff(a, b *mat.Dense) float64 {
	var diff mat.Dense
	diff.Sub(a, b)
	return maxAbs(&diff)
}

func finite(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
