package optimize

import (
	"math"
)

const (
	TINY  = 1e-10
	SMALL = 1e-6
)

// DS is the downhill simplex minimizer (Nelder & Mead). After
// convergence the simplex is rebuilt around the best point once, and
// the run stops when the restarted simplex converges to the same
// value.
type DS struct {
	BaseOptimizer
	delta  float64
	ftol   float64
	atol   float64
	repeat bool
	oldF   float64
	points [][]float64
	fs     []float64
	psum   []float64
	trial  []float64
}

// NewDS creates a downhill simplex optimizer with the initial
// simplex size of one step.
func NewDS() (ds *DS) {
	ds = &DS{
		BaseOptimizer: newBaseOptimizer("simplex"),
		delta:         1,
		ftol:          TINY,
		atol:          TINY * TINY,
	}
	return
}

// SetDelta sets the initial simplex size in steps.
func (ds *DS) SetDelta(delta float64) {
	ds.delta = delta
}

// SetTolerance sets the relative and absolute tolerances on the
// spread of objective values across the simplex.
func (ds *DS) SetTolerance(ftol, atol float64) {
	ds.ftol = ftol
	ds.atol = atol
}

func (ds *DS) createSimplex(x0 []float64) {
	n := len(x0)
	ds.points = make([][]float64, n+1)
	ds.fs = make([]float64, n+1)
	for i := range ds.points {
		ds.points[i] = make([]float64, n)
		copy(ds.points[i], x0)
		if i > 0 {
			ds.points[i][i-1] += ds.delta
		}
		ds.fs[i] = ds.evaluate(ds.points[i])
	}
	ds.psum = make([]float64, n)
	ds.trial = make([]float64, n)
}

// amotry extrapolates by factor fac through the face of the simplex
// across from the high point, tries it, and replaces the high point
// if the new point is better.
func (ds *DS) amotry(ihi int, fac float64) float64 {
	ds.calcPsum()
	ndim := len(ds.trial)
	fac1 := (1 - fac) / float64(ndim)
	fac2 := fac1 - fac
	for j := 0; j < ndim; j++ {
		ds.trial[j] = ds.psum[j]*fac1 - ds.points[ihi][j]*fac2
	}
	f := ds.evaluate(ds.trial)
	if f < ds.fs[ihi] {
		ds.points[ihi], ds.trial = ds.trial, ds.points[ihi]
		ds.fs[ihi] = f
	}
	return f
}

func (ds *DS) calcPsum() {
	for j := range ds.psum {
		ds.psum[j] = 0
		for _, point := range ds.points {
			ds.psum[j] += point[j]
		}
	}
}

// Run minimizes for at most iterations iterations.
func (ds *DS) Run(iterations int) {
	ds.reset()
	ds.repeat = false
	ds.PrintHeader()
	if len(ds.parameters) == 0 {
		ds.evaluateOnly(true)
		return
	}
	ds.createSimplex(ds.parameters.Scaled(nil))

	// Lowest (best), highest (worst) and next-highest points
	var ilo, ihi, inhi int
Iter:
	for ds.i = 1; ds.i <= iterations; ds.i++ {
		ilo = 0
		if ds.fs[0] > ds.fs[1] {
			ihi, inhi = 0, 1
		} else {
			ihi, inhi = 1, 0
		}
		for i, f := range ds.fs {
			if f <= ds.fs[ilo] {
				ilo = i
			}
			if f > ds.fs[ihi] {
				inhi = ihi
				ihi = i
			} else if f > ds.fs[inhi] && i != ihi {
				inhi = i
			}
		}
		flo, fhi := ds.fs[ilo], ds.fs[ihi]
		if math.IsInf(flo, +1) {
			ds.status = "no feasible point"
			break
		}
		ds.PrintLine(flo, ds.points[ilo])

		d := math.Abs(fhi - flo)
		rtol := 2 * d / (math.Abs(flo) + math.Abs(fhi) + TINY)
		if rtol < ds.ftol || d < ds.atol {
			if ds.repeat && math.Abs(ds.oldF-flo) < SMALL {
				ds.converged = true
				break Iter
			}
			ds.repeat = true
			ds.oldF = flo
			log.Debugf("converged at %d, restarting", ds.i)
			x0 := append([]float64(nil), ds.points[ilo]...)
			ds.createSimplex(x0)
			continue
		}

		f := ds.amotry(ihi, -1)
		switch {
		case f <= ds.fs[ilo]:
			ds.amotry(ihi, 2)
		case f >= ds.fs[inhi]:
			fsave := ds.fs[ihi]
			f = ds.amotry(ihi, 0.5)
			if f >= fsave {
				for i, point := range ds.points {
					if i != ilo {
						for j := range point {
							point[j] = 0.5 * (point[j] + ds.points[ilo][j])
						}
						ds.fs[i] = ds.evaluate(point)
					}
				}
			}
		}
		if ds.signalled() {
			break Iter
		}
	}
	if ds.i > iterations {
		ds.i = iterations
		log.Debugf("Iterations exceeded (%d)", iterations)
	}
	ds.finish()
}
