package flow

import "math"

// minDeterminant is the floor on the spatial gradient matrix determinant
// below which the local system is considered unsolvable.
const minDeterminant = 1e-4

// trackPoint runs the iterative Lucas-Kanade solver for one point from the
// prev pyramid to the next pyramid, coarse to fine. Returns the new
// position and a status; on Lost or OutOfBounds the returned position is
// the original one.
func trackPoint(prev, next *Pyramid, p Vec2, prm Params) (Vec2, Status) {
	r := prm.WindowSize / 2
	top := len(prev.Levels) - 1

	// Displacement guess, carried and doubled across levels.
	var gy, gx float64

	for level := top; level >= 0; level-- {
		scale := float64(int(1) << uint(level))
		py, px := p.Y/scale, p.X/scale

		im := prev.Levels[level]
		jm := next.Levels[level]

		// Spatial gradient matrix over the window, fixed per level.
		var sxx, sxy, syy float64
		gys := make([]float64, 0, prm.WindowSize*prm.WindowSize)
		gxs := make([]float64, 0, prm.WindowSize*prm.WindowSize)
		for wy := -r; wy <= r; wy++ {
			for wx := -r; wx <= r; wx++ {
				dy, dx := im.gradAt(py+float64(wy), px+float64(wx))
				gys = append(gys, dy)
				gxs = append(gxs, dx)
				syy += dy * dy
				sxx += dx * dx
				sxy += dx * dy
			}
		}
		det := sxx*syy - sxy*sxy
		if det < minDeterminant {
			return p, Lost
		}

		// Iterative refinement of the residual displacement at this level.
		var vy, vx float64
		for it := 0; it < prm.MaxIterations; it++ {
			var by, bx float64
			k := 0
			for wy := -r; wy <= r; wy++ {
				for wx := -r; wx <= r; wx++ {
					iv := im.Sample(py+float64(wy), px+float64(wx))
					jv := jm.Sample(py+gy+vy+float64(wy), px+gx+vx+float64(wx))
					diff := iv - jv
					by += diff * gys[k]
					bx += diff * gxs[k]
					k++
				}
			}
			// Solve the 2x2 system G * d = b.
			ddy := (sxx*by - sxy*bx) / det
			ddx := (syy*bx - sxy*by) / det
			vy += ddy
			vx += ddx
			if math.Hypot(ddy, ddx) < prm.Epsilon {
				break
			}
		}

		gy += vy
		gx += vx
		if level > 0 {
			gy *= 2
			gx *= 2
		}
	}

	out := Vec2{Y: p.Y + gy, X: p.X + gx}
	full := prev.Levels[0]
	if out.Y < 0 || out.Y >= float64(full.H) || out.X < 0 || out.X >= float64(full.W) {
		return p, OutOfBounds
	}
	if math.IsNaN(out.Y) || math.IsNaN(out.X) {
		return p, Lost
	}
	return out, Tracked
}
