package splat_buffers

import "math"

// PackColors packs RGBA8 colors into one little-endian uint32 per splat (R in the low byte),
// matching the unpack4x8unorm layout expected by the splat shader.
//
// Parameters:
//   - colors: RGBA bytes, 4 per splat
//
// Returns:
//   - []uint32: one packed color per splat
func PackColors(colors []uint8) []uint32 {
	out := make([]uint32, len(colors)/4)
	for i := range out {
		c := colors[i*4 : i*4+4]
		out[i] = uint32(c[0]) | uint32(c[1])<<8 | uint32(c[2])<<16 | uint32(c[3])<<24
	}
	return out
}

// ComputeCovariances precomputes the 3D covariance of every splat from its scale and
// rotation: Σ = (R·S)(R·S)ᵀ. Only the upper triangle is stored, as
// (xx, xy, xz, yy, yz, zz), 6 floats per splat.
//
// Parameters:
//   - scales: per-axis scale, 3 floats per splat
//   - rotations: quaternion (w, x, y, z), 4 floats per splat; normalized before use
//
// Returns:
//   - []float32: covariance upper triangles, 6 floats per splat
func ComputeCovariances(scales, rotations []float32) []float32 {
	n := min(len(scales)/3, len(rotations)/4)
	out := make([]float32, n*6)
	for i := 0; i < n; i++ {
		w, x, y, z := rotations[i*4], rotations[i*4+1], rotations[i*4+2], rotations[i*4+3]
		l := float32(math.Sqrt(float64(w*w + x*x + y*y + z*z)))
		if l == 0 {
			w, l = 1, 1
		}
		w, x, y, z = w/l, x/l, y/l, z/l

		r := [3][3]float32{
			{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
			{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
			{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
		}
		s := [3]float32{scales[i*3], scales[i*3+1], scales[i*3+2]}

		var m [3][3]float32
		for row := range 3 {
			for col := range 3 {
				m[row][col] = r[row][col] * s[col]
			}
		}

		cov := func(a, b int) float32 {
			return m[a][0]*m[b][0] + m[a][1]*m[b][1] + m[a][2]*m[b][2]
		}
		o := out[i*6 : i*6+6]
		o[0], o[1], o[2] = cov(0, 0), cov(0, 1), cov(0, 2)
		o[3], o[4], o[5] = cov(1, 1), cov(1, 2), cov(2, 2)
	}
	return out
}
