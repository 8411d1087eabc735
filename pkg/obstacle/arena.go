package obstacle

// Line returns n obstacles starting at (x, y) and stepping by (dx, dy).
func Line(x, y, dx, dy float64, n int) []Obstacle {
	obs := make([]Obstacle, 0, n)
	for i := 0; i < n; i++ {
		obs = append(obs, At(x+float64(i)*dx, y+float64(i)*dy))
	}
	return obs
}

// Border returns unit-spaced obstacles along the edges of the square
// [0, size] x [0, size]. The bottom and right edges stop one short of the
// corner; the top and left edges include both corners.
func Border(size int) []Obstacle {
	s := float64(size)
	var obs []Obstacle
	obs = append(obs, Line(0, 0, 1, 0, size)...)
	obs = append(obs, Line(s, 0, 0, 1, size)...)
	obs = append(obs, Line(0, s, 1, 0, size+1)...)
	obs = append(obs, Line(0, 0, 0, 1, size+1)...)
	return obs
}

// Cluster returns four obstacles on the corners of a square of side 2·offset
// centered on each of the given points, grouped by corner.
func Cluster(offset float64, centers ...Obstacle) []Obstacle {
	corners := [...][2]float64{
		{offset, offset},
		{-offset, -offset},
		{offset, -offset},
		{-offset, offset},
	}
	obs := make([]Obstacle, 0, 4*len(centers))
	for _, c := range corners {
		for _, p := range centers {
			o := p
			o.X += c[0]
			o.Y += c[1]
			obs = append(obs, o)
		}
	}
	return obs
}
