package scene

// apply runs the requested post-processing steps in place.
func (s *Scene) apply(flags PostProcess) {
	for _, m := range s.Meshes {
		if flags&Triangulate != 0 {
			m.Faces = triangulate(m.Faces)
		}
		if flags&FlipUVs != 0 {
			for _, channel := range m.TexCoords {
				for i := range channel {
					channel[i][1] = 1 - channel[i][1]
				}
			}
		}
	}
}

// triangulate fans every polygon with more than three corners around its
// first corner.
func triangulate(faces []Face) []Face {
	n := 0
	for _, f := range faces {
		if len(f.Indices) > 3 {
			n += len(f.Indices) - 2
		} else {
			n++
		}
	}
	if n == len(faces) {
		return faces
	}

	out := make([]Face, 0, n)
	for _, f := range faces {
		if len(f.Indices) <= 3 {
			out = append(out, f)
			continue
		}
		for i := 1; i+1 < len(f.Indices); i++ {
			out = append(out, Face{Indices: []uint32{f.Indices[0], f.Indices[i], f.Indices[i+1]}})
		}
	}
	return out
}
