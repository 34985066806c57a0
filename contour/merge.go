package contour

import "math"

// vertexKey quantizes an index-space point onto a lattice of the merge
// tolerance, so endpoints produced by adjacent cells hash identically.
type vertexKey struct {
	x, y int64
}

func quantize(p Point, tol float64) vertexKey {
	return vertexKey{
		x: int64(math.Round(p.X / tol)),
		y: int64(math.Round(p.Y / tol)),
	}
}

// segmentEnd identifies one endpoint of a raw segment.
type segmentEnd struct {
	seg   int
	isEnd bool // false = p, true = q
}

// mergeSegments stitches per-cell crossings into polylines. Endpoints are
// matched within tol; a chain whose head meets its tail becomes a closed
// loop. Matching is done per-endpoint in insertion order, which keeps the
// output deterministic for a given grid and level.
func mergeSegments(raw []rawSegment, tol float64) []Segment {
	if len(raw) == 0 {
		return nil
	}

	ends := make(map[vertexKey][]segmentEnd, 2*len(raw))
	for i, s := range raw {
		ends[quantize(s.p, tol)] = append(ends[quantize(s.p, tol)], segmentEnd{seg: i})
		ends[quantize(s.q, tol)] = append(ends[quantize(s.q, tol)], segmentEnd{seg: i, isEnd: true})
	}

	used := make([]bool, len(raw))
	segments := make([]Segment, 0, 8)

	takeNext := func(at Point) (Point, bool) {
		for _, e := range ends[quantize(at, tol)] {
			if used[e.seg] {
				continue
			}

			used[e.seg] = true
			if e.isEnd {
				return raw[e.seg].p, true
			}
			return raw[e.seg].q, true
		}
		return Point{}, false
	}

	for i := range raw {
		if used[i] {
			continue
		}
		used[i] = true

		points := []Point{raw[i].p, raw[i].q}
		headKey := quantize(points[0], tol)
		closed := false

		// Grow at the tail until the chain ends or meets its own head.
		for {
			next, ok := takeNext(points[len(points)-1])
			if !ok {
				break
			}
			if quantize(next, tol) == headKey {
				closed = true
				break
			}
			points = append(points, next)
		}

		// Grow at the head for open chains.
		if !closed {
			for {
				prev, ok := takeNext(points[0])
				if !ok {
					break
				}
				points = append([]Point{prev}, points...)
			}

			// A chain can still close via the head extension.
			if len(points) > 2 && quantize(points[0], tol) == quantize(points[len(points)-1], tol) {
				points = points[:len(points)-1]
				closed = true
			}
		}

		segments = append(segments, Segment{Points: points, Closed: closed})
	}

	return segments
}
