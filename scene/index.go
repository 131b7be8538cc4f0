package scene

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// SpatialIndex answers fixed-radius neighbour queries over a point set.
// Returned values are indices into the cloud the index was built from.
type SpatialIndex interface {
	RadiusQuery(p Point, radius float64) []int
	Len() int
}

// IndexBuilder constructs a SpatialIndex over a cloud
type IndexBuilder func(pc *PointCloud) SpatialIndex

// KDIndex is a k-d tree over a cloud
type KDIndex struct {
	tree *kdtree.Tree
	n    int
}

// BuildIndex builds a k-d tree over the cloud. The cloud is not modified.
func BuildIndex(pc *PointCloud) SpatialIndex {
	return BuildKDIndex(pc)
}

// BuildKDIndex builds a k-d tree over the cloud and returns the concrete type
func BuildKDIndex(pc *PointCloud) *KDIndex {
	pts := make(kdPoints, pc.Len())
	for i := range pts {
		pts[i] = kdPoint{Vec: pc.Vec3At(i), index: i}
	}
	idx := &KDIndex{n: len(pts)}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, false)
	}
	return idx
}

// Len returns the number of indexed points
func (idx *KDIndex) Len() int {
	return idx.n
}

// RadiusQuery returns the sorted indices of all points within radius of p
func (idx *KDIndex) RadiusQuery(p Point, radius float64) []int {
	if idx.tree == nil || radius < 0 {
		return nil
	}
	// kdPoint distances are squared
	keep := kdtree.NewDistKeeper(radius * radius)
	idx.tree.NearestSet(keep, kdPoint{Vec: p.Vec(), index: -1})

	var matches []int
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		matches = append(matches, c.Comparable.(kdPoint).index)
	}
	sort.Ints(matches)
	return matches
}

// BruteIndex is a linear scan over a cloud
type BruteIndex struct {
	points []Point
}

// BuildBruteIndex wraps the cloud's points without copying them
func BuildBruteIndex(pc *PointCloud) SpatialIndex {
	if pc == nil {
		return &BruteIndex{}
	}
	return &BruteIndex{points: pc.Points}
}

// Len returns the number of indexed points
func (idx *BruteIndex) Len() int {
	return len(idx.points)
}

// RadiusQuery returns the indices of all points within radius of p
func (idx *BruteIndex) RadiusQuery(p Point, radius float64) []int {
	q := p.Vec()
	r2 := radius * radius
	var matches []int
	for i, c := range idx.points {
		if r3.Norm2(r3.Sub(c.Vec(), q)) <= r2 {
			matches = append(matches, i)
		}
	}
	return matches
}

// kdPoint carries the source index through the tree's partitioning
type kdPoint struct {
	r3.Vec
	index int
}

func (p kdPoint) axis(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return p.X
	case 1:
		return p.Y
	case 2:
		return p.Z
	}
	panic("scene: illegal k-d dimension")
}

// Compare satisfies kdtree.Comparable
func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.axis(d) - c.(kdPoint).axis(d)
}

// Dims satisfies kdtree.Comparable
func (p kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.Vec, c.(kdPoint).Vec))
}

type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int                { return kdPlane{Dim: d, kdPoints: p}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// kdPlane sorts points along one dimension for pivot selection
type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return p.kdPoints[i].axis(p.Dim) < p.kdPoints[j].axis(p.Dim)
}
func (p kdPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfRandoms(p, 100)) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}
func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}
