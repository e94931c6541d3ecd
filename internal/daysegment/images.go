package daysegment

// ImageTable holds a theme's image indices for every segment, indexed by
// Segment.Index(). A nil or empty entry means the theme has no images of its
// own for that segment.
type ImageTable [Count][]int

// Empty reports whether no segment has any image.
func (t *ImageTable) Empty() bool {
	for _, imgs := range t {
		if len(imgs) > 0 {
			return false
		}
	}
	return true
}

// ImagesFor returns the images to show during segment s.
//
// If the theme has images for s they are returned as-is. Otherwise the table
// is walked backwards through the cyclical order, wrapping past Nadir, and the
// last image of the nearest preceding non-empty segment is returned as a
// single-element list. The result is nil only when the whole table is empty.
func ImagesFor(table *ImageTable, s Segment) []int {
	idx := s.Index()
	if len(table[idx]) > 0 {
		return table[idx]
	}

	for step := 1; step < Count; step++ {
		imgs := table[(idx-step+Count)%Count]
		if len(imgs) > 0 {
			return []int{imgs[len(imgs)-1]}
		}
	}

	return nil
}
