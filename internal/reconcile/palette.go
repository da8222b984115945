package reconcile

import "hash/fnv"

// coursePalette mirrors the accent colors the mobile client renders class
// cards with.
var coursePalette = []string{
	"#4F46E5",
	"#0891B2",
	"#059669",
	"#D97706",
	"#DC2626",
	"#7C3AED",
	"#DB2777",
	"#2563EB",
}

// CourseColor assigns a display color to a class. The assignment hashes the
// class key into a fixed palette, so the same class keeps the same color
// across sessions and across devices, not just within one fetch.
func CourseColor(classKey string) string {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(classKey))

	return coursePalette[hasher.Sum32()%uint32(len(coursePalette))]
}
