package types

// TagCategory classifies a tag. The set is closed; the schema enforces it
// with a CHECK constraint.
type TagCategory string

const (
	CategoryTechStack   TagCategory = "tech_stack"
	CategoryProblemType TagCategory = "problem_type"
	CategoryErrorCode   TagCategory = "error_code"
)

// ValidCategory reports whether c is one of the known tag categories.
func ValidCategory(c TagCategory) bool {
	switch c {
	case CategoryTechStack, CategoryProblemType, CategoryErrorCode:
		return true
	}
	return false
}

// Tag is a named, categorized label. Name is a case-insensitive identity.
type Tag struct {
	ID       int64
	Name     string
	Category TagCategory
}

// TagCount is a tag with its live association count, computed by
// aggregation at query time.
type TagCount struct {
	Name     string
	Category TagCategory
	Count    int
}
