package llm

// Categories is the closed taxonomy the categorizer works with. "Other" is the
// catch-all and must stay last.
var Categories = []string{
	"Food & Dining",
	"Groceries",
	"Shopping",
	"Transportation",
	"Bills & Utilities",
	"Entertainment",
	"Health & Fitness",
	"Income",
	"Other",
}

// ValidCategory reports whether name is part of the taxonomy.
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
