package cart

// Entry is a (product, quantity) pair scoped to a user. Entries never carry
// price or stock; those are re-derived from the catalog at validation time.
type Entry struct {
	ProductID string
	Quantity  int
}
