package aggregates

// Contract names an aggregate and the tables its transaction may write. Reads outside
// those tables belong on the table repos.
type Contract struct {
	Name   string
	Writes []string
	Notes  string
}

// Aggregate is implemented by every transactional write boundary.
type Aggregate interface {
	Contract() Contract
}

// Owns reports whether table is written by the aggregate.
func (c Contract) Owns(table string) bool {
	for _, t := range c.Writes {
		if t == table {
			return true
		}
	}
	return false
}
