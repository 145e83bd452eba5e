package labels

import "fmt"

// Unknown is returned for an index outside the table.
const Unknown = "Unknown"

// Produce is the ordered list of produce items the classifier was trained on.
// The order fixes the class indices and must not change without retraining.
var Produce = []string{
	"apple", "banana", "bellpepper", "carrot", "cucumber", "grape",
	"guava", "jujube", "mango", "orange", "pomegranate", "potato",
	"strawberry", "tomato",
}

// Table maps classifier output indices to class names.
type Table struct {
	names []string
}

// New builds a table where item i owns index 2i (fresh) and 2i+1 (rotten).
func New(items []string) *Table {
	names := make([]string, 0, 2*len(items))
	for _, item := range items {
		names = append(names,
			fmt.Sprintf("%s_fresh", item),
			fmt.Sprintf("%s_rotten", item),
		)
	}
	return &Table{names: names}
}

// Default is the table for the shipped classifier.
var Default = New(Produce)

// Len returns the number of classes.
func (t *Table) Len() int {
	return len(t.names)
}

// Name returns the class name for idx, or Unknown.
func (t *Table) Name(idx int) string {
	if idx < 0 || idx >= len(t.names) {
		return Unknown
	}
	return t.names[idx]
}

// Names returns a copy of all class names in index order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}
