package pattern

// Item statuses understood by renderers.
const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusWarn = "warn"
	StatusSkip = "skip"
)

// Table is a labeled list of items with a status each: files ingested,
// key collisions, changes checked.
type Table struct {
	Label   string
	Results []TableItem
}

// TableItem is a single row.
type TableItem struct {
	Name    string
	Status  string
	Details string // extra context, may span lines
}

func (t *Table) Type() PatternType { return PatternTypeTable }
