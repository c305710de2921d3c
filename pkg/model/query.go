package model

// SortField selects the entry attribute query results are ordered by.
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByLevel     SortField = "level"
	SortBySource    SortField = "source"
	SortByCategory  SortField = "category"
)

// SortOrder is the direction applied to the sort field.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// QueryOptions narrows, orders, and pages a scan over stored entries.
// Zero values mean "no constraint": empty sets match everything, a zero
// Limit returns all remaining entries.
type QueryOptions struct {
	// StartTime and EndTime bound the inclusive timestamp range,
	// in the canonical timestamp format.
	StartTime string
	EndTime   string

	// Levels, Categories and Sources keep entries matching any of
	// the listed values.
	Levels     []Level
	Categories []Category
	Sources    []Source

	// Keyword matches case-insensitively against message and
	// filename.
	Keyword string

	// Regex matches against the message and filename. An invalid
	// pattern is ignored rather than failing the query.
	Regex string

	// Where is a query-language expression evaluated per entry.
	Where string

	// SortBy and Order control result ordering. Defaults are
	// timestamp descending.
	SortBy SortField
	Order  SortOrder

	// Offset and Limit page the sorted results.
	Offset int
	Limit  int
}
