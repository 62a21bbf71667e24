// Package sqlast adapts third-party SQL parsers into a small tagged AST.
//
// Lint rules only need a handful of facts about a statement: its kind, the
// shape of its select list, the FROM/JOIN chain and whether it groups. Each
// backend converts its native tree into these types so rules stay independent
// of the parser that produced them.
package sqlast

// StatementKind tags the top-level statement.
type StatementKind int

// Statement kinds.
const (
	StatementOther StatementKind = iota
	StatementSelect
	StatementInsert
	StatementUpdate
	StatementDelete
)

// String returns a lowercase name for the kind.
func (k StatementKind) String() string {
	switch k {
	case StatementSelect:
		return "select"
	case StatementInsert:
		return "insert"
	case StatementUpdate:
		return "update"
	case StatementDelete:
		return "delete"
	default:
		return "other"
	}
}

// Statement is the root of a parsed query.
type Statement struct {
	Kind StatementKind
	// Select is set when Kind is StatementSelect. For set operations it
	// holds the leftmost branch.
	Select *Select
}

// Select is a single SELECT core.
type Select struct {
	Columns    []Column
	From       []FromItem // flattened left to right
	HasGroupBy bool
}

// ColumnKind tags a select-list entry.
type ColumnKind int

// Column kinds.
const (
	ColumnExpr ColumnKind = iota
	ColumnStar
	ColumnRef
	ColumnAggregate
	ColumnFunction
	ColumnLiteral
)

// Column is one entry of a select list.
type Column struct {
	Kind ColumnKind
	// Name is the column name for ColumnRef and the lowercase function
	// name for ColumnAggregate and ColumnFunction.
	Name string
	// Qualifier is the table prefix of t.col or t.*.
	Qualifier string
	Alias     string
	// CountStar marks COUNT(*).
	CountStar bool
}

// JoinKind tags how a FROM item was attached to the items before it.
type JoinKind int

// Join kinds. JoinNone marks the first item and comma-separated items.
const (
	JoinNone JoinKind = iota
	JoinInner
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinNatural
)

// String returns the SQL spelling of the join.
func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinRight:
		return "RIGHT JOIN"
	case JoinFull:
		return "FULL JOIN"
	case JoinCross:
		return "CROSS JOIN"
	case JoinNatural:
		return "NATURAL JOIN"
	default:
		return ""
	}
}

// RequiresCondition reports whether the join needs ON or USING.
func (k JoinKind) RequiresCondition() bool {
	switch k {
	case JoinInner, JoinLeft, JoinRight, JoinFull:
		return true
	}
	return false
}

// FromItem is a table or derived table in the FROM chain.
type FromItem struct {
	Table    string
	Alias    string
	Subquery *Select
	Join     JoinKind
	// HasCondition is true when the join carries ON or USING.
	HasCondition bool
}

// Name returns the alias if present, otherwise the table name.
func (f FromItem) Name() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Table
}

// Walk visits every select reachable from s, including derived tables,
// depth first. Returning false from fn stops the walk.
func Walk(s *Select, fn func(*Select) bool) bool {
	if s == nil {
		return true
	}
	if !fn(s) {
		return false
	}
	for _, item := range s.From {
		if !Walk(item.Subquery, fn) {
			return false
		}
	}
	return true
}

var aggregateNames = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"group_concat": true, "string_agg": true, "array_agg": true,
	"json_agg": true, "jsonb_agg": true, "json_object_agg": true,
	"bool_and": true, "bool_or": true, "every": true, "bit_and": true,
	"bit_or": true, "stddev": true, "stddev_pop": true, "stddev_samp": true,
	"variance": true, "var_pop": true, "var_samp": true,
}

// IsAggregate reports whether name is a known aggregate function.
func IsAggregate(name string) bool {
	return aggregateNames[name]
}
