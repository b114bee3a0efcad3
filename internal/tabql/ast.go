package tabql

// AggFunc enumerates supported aggregate functions.
type AggFunc string

const (
	AggNone  AggFunc = ""
	AggCount AggFunc = "COUNT"
	AggMax   AggFunc = "MAX"
	AggMin   AggFunc = "MIN"
	AggAvg   AggFunc = "AVG"
	AggSum   AggFunc = "SUM"
)

// SelectItem is one projection: a column, *, or an aggregate call.
// COUNT(*) is represented as Agg=AggCount with Star=true.
type SelectItem struct {
	Star   bool
	Agg    AggFunc
	Column string
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Column string
	Desc   bool
}

// Statement is a parsed SELECT.
type Statement struct {
	Items   []SelectItem
	From    string
	Where   Expr
	OrderBy []OrderItem
	Limit   int // -1 when absent
}

// Expr is a WHERE clause node.
type Expr interface{ isExpr() }

// BinaryExpr joins two conditions with AND or OR.
type BinaryExpr struct {
	Op    string // "AND" | "OR"
	Left  Expr
	Right Expr
}

// NotExpr negates a condition.
type NotExpr struct {
	Inner Expr
}

// Comparison compares a column with a literal.
type Comparison struct {
	Column string
	Op     string // = != < <= > >=
	Value  any    // float64 or string
}

// LikeExpr is a LIKE/ILIKE pattern match.
type LikeExpr struct {
	Column   string
	Pattern  string
	FoldCase bool // ILIKE
	Negate   bool
}

// IsNullExpr is IS [NOT] NULL.
type IsNullExpr struct {
	Column string
	Negate bool // IS NOT NULL
}

func (*BinaryExpr) isExpr() {}
func (*NotExpr) isExpr()    {}
func (*Comparison) isExpr() {}
func (*LikeExpr) isExpr()   {}
func (*IsNullExpr) isExpr() {}
