package tabql

import (
	"regexp"
	"sort"
	"strings"
)

func eval(src Source, stmt *Statement) (*Result, error) {
	if !strings.EqualFold(stmt.From, src.Name()) {
		return nil, &CatalogError{Table: stmt.From}
	}

	if err := bindColumns(src, stmt); err != nil {
		return nil, err
	}

	rows, err := filterRows(src, stmt.Where)
	if err != nil {
		return nil, err
	}

	if hasAggregates(stmt) {
		return evalAggregates(src, stmt, rows)
	}

	orderRows(src, stmt.OrderBy, rows)
	if stmt.Limit >= 0 && len(rows) > stmt.Limit {
		rows = rows[:stmt.Limit]
	}

	cols := projectionColumns(src, stmt)
	out := make([][]any, 0, len(rows))
	for _, ri := range rows {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i], _ = src.Value(ri, c)
		}
		out = append(out, row)
	}
	return &Result{Columns: cols, Rows: out}, nil
}

// bindColumns verifies every referenced column exists before any evaluation.
func bindColumns(src Source, stmt *Statement) error {
	check := func(col string) error {
		if col == "" || src.HasColumn(col) {
			return nil
		}
		return &BindError{Column: col, Candidates: suggest(col, src.ColumnNames())}
	}

	for _, item := range stmt.Items {
		if item.Star {
			continue
		}
		if err := check(item.Column); err != nil {
			return err
		}
	}
	if err := walkExprColumns(stmt.Where, check); err != nil {
		return err
	}
	for _, o := range stmt.OrderBy {
		if err := check(o.Column); err != nil {
			return err
		}
	}
	return nil
}

func walkExprColumns(e Expr, fn func(string) error) error {
	switch v := e.(type) {
	case nil:
		return nil
	case *BinaryExpr:
		if err := walkExprColumns(v.Left, fn); err != nil {
			return err
		}
		return walkExprColumns(v.Right, fn)
	case *NotExpr:
		return walkExprColumns(v.Inner, fn)
	case *Comparison:
		return fn(v.Column)
	case *LikeExpr:
		return fn(v.Column)
	case *IsNullExpr:
		return fn(v.Column)
	default:
		return nil
	}
}

func filterRows(src Source, where Expr) ([]int, error) {
	rows := make([]int, 0, src.NumRows())
	for i := 0; i < src.NumRows(); i++ {
		if where == nil {
			rows = append(rows, i)
			continue
		}
		ok, err := evalExpr(src, i, where)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, i)
		}
	}
	return rows, nil
}

func evalExpr(src Source, row int, e Expr) (bool, error) {
	switch v := e.(type) {
	case *BinaryExpr:
		left, err := evalExpr(src, row, v.Left)
		if err != nil {
			return false, err
		}
		if v.Op == "AND" && !left {
			return false, nil
		}
		if v.Op == "OR" && left {
			return true, nil
		}
		return evalExpr(src, row, v.Right)

	case *NotExpr:
		inner, err := evalExpr(src, row, v.Inner)
		if err != nil {
			return false, err
		}
		return !inner, nil

	case *Comparison:
		cell, _ := src.Value(row, v.Column)
		return compare(cell, v.Op, v.Value), nil

	case *LikeExpr:
		cell, _ := src.Value(row, v.Column)
		s, ok := cellString(cell)
		if !ok {
			return false, nil
		}
		matched := likeMatch(s, v.Pattern, v.FoldCase)
		if v.Negate {
			return !matched, nil
		}
		return matched, nil

	case *IsNullExpr:
		cell, _ := src.Value(row, v.Column)
		isNull := cell == nil
		if v.Negate {
			return !isNull, nil
		}
		return isNull, nil

	default:
		return false, &ParseError{Msg: "unsupported expression"}
	}
}

// compare applies SQL three-valued logic collapsed to boolean: null never
// matches. Numeric comparison when both sides are numbers, string otherwise.
func compare(cell any, op string, lit any) bool {
	if cell == nil {
		return false
	}

	if litNum, ok := lit.(float64); ok {
		if cellNum, ok := cell.(float64); ok {
			return compareFloat(cellNum, op, litNum)
		}
		return false
	}

	litStr := lit.(string)
	s, ok := cellString(cell)
	if !ok {
		return false
	}
	return compareString(s, op, litStr)
}

func compareFloat(a float64, op string, b float64) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func compareString(a, op, b string) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func cellString(cell any) (string, bool) {
	s, ok := cell.(string)
	return s, ok
}

// likeMatch translates a SQL LIKE pattern (% and _) to a regexp.
func likeMatch(s, pattern string, fold bool) bool {
	var sb strings.Builder
	if fold {
		sb.WriteString("(?is)")
	} else {
		sb.WriteString("(?s)")
	}
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// --- projection ---

func projectionColumns(src Source, stmt *Statement) []string {
	var cols []string
	for _, item := range stmt.Items {
		if item.Star {
			cols = append(cols, src.ColumnNames()...)
			continue
		}
		cols = append(cols, item.Column)
	}
	return cols
}

func hasAggregates(stmt *Statement) bool {
	for _, item := range stmt.Items {
		if item.Agg != AggNone {
			return true
		}
	}
	return false
}

func evalAggregates(src Source, stmt *Statement, rows []int) (*Result, error) {
	cols := make([]string, len(stmt.Items))
	row := make([]any, len(stmt.Items))

	for i, item := range stmt.Items {
		if item.Agg == AggNone {
			// Plain columns cannot mix with aggregates without GROUP BY.
			return nil, &ParseError{Msg: "column " + item.Column + " must appear in an aggregate function"}
		}
		cols[i] = aggLabel(item)
		row[i] = computeAggregate(src, item, rows)
	}

	return &Result{Columns: cols, Rows: [][]any{row}}, nil
}

func aggLabel(item SelectItem) string {
	arg := item.Column
	if item.Star {
		arg = "*"
	}
	return strings.ToLower(string(item.Agg)) + "(" + arg + ")"
}

func computeAggregate(src Source, item SelectItem, rows []int) any {
	if item.Agg == AggCount {
		if item.Star {
			return float64(len(rows))
		}
		n := 0
		for _, ri := range rows {
			if v, _ := src.Value(ri, item.Column); v != nil {
				n++
			}
		}
		return float64(n)
	}

	var (
		sum   float64
		count int
		best  float64
	)
	for _, ri := range rows {
		v, _ := src.Value(ri, item.Column)
		f, ok := v.(float64)
		if !ok {
			continue
		}
		if count == 0 {
			best = f
		}
		switch item.Agg {
		case AggMax:
			if f > best {
				best = f
			}
		case AggMin:
			if f < best {
				best = f
			}
		}
		sum += f
		count++
	}

	if count == 0 {
		return nil
	}
	switch item.Agg {
	case AggMax, AggMin:
		return best
	case AggSum:
		return sum
	case AggAvg:
		return sum / float64(count)
	}
	return nil
}

// --- ordering ---

func orderRows(src Source, keys []OrderItem, rows []int) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, _ := src.Value(rows[i], k.Column)
			b, _ := src.Value(rows[j], k.Column)
			c := compareCells(a, b)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareCells orders nulls last, numbers before strings.
func compareCells(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}

	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}

	as := a.(string)
	bs := b.(string)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
