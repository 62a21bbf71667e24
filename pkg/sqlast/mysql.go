package sqlast

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	_ "github.com/pingcap/tidb/parser/test_driver"
)

func init() {
	register(BackendMySQL, func() backend { return &mysqlBackend{p: parser.New()} })
}

// mysqlBackend wraps the TiDB MySQL parser. The underlying parser keeps
// per-call state so access is serialized.
type mysqlBackend struct {
	mu sync.Mutex
	p  *parser.Parser
}

var mysqlLocationRe = regexp.MustCompile(`line (\d+) column (\d+)`)

func (b *mysqlBackend) parse(sql string) (*Statement, *ParseError) {
	b.mu.Lock()
	stmts, _, err := b.p.Parse(sql, "", "")
	b.mu.Unlock()
	if err != nil {
		offset := -1
		if m := mysqlLocationRe.FindStringSubmatch(err.Error()); m != nil {
			line, _ := strconv.Atoi(m[1])
			col, _ := strconv.Atoi(m[2])
			offset = offsetOf(sql, line, col+1)
		}
		return nil, newParseError(sql, firstLine(err.Error()), offset)
	}
	if len(stmts) == 0 {
		return nil, nil
	}
	stmt := mysqlStatement(stmts[0])
	return stmt, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func mysqlStatement(node ast.StmtNode) *Statement {
	switch s := node.(type) {
	case *ast.SelectStmt:
		return &Statement{Kind: StatementSelect, Select: mysqlSelect(s)}
	case *ast.SetOprStmt:
		return &Statement{Kind: StatementSelect, Select: mysqlSetOpr(s)}
	case *ast.InsertStmt:
		return &Statement{Kind: StatementInsert}
	case *ast.UpdateStmt:
		return &Statement{Kind: StatementUpdate}
	case *ast.DeleteStmt:
		return &Statement{Kind: StatementDelete}
	}
	return &Statement{Kind: StatementOther}
}

func mysqlSetOpr(s *ast.SetOprStmt) *Select {
	if s.SelectList == nil || len(s.SelectList.Selects) == 0 {
		return &Select{}
	}
	switch first := s.SelectList.Selects[0].(type) {
	case *ast.SelectStmt:
		return mysqlSelect(first)
	case *ast.SetOprSelectList:
		return mysqlSetOpr(&ast.SetOprStmt{SelectList: first})
	}
	return &Select{}
}

func mysqlSelect(s *ast.SelectStmt) *Select {
	out := &Select{HasGroupBy: s.GroupBy != nil && len(s.GroupBy.Items) > 0}
	if s.Fields != nil {
		for _, f := range s.Fields.Fields {
			out.Columns = append(out.Columns, mysqlField(f))
		}
	}
	if s.From != nil {
		out.From = mysqlJoin(s.From.TableRefs, JoinNone, false)
	}
	return out
}

func mysqlField(f *ast.SelectField) Column {
	if f.WildCard != nil {
		return Column{Kind: ColumnStar, Qualifier: f.WildCard.Table.O}
	}
	col := mysqlExpr(f.Expr)
	col.Alias = f.AsName.O
	return col
}

func mysqlExpr(expr ast.ExprNode) Column {
	switch e := expr.(type) {
	case *ast.ColumnNameExpr:
		return Column{Kind: ColumnRef, Name: e.Name.Name.O, Qualifier: e.Name.Table.O}
	case *ast.AggregateFuncExpr:
		name := strings.ToLower(e.F)
		col := Column{Kind: ColumnAggregate, Name: name}
		if name == "count" && len(e.Args) == 1 {
			// COUNT(*) is parsed as COUNT(1).
			_, col.CountStar = e.Args[0].(ast.ValueExpr)
		}
		return col
	case *ast.FuncCallExpr:
		return Column{Kind: ColumnFunction, Name: e.FnName.L}
	case *ast.ParenthesesExpr:
		return mysqlExpr(e.Expr)
	case ast.ValueExpr:
		return Column{Kind: ColumnLiteral}
	}
	return Column{Kind: ColumnExpr}
}

// mysqlJoin flattens a join tree. The parser represents comma joins and
// JOIN without ON the same way, so a condition-less cross join is treated
// as a comma join.
func mysqlJoin(j *ast.Join, kind JoinKind, cond bool) []FromItem {
	if j == nil {
		return nil
	}
	items := mysqlResultSet(j.Left, kind, cond)
	if j.Right == nil {
		return items
	}
	hasCond := j.On != nil || len(j.Using) > 0
	rk := JoinInner
	switch {
	case j.NaturalJoin:
		rk = JoinNatural
	case j.Tp == ast.LeftJoin:
		rk = JoinLeft
	case j.Tp == ast.RightJoin:
		rk = JoinRight
	case j.Tp == ast.CrossJoin && !hasCond:
		rk = JoinNone
	}
	return append(items, mysqlResultSet(j.Right, rk, hasCond)...)
}

func mysqlResultSet(node ast.ResultSetNode, kind JoinKind, cond bool) []FromItem {
	switch n := node.(type) {
	case *ast.Join:
		return mysqlJoin(n, kind, cond)
	case *ast.TableSource:
		item := FromItem{Alias: n.AsName.O, Join: kind, HasCondition: cond}
		switch src := n.Source.(type) {
		case *ast.TableName:
			item.Table = src.Name.O
		case *ast.SelectStmt:
			item.Subquery = mysqlSelect(src)
		case *ast.SetOprStmt:
			item.Subquery = mysqlSetOpr(src)
		case *ast.Join:
			return mysqlJoin(src, kind, cond)
		}
		return []FromItem{item}
	}
	return nil
}
