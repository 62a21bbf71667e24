package sqlast

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"
)

func init() {
	register(BackendVitess, func() backend { return vitessBackend{} })
}

// vitessBackend wraps the MySQL-dialect parser extracted from Vitess.
type vitessBackend struct{}

var (
	vitessPositionRe = regexp.MustCompile(`at position (\d+)`)
	dualRe           = regexp.MustCompile(`(?i)\bdual\b`)
)

func (vitessBackend) parse(sql string) (*Statement, *ParseError) {
	parsed, err := sqlparser.Parse(sql)
	if err != nil {
		offset := -1
		if m := vitessPositionRe.FindStringSubmatch(err.Error()); m != nil {
			if pos, convErr := strconv.Atoi(m[1]); convErr == nil {
				// The tokenizer reports the position after the offending token.
				offset = max(pos-1, 0)
			}
		}
		return nil, newParseError(sql, err.Error(), offset)
	}
	c := vitessConverter{explicitDual: dualRe.MatchString(sql)}
	stmt := c.statement(parsed)
	markCrossJoins(sql, stmt)
	return stmt, nil
}

type vitessConverter struct {
	explicitDual bool
}

func (c vitessConverter) statement(stmt sqlparser.Statement) *Statement {
	switch s := stmt.(type) {
	case sqlparser.SelectStatement:
		return &Statement{Kind: StatementSelect, Select: c.selectStatement(s)}
	case *sqlparser.Insert:
		return &Statement{Kind: StatementInsert}
	case *sqlparser.Update:
		return &Statement{Kind: StatementUpdate}
	case *sqlparser.Delete:
		return &Statement{Kind: StatementDelete}
	default:
		return &Statement{Kind: StatementOther}
	}
}

func (c vitessConverter) selectStatement(stmt sqlparser.SelectStatement) *Select {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return c.selectCore(s)
	case *sqlparser.Union:
		return c.selectStatement(s.Left)
	case *sqlparser.ParenSelect:
		return c.selectStatement(s.Select)
	}
	return &Select{}
}

func (c vitessConverter) selectCore(s *sqlparser.Select) *Select {
	out := &Select{HasGroupBy: len(s.GroupBy) > 0}
	for _, expr := range s.SelectExprs {
		out.Columns = append(out.Columns, c.column(expr))
	}
	for _, te := range s.From {
		out.From = append(out.From, c.tableExpr(te, JoinNone, false)...)
	}
	// SELECT without FROM is parsed as FROM dual.
	if !c.explicitDual && len(out.From) == 1 && strings.EqualFold(out.From[0].Table, "dual") {
		out.From = nil
	}
	return out
}

func (c vitessConverter) column(expr sqlparser.SelectExpr) Column {
	switch e := expr.(type) {
	case *sqlparser.StarExpr:
		return Column{Kind: ColumnStar, Qualifier: e.TableName.Name.String()}
	case *sqlparser.AliasedExpr:
		col := c.expr(e.Expr)
		col.Alias = e.As.String()
		return col
	}
	return Column{Kind: ColumnExpr}
}

func (c vitessConverter) expr(expr sqlparser.Expr) Column {
	switch e := expr.(type) {
	case *sqlparser.ColName:
		return Column{Kind: ColumnRef, Name: e.Name.String(), Qualifier: e.Qualifier.Name.String()}
	case *sqlparser.FuncExpr:
		name := e.Name.Lowered()
		if e.IsAggregate() || IsAggregate(name) {
			col := Column{Kind: ColumnAggregate, Name: name}
			if len(e.Exprs) == 1 {
				_, col.CountStar = e.Exprs[0].(*sqlparser.StarExpr)
				col.CountStar = col.CountStar && name == "count"
			}
			return col
		}
		return Column{Kind: ColumnFunction, Name: name}
	case *sqlparser.GroupConcatExpr:
		return Column{Kind: ColumnAggregate, Name: "group_concat"}
	case *sqlparser.SQLVal, *sqlparser.NullVal, sqlparser.BoolVal:
		return Column{Kind: ColumnLiteral}
	case *sqlparser.ParenExpr:
		return c.expr(e.Expr)
	}
	return Column{Kind: ColumnExpr}
}

func (c vitessConverter) tableExpr(te sqlparser.TableExpr, kind JoinKind, cond bool) []FromItem {
	switch t := te.(type) {
	case *sqlparser.AliasedTableExpr:
		item := FromItem{Alias: t.As.String(), Join: kind, HasCondition: cond}
		switch e := t.Expr.(type) {
		case sqlparser.TableName:
			item.Table = e.Name.String()
		case *sqlparser.Subquery:
			item.Subquery = c.selectStatement(e.Select)
		}
		return []FromItem{item}
	case *sqlparser.JoinTableExpr:
		items := c.tableExpr(t.LeftExpr, kind, cond)
		hasCond := t.Condition.On != nil || len(t.Condition.Using) > 0
		return append(items, c.tableExpr(t.RightExpr, vitessJoinKind(t.Join), hasCond)...)
	case *sqlparser.ParenTableExpr:
		var items []FromItem
		for i, inner := range t.Exprs {
			if i == 0 {
				items = append(items, c.tableExpr(inner, kind, cond)...)
				continue
			}
			items = append(items, c.tableExpr(inner, JoinNone, false)...)
		}
		return items
	}
	return nil
}

func vitessJoinKind(join string) JoinKind {
	switch join {
	case sqlparser.LeftJoinStr:
		return JoinLeft
	case sqlparser.RightJoinStr:
		return JoinRight
	case sqlparser.NaturalJoinStr, sqlparser.NaturalLeftJoinStr, sqlparser.NaturalRightJoinStr:
		return JoinNatural
	default:
		return JoinInner
	}
}
