//go:build cgo

package sqlast

import (
	"errors"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"
	pgparser "github.com/pganalyze/pg_query_go/v5/parser"
)

func init() {
	register(BackendPostgres, func() backend { return postgresBackend{} })
}

// postgresBackend wraps libpg_query.
type postgresBackend struct{}

func (postgresBackend) parse(sql string) (*Statement, *ParseError) {
	tree, err := pg_query.Parse(positionalParams(sql))
	if err != nil {
		offset := -1
		var pgErr *pgparser.Error
		if errors.As(err, &pgErr) && pgErr.Cursorpos > 0 {
			offset = pgErr.Cursorpos - 1
		}
		return nil, newParseError(sql, err.Error(), offset)
	}
	if len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return nil, nil
	}
	node := tree.Stmts[0].Stmt
	switch {
	case node.GetSelectStmt() != nil:
		return &Statement{Kind: StatementSelect, Select: postgresSelect(node.GetSelectStmt())}, nil
	case node.GetInsertStmt() != nil:
		return &Statement{Kind: StatementInsert}, nil
	case node.GetUpdateStmt() != nil:
		return &Statement{Kind: StatementUpdate}, nil
	case node.GetDeleteStmt() != nil:
		return &Statement{Kind: StatementDelete}, nil
	}
	return &Statement{Kind: StatementOther}, nil
}

func postgresSelect(s *pg_query.SelectStmt) *Select {
	if s == nil {
		return &Select{}
	}
	if s.Op != pg_query.SetOperation_SETOP_NONE && s.Larg != nil {
		return postgresSelect(s.Larg)
	}
	out := &Select{HasGroupBy: len(s.GroupClause) > 0}
	for _, target := range s.TargetList {
		rt := target.GetResTarget()
		if rt == nil {
			continue
		}
		col := postgresExpr(rt.Val)
		col.Alias = rt.Name
		out.Columns = append(out.Columns, col)
	}
	for _, node := range s.FromClause {
		out.From = append(out.From, postgresFrom(node, JoinNone, false)...)
	}
	return out
}

func postgresExpr(node *pg_query.Node) Column {
	switch {
	case node == nil:
		return Column{Kind: ColumnExpr}
	case node.GetColumnRef() != nil:
		fields := node.GetColumnRef().Fields
		var parts []string
		star := false
		for _, f := range fields {
			if str := f.GetString_(); str != nil {
				parts = append(parts, str.Sval)
			}
			if f.GetAStar() != nil {
				star = true
			}
		}
		if star {
			col := Column{Kind: ColumnStar}
			if len(parts) > 0 {
				col.Qualifier = parts[len(parts)-1]
			}
			return col
		}
		col := Column{Kind: ColumnRef}
		if len(parts) > 0 {
			col.Name = parts[len(parts)-1]
		}
		if len(parts) > 1 {
			col.Qualifier = parts[len(parts)-2]
		}
		return col
	case node.GetFuncCall() != nil:
		fc := node.GetFuncCall()
		var name string
		if len(fc.Funcname) > 0 {
			if str := fc.Funcname[len(fc.Funcname)-1].GetString_(); str != nil {
				name = strings.ToLower(str.Sval)
			}
		}
		if IsAggregate(name) && fc.Over == nil {
			return Column{Kind: ColumnAggregate, Name: name, CountStar: fc.AggStar && name == "count"}
		}
		return Column{Kind: ColumnFunction, Name: name}
	case node.GetAConst() != nil:
		return Column{Kind: ColumnLiteral}
	case node.GetTypeCast() != nil:
		if node.GetTypeCast().Arg.GetAConst() != nil {
			return Column{Kind: ColumnLiteral}
		}
	}
	return Column{Kind: ColumnExpr}
}

func postgresFrom(node *pg_query.Node, kind JoinKind, cond bool) []FromItem {
	switch {
	case node == nil:
		return nil
	case node.GetRangeVar() != nil:
		rv := node.GetRangeVar()
		return []FromItem{{Table: rv.Relname, Alias: rv.GetAlias().GetAliasname(), Join: kind, HasCondition: cond}}
	case node.GetRangeSubselect() != nil:
		rs := node.GetRangeSubselect()
		return []FromItem{{
			Alias:        rs.GetAlias().GetAliasname(),
			Subquery:     postgresSelect(rs.Subquery.GetSelectStmt()),
			Join:         kind,
			HasCondition: cond,
		}}
	case node.GetJoinExpr() != nil:
		je := node.GetJoinExpr()
		items := postgresFrom(je.Larg, kind, cond)
		hasCond := je.Quals != nil || len(je.UsingClause) > 0
		rk := JoinInner
		switch {
		case je.IsNatural:
			rk = JoinNatural
		case je.Jointype == pg_query.JoinType_JOIN_LEFT:
			rk = JoinLeft
		case je.Jointype == pg_query.JoinType_JOIN_RIGHT:
			rk = JoinRight
		case je.Jointype == pg_query.JoinType_JOIN_FULL:
			rk = JoinFull
		case !hasCond:
			// CROSS JOIN is an inner join without qualifiers.
			rk = JoinCross
		}
		return append(items, postgresFrom(je.Rarg, rk, hasCond)...)
	}
	return nil
}

// positionalParams rewrites ? placeholders outside quotes to $1, $2, ...
func positionalParams(sql string) string {
	if !strings.Contains(sql, "?") {
		return sql
	}
	var b strings.Builder
	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
