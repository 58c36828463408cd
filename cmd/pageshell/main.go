// Command pageshell is a thin SQL front door over a pagedb catalog: a
// chzyer/readline REPL that recognizes a practical subset of SELECT,
// INSERT, and DELETE (parsed with xwb1989/sqlparser) and executes it as a
// pulled operator pipeline.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/xwb1989/sqlparser"

	"github.com/feoh-labs/pagedb/pagedb"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file naming tables to open")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: pageshell -config=<path to config.yaml>")
		os.Exit(1)
	}

	cfg, err := pagedb.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	bp := pagedb.NewBufferPool(cfg.MaxBufferPages, nil)
	catalog, err := cfg.BuildCatalog(bp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalog error:", err)
		os.Exit(1)
	}
	bp.SetCatalog(catalog)

	rl, err := readline.New("pagedb> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "readline error:", err)
		os.Exit(1)
	}
	defer rl.Close()

	shell := &shell{bp: bp, catalog: catalog}
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			return
		}
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		if line == "" {
			continue
		}
		if line == ".quit" || line == ".exit" {
			return
		}
		if err := shell.run(line); err != nil {
			fmt.Println("ERR:", err)
		}
	}
}

type shell struct {
	bp      *pagedb.BufferPool
	catalog *pagedb.MemCatalog
}

func (s *shell) run(sql string) error {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	tid := pagedb.NewTID()
	var runErr error
	switch st := stmt.(type) {
	case *sqlparser.Select:
		runErr = s.runSelect(tid, st)
	case *sqlparser.Insert:
		runErr = s.runInsert(tid, st)
	case *sqlparser.Delete:
		runErr = s.runDelete(tid, st)
	default:
		runErr = fmt.Errorf("unsupported statement %T", st)
	}

	if runErr != nil {
		_ = s.bp.AbortTransaction(tid)
		return runErr
	}
	return s.bp.CommitTransaction(tid)
}

func (s *shell) tableFromName(name string) (*pagedb.HeapFile, error) {
	id, err := s.catalog.GetTableID(name)
	if err != nil {
		return nil, err
	}
	file, err := s.catalog.GetDatabaseFile(id)
	if err != nil {
		return nil, err
	}
	hf, ok := file.(*pagedb.HeapFile)
	if !ok {
		return nil, fmt.Errorf("table %s is not a heap file", name)
	}
	return hf, nil
}

func (s *shell) runSelect(tid pagedb.TransactionID, st *sqlparser.Select) error {
	if len(st.From) != 1 {
		return fmt.Errorf("only single-table queries are supported")
	}
	aliased, ok := st.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return fmt.Errorf("unsupported FROM clause")
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return fmt.Errorf("unsupported FROM clause")
	}
	hf, err := s.tableFromName(tableName.Name.String())
	if err != nil {
		return err
	}

	var op pagedb.Operator = pagedb.NewSeqScan(hf, "")

	if st.Where != nil {
		filtered, err := applyWhere(op, st.Where.Expr)
		if err != nil {
			return err
		}
		op = filtered
	}

	projected, err := applyProject(op, st.SelectExprs)
	if err != nil {
		return err
	}
	op = projected

	if len(st.OrderBy) > 0 {
		ordered, err := applyOrderBy(op, st.OrderBy)
		if err != nil {
			return err
		}
		op = ordered
	}

	if st.Limit != nil {
		limited, err := applyLimit(op, st.Limit)
		if err != nil {
			return err
		}
		op = limited
	}

	return printResults(tid, op)
}

func applyWhere(child pagedb.Operator, expr sqlparser.Expr) (pagedb.Operator, error) {
	cmp, ok := expr.(*sqlparser.ComparisonExpr)
	if !ok {
		return nil, fmt.Errorf("WHERE only supports a single comparison")
	}
	colName, ok := cmp.Left.(*sqlparser.ColName)
	if !ok {
		return nil, fmt.Errorf("WHERE left side must be a column")
	}
	ft, err := lookupField(child.Descriptor(), colName.Name.String())
	if err != nil {
		return nil, err
	}
	op, err := comparisonOp(cmp.Operator)
	if err != nil {
		return nil, err
	}
	rightExpr, err := literalExpr(cmp.Right, ft.Ftype)
	if err != nil {
		return nil, err
	}
	return pagedb.NewFilter(rightExpr, op, pagedb.NewFieldExpr(ft), child)
}

func applyProject(child pagedb.Operator, selectExprs sqlparser.SelectExprs) (pagedb.Operator, error) {
	var fields []pagedb.Expr
	var names []string
	for _, se := range selectExprs {
		switch e := se.(type) {
		case *sqlparser.StarExpr:
			for _, ft := range child.Descriptor().Fields {
				fields = append(fields, pagedb.NewFieldExpr(ft))
				names = append(names, ft.Fname)
			}
		case *sqlparser.AliasedExpr:
			colName, ok := e.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, fmt.Errorf("only plain column selection is supported")
			}
			ft, err := lookupField(child.Descriptor(), colName.Name.String())
			if err != nil {
				return nil, err
			}
			name := ft.Fname
			if !e.As.IsEmpty() {
				name = e.As.String()
			}
			fields = append(fields, pagedb.NewFieldExpr(ft))
			names = append(names, name)
		default:
			return nil, fmt.Errorf("unsupported select expression %T", se)
		}
	}
	return pagedb.NewProjectOp(fields, names, false, child)
}

func applyOrderBy(child pagedb.Operator, orderBy sqlparser.OrderBy) (pagedb.Operator, error) {
	var exprs []pagedb.Expr
	var ascending []bool
	for _, o := range orderBy {
		colName, ok := o.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, fmt.Errorf("ORDER BY only supports column names")
		}
		ft, err := lookupField(child.Descriptor(), colName.Name.String())
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, pagedb.NewFieldExpr(ft))
		ascending = append(ascending, o.Direction != sqlparser.DescScr)
	}
	return pagedb.NewOrderBy(exprs, child, ascending)
}

func applyLimit(child pagedb.Operator, limit *sqlparser.Limit) (pagedb.Operator, error) {
	val, ok := limit.Rowcount.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.IntVal {
		return nil, fmt.Errorf("LIMIT must be a literal integer")
	}
	n, err := strconv.ParseInt(string(val.Val), 10, 64)
	if err != nil {
		return nil, err
	}
	return pagedb.NewLimitOp(pagedb.NewConstExpr(pagedb.IntField{Value: n}, pagedb.IntType), child), nil
}

func (s *shell) runInsert(tid pagedb.TransactionID, st *sqlparser.Insert) error {
	hf, err := s.tableFromName(st.Table.Name.String())
	if err != nil {
		return err
	}
	values, ok := st.Rows.(sqlparser.Values)
	if !ok {
		return fmt.Errorf("only VALUES inserts are supported")
	}
	desc := hf.Descriptor()
	count := int64(0)
	for _, row := range values {
		if len(row) != len(desc.Fields) {
			return fmt.Errorf("expected %d values, got %d", len(desc.Fields), len(row))
		}
		t := &pagedb.Tuple{Desc: *desc, Fields: make([]pagedb.DBValue, len(row))}
		for i, e := range row {
			v, err := literalValue(e, desc.Fields[i].Ftype)
			if err != nil {
				return err
			}
			t.Fields[i] = v
		}
		if err := s.bp.InsertTuple(tid, hf, t); err != nil {
			return err
		}
		count++
	}
	fmt.Printf("inserted %d row(s)\n", count)
	return nil
}

func (s *shell) runDelete(tid pagedb.TransactionID, st *sqlparser.Delete) error {
	if len(st.TableExprs) != 1 {
		return fmt.Errorf("only single-table deletes are supported")
	}
	aliased, ok := st.TableExprs[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return fmt.Errorf("unsupported delete target")
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return fmt.Errorf("unsupported delete target")
	}
	hf, err := s.tableFromName(tableName.Name.String())
	if err != nil {
		return err
	}

	var op pagedb.Operator = pagedb.NewSeqScan(hf, "")
	if st.Where != nil {
		op, err = applyWhere(op, st.Where.Expr)
		if err != nil {
			return err
		}
	}

	if err := op.Open(tid); err != nil {
		return err
	}
	count := int64(0)
	for {
		has, err := op.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		t, err := op.Next()
		if err != nil {
			return err
		}
		if err := s.bp.DeleteTuple(tid, t); err != nil {
			return err
		}
		count++
	}
	if err := op.Close(); err != nil {
		return err
	}
	fmt.Printf("deleted %d row(s)\n", count)
	return nil
}

func printResults(tid pagedb.TransactionID, op pagedb.Operator) error {
	if err := op.Open(tid); err != nil {
		return err
	}
	defer op.Close()
	fmt.Println(op.Descriptor().HeaderString(false))
	for {
		has, err := op.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		t, err := op.Next()
		if err != nil {
			return err
		}
		fmt.Println(t.PrettyPrintString(false))
	}
	return nil
}

func lookupField(desc *pagedb.TupleDesc, name string) (pagedb.FieldType, error) {
	for _, f := range desc.Fields {
		if f.Fname == name {
			return f, nil
		}
	}
	return pagedb.FieldType{}, fmt.Errorf("unknown column %q", name)
}

func comparisonOp(op string) (pagedb.BoolOp, error) {
	switch op {
	case sqlparser.EqualStr:
		return pagedb.OpEq, nil
	case sqlparser.NotEqualStr:
		return pagedb.OpNe, nil
	case sqlparser.LessThanStr:
		return pagedb.OpLt, nil
	case sqlparser.LessEqualStr:
		return pagedb.OpLe, nil
	case sqlparser.GreaterThanStr:
		return pagedb.OpGt, nil
	case sqlparser.GreaterEqualStr:
		return pagedb.OpGe, nil
	case sqlparser.LikeStr:
		return pagedb.OpLike, nil
	default:
		return 0, fmt.Errorf("unsupported comparison operator %q", op)
	}
}

func literalExpr(e sqlparser.Expr, ftype pagedb.DBType) (pagedb.Expr, error) {
	v, err := literalValue(e, ftype)
	if err != nil {
		return nil, err
	}
	return pagedb.NewConstExpr(v, ftype), nil
}

func literalValue(e sqlparser.Expr, ftype pagedb.DBType) (pagedb.DBValue, error) {
	val, ok := e.(*sqlparser.SQLVal)
	if !ok {
		return nil, fmt.Errorf("only literal values are supported, got %T", e)
	}
	switch ftype {
	case pagedb.IntType:
		n, err := strconv.ParseInt(string(val.Val), 10, 64)
		if err != nil {
			return nil, err
		}
		return pagedb.IntField{Value: n}, nil
	case pagedb.DoubleType:
		f, err := strconv.ParseFloat(string(val.Val), 64)
		if err != nil {
			return nil, err
		}
		return pagedb.DoubleField{Value: f}, nil
	case pagedb.StringType:
		return pagedb.StringField{Value: string(val.Val)}, nil
	default:
		return nil, fmt.Errorf("unresolved field type")
	}
}
