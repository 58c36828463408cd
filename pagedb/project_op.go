package pagedb

// Project evaluates a list of expressions against each child tuple,
// renaming the results per outputNames; an optional distinct mode
// suppresses duplicate output tuples (tracked by their serialized key).

type Project struct {
	baseOperator
	selectFields []Expr
	outputNames  []string
	distinct     bool
	child        Operator
	desc         *TupleDesc
}

// NewProjectOp builds a Project over child. len(selectFields) must equal
// len(outputNames).
func NewProjectOp(selectFields []Expr, outputNames []string, distinct bool, child Operator) (*Project, error) {
	if len(selectFields) != len(outputNames) {
		return nil, newErr(UsageError, "project: %d fields but %d output names", len(selectFields), len(outputNames))
	}
	fields := make([]FieldType, len(selectFields))
	for i, e := range selectFields {
		ft := e.GetExprType()
		ft.Fname = outputNames[i]
		fields[i] = ft
	}
	return &Project{
		selectFields: selectFields,
		outputNames:  outputNames,
		distinct:     distinct,
		child:        child,
		desc:         &TupleDesc{Fields: fields},
	}, nil
}

func (p *Project) Descriptor() *TupleDesc { return p.desc }

func (p *Project) Open(tid TransactionID) error {
	if err := p.child.Open(tid); err != nil {
		return err
	}
	var seen map[any]struct{}
	if p.distinct {
		seen = make(map[any]struct{})
	}
	return p.start(func() (*Tuple, error) {
		for {
			has, err := p.child.HasNext()
			if err != nil || !has {
				return nil, err
			}
			t, err := p.child.Next()
			if err != nil {
				return nil, err
			}
			out := &Tuple{Desc: *p.desc, Fields: make([]DBValue, len(p.selectFields))}
			for i, e := range p.selectFields {
				v, err := e.EvalExpr(t)
				if err != nil {
					return nil, err
				}
				out.Fields[i] = v
			}
			if p.distinct {
				key := out.tupleKey()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			return out, nil
		}
	})
}

func (p *Project) Rewind() error {
	if err := p.requireOpen(); err != nil {
		return err
	}
	if err := p.child.Rewind(); err != nil {
		return err
	}
	p.havePeeked = false
	p.peeked = nil
	return nil
}

func (p *Project) Close() error {
	if err := p.stop(); err != nil {
		return err
	}
	return p.child.Close()
}
