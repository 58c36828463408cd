package pagedb

// SeqScan is the required sequential-scan operator: it pulls tuples from a
// table's DBFile in storage order, through the buffer pool, optionally
// renaming the table qualifier on the emitted schema.

type SeqScan struct {
	baseOperator
	file  DBFile
	alias string
	desc  *TupleDesc
	it    DBFileIterator
}

// NewSeqScan builds a scan over file; alias overrides the TableQualifier on
// every emitted tuple's schema (pass the empty string to keep the file's
// own qualifier).
func NewSeqScan(file DBFile, alias string) *SeqScan {
	desc := file.getTupleDesc().copy()
	if alias != "" {
		desc.setTableAlias(alias)
	}
	return &SeqScan{file: file, alias: alias, desc: desc}
}

func (s *SeqScan) Descriptor() *TupleDesc { return s.desc }

func (s *SeqScan) Open(tid TransactionID) error {
	it, err := s.file.iterator(tid)
	if err != nil {
		return err
	}
	s.it = it
	return s.start(func() (*Tuple, error) {
		t, err := s.it.Next()
		if err != nil || t == nil {
			return nil, err
		}
		out := &Tuple{Desc: *s.desc, Fields: t.Fields, Rid: t.Rid}
		return out, nil
	})
}

func (s *SeqScan) Rewind() error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if err := s.it.Rewind(); err != nil {
		return err
	}
	s.havePeeked = false
	s.peeked = nil
	return nil
}

func (s *SeqScan) Close() error {
	if err := s.stop(); err != nil {
		return err
	}
	if s.it != nil {
		return s.it.Close()
	}
	return nil
}
