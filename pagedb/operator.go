package pagedb

// baseOperator implements the open/close bookkeeping shared by every
// operator: HasNext/Next are usage errors before Open or after Close, and
// Open/Close are themselves usage errors when called out of order. Each
// concrete operator supplies a fetchNext hook — the "fetch one more tuple
// or nil at EOF" primitive — and gets HasNext/Next/peek-buffering for
// free.

type fetchFunc func() (*Tuple, error)

type baseOperator struct {
	open   bool
	fetch  fetchFunc
	peeked *Tuple
	havePeeked bool
}

// start marks the operator open and installs its fetch hook. Concrete
// operators call this at the end of their own Open.
func (b *baseOperator) start(fetch fetchFunc) error {
	if b.open {
		return newErr(UsageError, "operator is already open")
	}
	b.open = true
	b.fetch = fetch
	b.havePeeked = false
	b.peeked = nil
	return nil
}

func (b *baseOperator) requireOpen() error {
	if !b.open {
		return newErr(UsageError, "operator used before Open or after Close")
	}
	return nil
}

func (b *baseOperator) HasNext() (bool, error) {
	if err := b.requireOpen(); err != nil {
		return false, err
	}
	if !b.havePeeked {
		t, err := b.fetch()
		if err != nil {
			return false, err
		}
		b.peeked = t
		b.havePeeked = true
	}
	return b.peeked != nil, nil
}

func (b *baseOperator) Next() (*Tuple, error) {
	ok, err := b.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(TupleNotFoundError, "Next called with no tuple available")
	}
	t := b.peeked
	b.peeked = nil
	b.havePeeked = false
	return t, nil
}

// stop marks the operator closed. Concrete operators call this at the
// start of their own Close, before closing any child.
func (b *baseOperator) stop() error {
	if err := b.requireOpen(); err != nil {
		return err
	}
	b.open = false
	b.fetch = nil
	b.peeked = nil
	b.havePeeked = false
	return nil
}
