package pagedb

// TableStats summarizes one table for the cost/selectivity estimates a
// query planner needs: page count, tuple count, and a per-field histogram
// (IntHistogram for INT/DOUBLE fields, StringHistogram for STRING fields).

import (
	"fmt"
	"log"
	"math"
	"sync"
)

type Stats interface {
	EstimateScanCost() float64
	EstimateCardinality(selectivity float64) int
	EstimateSelectivity(field string, op BoolOp, value DBValue) (float64, error)
}

type TableStats struct {
	basePages  int
	baseTups   int
	histograms map[string]any
	tupleDesc  *TupleDesc
}

// CostPerPage is the assumed cost, in arbitrary units, of reading one page
// from disk with no pages already cached.
const CostPerPage = 1000

// NumHistBins is the default bucket count for a field's histogram.
const NumHistBins = 10

func tableMinMax(tid TransactionID, dbFile DBFile) ([]int64, []int64, error) {
	td := dbFile.getTupleDesc()
	mins := make([]int64, len(td.Fields))
	maxs := make([]int64, len(td.Fields))
	for i := range mins {
		mins[i] = math.MaxInt32
		maxs[i] = math.MinInt32
	}

	it, err := dbFile.iterator(tid)
	if err != nil {
		return nil, nil, err
	}
	for {
		tup, err := it.Next()
		if err != nil {
			return nil, nil, err
		}
		if tup == nil {
			break
		}
		for i, f := range td.Fields {
			var v int64
			switch f.Ftype {
			case IntType:
				v = tup.Fields[i].(IntField).Value
			case DoubleType:
				v = int64(tup.Fields[i].(DoubleField).Value)
			default:
				continue
			}
			if v < mins[i] {
				mins[i] = v
			}
			if v > maxs[i] {
				maxs[i] = v
			}
		}
	}
	for i := range mins {
		if mins[i] > maxs[i] {
			mins[i], maxs[i] = 0, 0
		}
	}
	return mins, maxs, nil
}

// ComputeTableStats scans dbFile twice under its own short-lived
// transaction: once to find each numeric field's min and max, then again to
// fill one histogram per field.
func ComputeTableStats(bp *BufferPool, dbFile DBFile) (*TableStats, error) {
	tid := NewTID()
	defer bp.transactionComplete(tid, true)

	td := dbFile.getTupleDesc()

	mins, maxs, err := tableMinMax(tid, dbFile)
	if err != nil {
		return nil, err
	}

	hists := make(map[string]any, len(td.Fields))
	for i, f := range td.Fields {
		switch f.Ftype {
		case IntType, DoubleType:
			h, err := NewIntHistogram(NumHistBins, mins[i], maxs[i])
			if err != nil {
				return nil, err
			}
			hists[f.Fname] = h
		case StringType:
			h, err := NewStringHistogram()
			if err != nil {
				return nil, err
			}
			hists[f.Fname] = h
		default:
			return nil, fmt.Errorf("field %s has unresolved type", f.Fname)
		}
	}

	it, err := dbFile.iterator(tid)
	if err != nil {
		return nil, err
	}
	baseTups := 0
	for {
		tup, err := it.Next()
		if err != nil {
			return nil, err
		}
		if tup == nil {
			break
		}
		for i, f := range td.Fields {
			switch f.Ftype {
			case IntType:
				hists[f.Fname].(*IntHistogram).AddValue(tup.Fields[i].(IntField).Value)
			case DoubleType:
				hists[f.Fname].(*IntHistogram).AddValue(int64(tup.Fields[i].(DoubleField).Value))
			case StringType:
				hists[f.Fname].(*StringHistogram).AddValue(tup.Fields[i].(StringField).Value)
			}
		}
		baseTups++
	}

	return &TableStats{basePages: dbFile.numPages(), baseTups: baseTups, histograms: hists, tupleDesc: td}, nil
}

// EstimateScanCost estimates the cost of a full sequential scan, assuming
// no pages are already cached.
func (t *TableStats) EstimateScanCost() float64 {
	return float64(t.basePages * CostPerPage)
}

// EstimateCardinality estimates the number of tuples matching a predicate
// of the given selectivity.
func (t *TableStats) EstimateCardinality(selectivity float64) int {
	return int(float64(t.baseTups) * selectivity)
}

// EstimateSelectivity estimates the fraction of rows satisfying
// "field op value" using field's histogram.
func (t *TableStats) EstimateSelectivity(field string, op BoolOp, value DBValue) (float64, error) {
	hist, ok := t.histograms[field]
	if !ok {
		log.Printf("no histogram for field %s, assuming selectivity 1.0", field)
		return 1.0, nil
	}
	switch h := hist.(type) {
	case *IntHistogram:
		switch v := value.(type) {
		case IntField:
			return h.EstimateSelectivity(op, v.Value), nil
		case DoubleField:
			return h.EstimateSelectivity(op, int64(v.Value)), nil
		default:
			return 1.0, fmt.Errorf("field %q is numeric, value %v is not", field, value)
		}
	case *StringHistogram:
		v, ok := value.(StringField)
		if !ok {
			return 1.0, fmt.Errorf("field %q is a string, value %v is not", field, value)
		}
		return h.EstimateSelectivity(op, v.Value), nil
	default:
		return 1.0, fmt.Errorf("unrecognized histogram type for field %q", field)
	}
}

// tableStatsRegistry is the process-wide tableName -> TableStats map every
// fork of this assignment keeps, here lazily initialized and guarded by a
// mutex rather than exposed through a reflection-based test hook.
var tableStatsRegistry = struct {
	mu    sync.Mutex
	stats map[string]*TableStats
}{}

// SetTableStats records stats for tableName, replacing any previous entry.
func SetTableStats(tableName string, stats *TableStats) {
	tableStatsRegistry.mu.Lock()
	defer tableStatsRegistry.mu.Unlock()
	if tableStatsRegistry.stats == nil {
		tableStatsRegistry.stats = make(map[string]*TableStats)
	}
	tableStatsRegistry.stats[tableName] = stats
}

// GetTableStats retrieves the stats previously recorded for tableName, if
// any.
func GetTableStats(tableName string) (*TableStats, bool) {
	tableStatsRegistry.mu.Lock()
	defer tableStatsRegistry.mu.Unlock()
	s, ok := tableStatsRegistry.stats[tableName]
	return s, ok
}

// ComputeStatistics walks every table registered in catalog, computes fresh
// TableStats for each via ComputeTableStats, and records them in the
// process-wide registry — the bulk "recompute everything" operation a
// planner runs once at startup (or after a bulk load) rather than lazily
// per table.
func ComputeStatistics(bp *BufferPool, catalog Catalog) error {
	for _, id := range catalog.tableIDs() {
		name, err := catalog.getTableName(id)
		if err != nil {
			return err
		}
		dbFile, err := catalog.getDatabaseFile(id)
		if err != nil {
			return err
		}
		stats, err := ComputeTableStats(bp, dbFile)
		if err != nil {
			return err
		}
		SetTableStats(name, stats)
	}
	return nil
}
