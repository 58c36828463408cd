package pagedb

// StringHistogram estimates selectivity over a STRING field by converting
// each string to an integer key (the classic weighted-first-three-bytes
// encoding) and delegating to an IntHistogram — the approach spec.md calls
// for. A secondary github.com/tylertreat/BoomFilters CountMinSketch, kept
// from the teacher's own StringHistogram, tracks approximate per-value
// frequency and is consulted directly for EQUALS selectivity, since a
// heavy-hitter's exact frequency is a tighter estimate than its bucketed
// (and hash-collision-prone) histogram key would give.

import boom "github.com/tylertreat/BoomFilters"

const stringHistogramBuckets = 10

// stringKeyWidth bytes of a string are weighted into the integer key;
// strings shorter than this are treated as zero-padded.
const stringKeyWidth = 3

func stringToIntKey(s string) int64 {
	var v int64
	for i := 0; i < stringKeyWidth; i++ {
		var c byte
		if i < len(s) {
			c = s[i]
		}
		v = v*256 + int64(c)
	}
	return v
}

const stringKeyMax = (1<<24 - 1)

type StringHistogram struct {
	ih  *IntHistogram
	cms *boom.CountMinSketch
}

// NewStringHistogram builds a StringHistogram over the fixed domain every
// possible stringKeyWidth-byte weighting can produce.
func NewStringHistogram() (*StringHistogram, error) {
	ih, err := NewIntHistogram(stringHistogramBuckets, 0, stringKeyMax)
	if err != nil {
		return nil, err
	}
	return &StringHistogram{
		ih:  ih,
		cms: boom.NewCountMinSketch(0.001, 0.999),
	}, nil
}

func (h *StringHistogram) AddValue(s string) {
	h.ih.AddValue(stringToIntKey(s))
	h.cms.Add([]byte(s))
}

// EstimateSelectivity estimates "field op s". EQUALS is answered from the
// CountMinSketch's approximate frequency for s directly, rather than from
// s's (possibly collision-prone) histogram bucket; every other operator
// goes through the underlying IntHistogram over s's integer key.
func (h *StringHistogram) EstimateSelectivity(op BoolOp, s string) float64 {
	if op == OpEq {
		if h.ih.total == 0 {
			return 0
		}
		return float64(h.approxFrequency(s)) / float64(h.ih.total)
	}
	return h.ih.EstimateSelectivity(op, stringToIntKey(s))
}

// approxFrequency reports the CountMinSketch's estimated occurrence count
// of s: a heavy-hitter signal independent of (and more precise for
// high-skew values than) the bucketed histogram above.
func (h *StringHistogram) approxFrequency(s string) uint64 {
	return h.cms.Count([]byte(s))
}
