// Package parse turns sliced batch results into typed domain records.
//
// Parsers never fail on a per-call failure: a failed read is replaced by the
// field's documented default and recorded as "group.field". Structural
// problems (a result whose method identity does not match the position it
// occupies, a required position missing, a decoded value of the wrong type)
// are plan bugs and surface as ErrShapeMismatch.
package parse

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"stakelens/internal/chain"
	"stakelens/internal/plan"
)

// ErrShapeMismatch means a result slice does not have the shape its parser
// expects.
var ErrShapeMismatch = errors.New("parse: result shape mismatch")

// Reader walks the result slice of one group. It remembers the first
// structural error and every defaulted field; check Err after parsing.
type Reader struct {
	group     plan.GroupName
	results   []chain.Result
	log       logrus.FieldLogger
	defaulted []string
	err       error
}

// NewReader creates a reader over the results of one group.
func NewReader(group plan.GroupName, results []chain.Result, log logrus.FieldLogger) *Reader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reader{group: group, results: results, log: log}
}

// Len returns the number of results in the group.
func (r *Reader) Len() int { return len(r.results) }

// Has reports whether position i exists. Optional reads are present only
// when their flag was set at plan time.
func (r *Reader) Has(i int) bool { return i >= 0 && i < len(r.results) }

// Require records a shape error if fewer than n results are present.
func (r *Reader) Require(n int) bool {
	if len(r.results) < n {
		r.fail(fmt.Errorf("%w: %s group has %d results, need %d", ErrShapeMismatch, r.group, len(r.results), n))
		return false
	}
	return true
}

// Err returns the first structural error.
func (r *Reader) Err() error { return r.err }

// Defaulted returns the fields that fell back to their defaults.
func (r *Reader) Defaulted() []string { return r.defaulted }

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// value returns the decoded value at position i if the call succeeded.
// A failed call records field as defaulted and returns false.
func (r *Reader) value(i int, method, field string) (interface{}, bool) {
	if !r.Has(i) {
		r.fail(fmt.Errorf("%w: %s[%d] missing, want %s", ErrShapeMismatch, r.group, i, method))
		return nil, false
	}
	res := r.results[i]
	if res.Method != method {
		r.fail(fmt.Errorf("%w: %s[%d] is %s, want %s", ErrShapeMismatch, r.group, i, res.Method, method))
		return nil, false
	}
	if !res.OK() {
		r.Default(field)
		r.log.WithFields(logrus.Fields{
			"group":  r.group,
			"method": method,
			"target": res.Target.Hex(),
			"error":  res.Err,
		}).Debug("Read failed, using default")
		return nil, false
	}
	return res.Value, true
}

// Default marks field as defaulted.
func (r *Reader) Default(field string) {
	r.defaulted = append(r.defaulted, string(r.group)+"."+field)
}

func (r *Reader) wrongType(i int, method string, v interface{}) {
	r.fail(fmt.Errorf("%w: %s[%d] %s decoded as %T", ErrShapeMismatch, r.group, i, method, v))
}

// BigInt reads a uint256. The default is a fresh zero.
func (r *Reader) BigInt(i int, method, field string) *big.Int {
	v, ok := r.value(i, method, field)
	if !ok {
		return new(big.Int)
	}
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		r.wrongType(i, method, v)
		return new(big.Int)
	}
	return new(big.Int).Set(n)
}

// Address reads an address. The default is the zero address.
func (r *Reader) Address(i int, method, field string) common.Address {
	v, ok := r.value(i, method, field)
	if !ok {
		return common.Address{}
	}
	a, ok := v.(common.Address)
	if !ok {
		r.wrongType(i, method, v)
	}
	return a
}

// String reads a string. The default is "".
func (r *Reader) String(i int, method, field string) string {
	v, ok := r.value(i, method, field)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.wrongType(i, method, v)
	}
	return s
}

// Uint8 reads a uint8, returning def on failure.
func (r *Reader) Uint8(i int, method, field string, def uint8) uint8 {
	v, ok := r.value(i, method, field)
	if !ok {
		return def
	}
	n, ok := v.(uint8)
	if !ok {
		r.wrongType(i, method, v)
		return def
	}
	return n
}

// Tuple reads a multi-output call with n values. The default is nil.
func (r *Reader) Tuple(i int, method, field string, n int) []interface{} {
	v, ok := r.value(i, method, field)
	if !ok {
		return nil
	}
	vals, ok := v.([]interface{})
	if !ok || len(vals) != n {
		r.wrongType(i, method, v)
		return nil
	}
	return vals
}

// Collect merges the defaulted fields and the first error of readers.
func Collect(readers ...*Reader) ([]string, error) {
	var defaulted []string
	for _, r := range readers {
		if r.err != nil {
			return nil, r.err
		}
		defaulted = append(defaulted, r.defaulted...)
	}
	return defaulted, nil
}

// uint64Of clamps a uint256 into a uint64.
func uint64Of(n *big.Int) uint64 {
	if n.Sign() <= 0 {
		return 0
	}
	if !n.IsUint64() {
		return ^uint64(0)
	}
	return n.Uint64()
}
