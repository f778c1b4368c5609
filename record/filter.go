// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Predicate selects records of a dataset.
type Predicate interface {
	// Fields returns the names of the fields the predicate reads.
	Fields() []string
	// Match returns whether the i-th record of ds is selected.
	Match(ds *Dataset, i int) bool

	String() string
}

type eqPred struct {
	name string
	v    int64
}

// Eq selects records whose field name equals v.
func Eq(name string, v int64) Predicate { return eqPred{name, v} }

func (p eqPred) Fields() []string              { return []string{p.name} }
func (p eqPred) Match(ds *Dataset, i int) bool { return ds.Column(p.name)[i] == p.v }
func (p eqPred) String() string                { return fmt.Sprintf("%s=%d", p.name, p.v) }

type rangePred struct {
	name   string
	lo, hi int64
}

// Range selects records whose field name is within [lo, hi].
func Range(name string, lo, hi int64) Predicate { return rangePred{name, lo, hi} }

func (p rangePred) Fields() []string { return []string{p.name} }
func (p rangePred) Match(ds *Dataset, i int) bool {
	v := ds.Column(p.name)[i]
	return p.lo <= v && v <= p.hi
}
func (p rangePred) String() string { return fmt.Sprintf("%s=%d..%d", p.name, p.lo, p.hi) }

type inPred struct {
	name string
	set  map[int64]struct{}
	vs   []int64
}

// In selects records whose field name is one of vs.
func In(name string, vs ...int64) Predicate {
	p := inPred{
		name: name,
		set:  make(map[int64]struct{}, len(vs)),
		vs:   append([]int64(nil), vs...),
	}
	for _, v := range vs {
		p.set[v] = struct{}{}
	}
	return p
}

func (p inPred) Fields() []string { return []string{p.name} }
func (p inPred) Match(ds *Dataset, i int) bool {
	_, ok := p.set[ds.Column(p.name)[i]]
	return ok
}
func (p inPred) String() string {
	vs := make([]string, len(p.vs))
	for i, v := range p.vs {
		vs[i] = strconv.FormatInt(v, 10)
	}
	return p.name + "=" + strings.Join(vs, "|")
}

type andPred []Predicate

// And selects records matching all of ps.
func And(ps ...Predicate) Predicate { return andPred(ps) }

func (p andPred) Fields() []string { return fieldsOf(p) }
func (p andPred) Match(ds *Dataset, i int) bool {
	for _, q := range p {
		if !q.Match(ds, i) {
			return false
		}
	}
	return true
}
func (p andPred) String() string { return join(p, ",") }

type orPred []Predicate

// Or selects records matching any of ps.
func Or(ps ...Predicate) Predicate { return orPred(ps) }

func (p orPred) Fields() []string { return fieldsOf(p) }
func (p orPred) Match(ds *Dataset, i int) bool {
	for _, q := range p {
		if q.Match(ds, i) {
			return true
		}
	}
	return false
}
func (p orPred) String() string { return "(" + join(p, " or ") + ")" }

type notPred struct{ p Predicate }

// Not selects records not matching p.
func Not(p Predicate) Predicate { return notPred{p} }

func (p notPred) Fields() []string              { return p.p.Fields() }
func (p notPred) Match(ds *Dataset, i int) bool { return !p.p.Match(ds, i) }
func (p notPred) String() string                { return "!(" + p.p.String() + ")" }

func fieldsOf(ps []Predicate) []string {
	var o []string
	for _, p := range ps {
		o = append(o, p.Fields()...)
	}
	return o
}

func join(ps []Predicate, sep string) string {
	o := make([]string, len(ps))
	for i, p := range ps {
		o[i] = p.String()
	}
	return strings.Join(o, sep)
}

// ParseFilter parses a comma-separated list of terms, all of which
// must match:
//
//	channel=2            equality
//	channel!=2           inequality
//	stimestamp=10..200   inclusive range
//	channel=0|2|3        set membership
func ParseFilter(s string) (Predicate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("record: empty filter")
	}

	var ps []Predicate
	for _, term := range strings.Split(s, ",") {
		p, err := parseTerm(strings.TrimSpace(term))
		if err != nil {
			return nil, fmt.Errorf("record: could not parse filter term %q: %w", term, err)
		}
		ps = append(ps, p)
	}
	if len(ps) == 1 {
		return ps[0], nil
	}
	return And(ps...), nil
}

func parseTerm(term string) (Predicate, error) {
	neg := false
	name, rhs, ok := strings.Cut(term, "!=")
	switch {
	case ok:
		neg = true
	default:
		name, rhs, ok = strings.Cut(term, "=")
		if !ok {
			return nil, fmt.Errorf("missing '='")
		}
	}
	name = strings.TrimSpace(name)
	rhs = strings.TrimSpace(rhs)
	if name == "" {
		return nil, fmt.Errorf("missing field name")
	}

	var p Predicate
	switch {
	case strings.Contains(rhs, ".."):
		lo, hi, _ := strings.Cut(rhs, "..")
		vlo, err := strconv.ParseInt(strings.TrimSpace(lo), 0, 64)
		if err != nil {
			return nil, err
		}
		vhi, err := strconv.ParseInt(strings.TrimSpace(hi), 0, 64)
		if err != nil {
			return nil, err
		}
		p = Range(name, vlo, vhi)

	case strings.Contains(rhs, "|"):
		var vs []int64
		for _, tok := range strings.Split(rhs, "|") {
			v, err := strconv.ParseInt(strings.TrimSpace(tok), 0, 64)
			if err != nil {
				return nil, err
			}
			vs = append(vs, v)
		}
		p = In(name, vs...)

	default:
		v, err := strconv.ParseInt(rhs, 0, 64)
		if err != nil {
			return nil, err
		}
		p = Eq(name, v)
	}

	if neg {
		p = Not(p)
	}
	return p, nil
}
