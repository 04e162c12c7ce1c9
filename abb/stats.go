package abb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Stats counts the operations a consumer asked for. Operations run inside
// another counted operation are not counted.
type Stats struct {
	sync.Mutex
	Dec int
	Mul int
	Eq  map[int]int
	Gt  map[int]int
}

// NewStats returns empty statistics.
func NewStats() *Stats {
	return &Stats{Eq: make(map[int]int), Gt: make(map[int]int)}
}

func (s *Stats) countDec(ctx context.Context) {
	if s == nil || IsNested(ctx) {
		return
	}
	s.Lock()
	s.Dec++
	s.Unlock()
}

func (s *Stats) countMul(ctx context.Context) {
	if s == nil || IsNested(ctx) {
		return
	}
	s.Lock()
	s.Mul++
	s.Unlock()
}

func (s *Stats) countEq(ctx context.Context, bits int) {
	if s == nil || IsNested(ctx) {
		return
	}
	s.Lock()
	s.Eq[bits]++
	s.Unlock()
}

func (s *Stats) countGt(ctx context.Context, bits int) {
	if s == nil || IsNested(ctx) {
		return
	}
	s.Lock()
	s.Gt[bits]++
	s.Unlock()
}

// Copy returns a snapshot of the counters.
func (s *Stats) Copy() *Stats {
	s.Lock()
	defer s.Unlock()
	c := NewStats()
	c.Dec, c.Mul = s.Dec, s.Mul
	for k, v := range s.Eq {
		c.Eq[k] = v
	}
	for k, v := range s.Gt {
		c.Gt[k] = v
	}
	return c
}

// Reset sets all counters to zero.
func (s *Stats) Reset() {
	s.Lock()
	defer s.Unlock()
	s.Dec, s.Mul = 0, 0
	s.Eq = make(map[int]int)
	s.Gt = make(map[int]int)
}

func (s *Stats) String() string {
	s.Lock()
	defer s.Unlock()
	return fmt.Sprintf("dec=%d mul=%d eq=[%s] gt=[%s]", s.Dec, s.Mul,
		perBits(s.Eq), perBits(s.Gt))
}

func perBits(m map[int]int) string {
	bits := make([]int, 0, len(m))
	for b := range m {
		bits = append(bits, b)
	}
	sort.Ints(bits)
	parts := make([]string, len(bits))
	for i, b := range bits {
		parts[i] = fmt.Sprintf("%d:%d", b, m[b])
	}
	return strings.Join(parts, " ")
}
