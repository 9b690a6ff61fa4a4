package sched

import (
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
)

// ClusterKey is the canonical identity of a core pair: Low < High always.
// Being a comparable struct it is usable directly as a map key.
type ClusterKey struct {
	Low  CoreID
	High CoreID
}

// NewClusterKey canonicalizes {a, b}. Pairing a core with itself is invalid.
func NewClusterKey(a, b CoreID) (ClusterKey, error) {
	if a == b {
		return ClusterKey{}, invalidf("cluster pairs core %d with itself", a)
	}
	if a > b {
		a, b = b, a
	}
	return ClusterKey{Low: a, High: b}, nil
}

func (k ClusterKey) Contains(core CoreID) bool {
	return k.Low == core || k.High == core
}

// Cores returns the pair in canonical order.
func (k ClusterKey) Cores() [2]CoreID {
	return [2]CoreID{k.Low, k.High}
}

func (k ClusterKey) String() string {
	return fmt.Sprintf("{%d,%d}", k.Low, k.High)
}

// Cluster is a core pair with the tasks placed on it during one frame.
type Cluster struct {
	Key           ClusterKey
	Tasks         []*Task // in acceptance order
	SpareCapacity float64

	loads []*taskLoad
}

func (c *Cluster) TaskIDs() []TaskID {
	ids := make([]TaskID, len(c.Tasks))
	for i, t := range c.Tasks {
		ids[i] = t.ID
	}
	return ids
}

func (c *Cluster) accept(l *taskLoad, demand float64) {
	c.Tasks = append(c.Tasks, l.task)
	c.loads = append(c.loads, l)
	c.SpareCapacity -= demand
}

// ClusterSet holds the clusters built in one frame, ordered by key.
type ClusterSet struct {
	FrameLength float64

	tree   *treemap.Map // ClusterKey -> *Cluster
	owners map[CoreID]ClusterKey
	trace  []Event
}

func newClusterSet(frameLength float64) *ClusterSet {
	return &ClusterSet{
		FrameLength: frameLength,
		tree:        treemap.NewWith(keyCmp),
		owners:      make(map[CoreID]ClusterKey),
	}
}

func (s *ClusterSet) add(c *Cluster) {
	s.tree.Put(c.Key, c)
	s.owners[c.Key.Low] = c.Key
	s.owners[c.Key.High] = c.Key
}

// HasCore reports whether core already belongs to a cluster this frame.
func (s *ClusterSet) HasCore(core CoreID) bool {
	_, ok := s.owners[core]
	return ok
}

// ClusterOf returns the cluster holding core, or ErrNotFound.
func (s *ClusterSet) ClusterOf(core CoreID) (*Cluster, error) {
	key, ok := s.owners[core]
	if !ok {
		return nil, fmt.Errorf("core %d has no cluster: %w", core, ErrNotFound)
	}
	return s.Get(key)
}

// Get looks a cluster up by key; {a,b} and {b,a} resolve to the same entry.
func (s *ClusterSet) Get(key ClusterKey) (*Cluster, error) {
	if key.Low > key.High {
		key.Low, key.High = key.High, key.Low
	}
	v, found := s.tree.Get(key)
	if !found {
		return nil, fmt.Errorf("cluster %s: %w", key, ErrNotFound)
	}
	return v.(*Cluster), nil
}

// Clusters lists the clusters in ascending key order.
func (s *ClusterSet) Clusters() []*Cluster {
	out := make([]*Cluster, 0, s.tree.Size())
	it := s.tree.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Cluster))
	}
	return out
}

func (s *ClusterSet) Len() int { return s.tree.Size() }

// Trace returns the placement decisions taken while building the set.
func (s *ClusterSet) Trace() []Event { return s.trace }

// keyCmp orders cluster keys for the tree map.
func keyCmp(a, b any) int {
	ka, kb := a.(ClusterKey), b.(ClusterKey)
	switch {
	case ka.Low < kb.Low:
		return -1
	case ka.Low > kb.Low:
		return 1
	case ka.High < kb.High:
		return -1
	case ka.High > kb.High:
		return 1
	default:
		return 0
	}
}
