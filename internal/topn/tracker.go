package topn

import (
	"iter"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

// Group is a retained size together with the paths of that size, in the order
// they were added.
type Group struct {
	// Size is the exact size in bytes.
	Size uint64 `json:"size"`
	// Paths are the files of this size in discovery order.
	Paths []string `json:"paths"`
}

// Tracker retains the capacity largest distinct sizes it has been given.
//
// The zero value is not usable; construct with New.
type Tracker struct {
	groups   *treemap.Map // uint64 -> *[]string, ascending
	capacity int
	floor    uint64
	files    int
}

// New creates a Tracker retaining at most capacity distinct sizes.
// A capacity of zero (or less) yields a tracker that never retains anything.
func New(capacity int) *Tracker {
	return &Tracker{
		groups:   treemap.NewWith(utils.UInt64Comparator),
		capacity: max(capacity, 0),
	}
}

// Add records a file of the given size.
func (t *Tracker) Add(size uint64, path string) {
	if t.groups.Size() < t.capacity {
		if t.groups.Empty() {
			t.floor = size
		}

		t.appendPath(size, path)

		if size < t.floor {
			t.floor = size
		}

		return
	}

	if t.capacity == 0 || size < t.floor {
		return
	}

	if t.appendPath(size, path) {
		return
	}

	// One distinct size over capacity: drop the floor group whole.
	t.evict(t.floor)

	minKey, _ := t.groups.Min()
	t.floor = minKey.(uint64) //nolint:forcetypeassert // keys are always uint64
}

// appendPath adds path to the group for size, creating the group if needed.
// It reports whether the group already existed.
func (t *Tracker) appendPath(size uint64, path string) bool {
	t.files++

	if v, found := t.groups.Get(size); found {
		paths := v.(*[]string) //nolint:forcetypeassert // values are always *[]string
		*paths = append(*paths, path)

		return true
	}

	t.groups.Put(size, &[]string{path})

	return false
}

func (t *Tracker) evict(size uint64) {
	if v, found := t.groups.Get(size); found {
		t.files -= len(*v.(*[]string)) //nolint:forcetypeassert // values are always *[]string
		t.groups.Remove(size)
	}
}

// Len returns the number of distinct sizes currently retained.
func (t *Tracker) Len() int {
	return t.groups.Size()
}

// Files returns the number of paths currently retained across all groups.
func (t *Tracker) Files() int {
	return t.files
}

// Cap returns the maximum number of distinct sizes retained.
func (t *Tracker) Cap() int {
	return t.capacity
}

// Floor returns the smallest retained size. The second result is false when
// nothing is retained.
func (t *Tracker) Floor() (uint64, bool) {
	if t.groups.Empty() {
		return 0, false
	}

	return t.floor, true
}

// All iterates the retained groups in ascending size order. The yielded slices
// are copies and may be modified by the caller.
func (t *Tracker) All() iter.Seq2[uint64, []string] {
	return func(yield func(uint64, []string) bool) {
		it := t.groups.Iterator()
		for it.Next() {
			paths := *it.Value().(*[]string) //nolint:forcetypeassert // values are always *[]string
			if !yield(it.Key().(uint64), append([]string(nil), paths...)) { //nolint:forcetypeassert
				return
			}
		}
	}
}

// Results returns the retained groups in ascending size order.
func (t *Tracker) Results() []Group {
	groups := make([]Group, 0, t.groups.Size())
	for size, paths := range t.All() {
		groups = append(groups, Group{Size: size, Paths: paths})
	}

	return groups
}
