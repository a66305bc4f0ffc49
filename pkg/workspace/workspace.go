// Package workspace keeps named segment trees alive across requests.
//
// Trees themselves do no locking, so every entry pairs its session with a
// sync.RWMutex: reads (query, get, values, bisect) share the lock and
// mutations (update, apply, swap) hold it exclusively. The registry has
// its own lock that guards the name map and the held snapshots.
//
// Snapshot trees that fail to restore are held, not discarded: they are
// written back by the next Save until a tree of the same name is created
// or dropped.
package workspace

import (
	"cmp"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/segtree/pkg/alg/segtree"
	"github.com/Sumatoshi-tech/segtree/pkg/persist"
	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

// Sentinel errors.
var (
	ErrWorkspaceFull = errors.New("workspace is full")
	ErrTreeNotFound  = errors.New("tree not found")
	ErrTreeExists    = errors.New("tree already exists")
	ErrInvalidName   = errors.New("tree name must not be empty")
	// ErrUnreadableSnapshot reports a state file that exists but cannot be
	// read or decoded.
	ErrUnreadableSnapshot = errors.New("unreadable workspace snapshot")
)

// Info describes a stored tree.
type Info struct {
	Name   string `json:"name"`
	Monoid string `json:"monoid"`
	Leaves int    `json:"leaves"`
}

// Workspace is a bounded set of named trees. It is safe for concurrent use.
type Workspace struct {
	mu       sync.RWMutex
	trees    map[string]*Entry
	held     []TreeSnapshot
	maxTrees int
}

// New creates a workspace holding at most maxTrees trees.
func New(maxTrees int) *Workspace {
	return &Workspace{
		trees:    make(map[string]*Entry),
		maxTrees: maxTrees,
	}
}

// Create builds a tree and stores it under name.
func (w *Workspace) Create(name, monoidName string, data []string, maxLeaves int) (Info, error) {
	if name == "" {
		return Info{}, ErrInvalidName
	}

	session, err := script.NewSession(monoidName, data, maxLeaves)
	if err != nil {
		return Info{}, fmt.Errorf("create %q: %w", name, err)
	}

	return w.insert(name, session)
}

func (w *Workspace) insert(name string, session script.Session) (Info, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.trees[name]; ok {
		return Info{}, fmt.Errorf("%w: %q", ErrTreeExists, name)
	}

	if len(w.trees) >= w.maxTrees {
		return Info{}, fmt.Errorf("%w: limit %d", ErrWorkspaceFull, w.maxTrees)
	}

	entry := &Entry{name: name, session: session}
	w.trees[name] = entry
	w.releaseLocked(name)

	return entry.Info(), nil
}

// Get returns the entry stored under name.
func (w *Workspace) Get(name string) (*Entry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	entry, ok := w.trees[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTreeNotFound, name)
	}

	return entry, nil
}

// Drop removes the tree stored under name, along with any held snapshot of
// that name.
func (w *Workspace) Drop(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, live := w.trees[name]
	released := w.releaseLocked(name)

	if !live && !released {
		return fmt.Errorf("%w: %q", ErrTreeNotFound, name)
	}

	delete(w.trees, name)

	return nil
}

// Held returns the snapshot trees that failed to restore, in snapshot order.
func (w *Workspace) Held() []TreeSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return slices.Clone(w.held)
}

// releaseLocked forgets held snapshots named name. w.mu must be held.
func (w *Workspace) releaseLocked(name string) bool {
	before := len(w.held)
	w.held = slices.DeleteFunc(w.held, func(tree TreeSnapshot) bool { return tree.Name == name })

	return len(w.held) != before
}

// List describes every stored tree, sorted by name.
func (w *Workspace) List() []Info {
	w.mu.RLock()
	entries := make([]*Entry, 0, len(w.trees))

	for _, entry := range w.trees {
		entries = append(entries, entry)
	}
	w.mu.RUnlock()

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, entry.Info())
	}

	slices.SortFunc(infos, func(a, b Info) int { return cmp.Compare(a.Name, b.Name) })

	return infos
}

// Len returns the number of stored trees.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.trees)
}

// Entry is one named tree guarded by its own lock.
type Entry struct {
	mu      sync.RWMutex
	name    string
	session script.Session
}

// Info describes the entry. The leaf count never changes after creation.
func (e *Entry) Info() Info {
	return Info{Name: e.name, Monoid: e.session.Monoid(), Leaves: e.session.Len()}
}

// Query folds r under the read lock.
func (e *Entry) Query(r segtree.Range) any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.session.Query(r)
}

// Get reads leaf i under the read lock.
func (e *Entry) Get(i int) (any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.session.Get(i)
}

// Values copies the leaves covered by r under the read lock.
func (e *Entry) Values(r segtree.Range) any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.session.Values(r)
}

// Bisect searches r under the read lock.
func (e *Entry) Bisect(r segtree.Range, predicate string, dir segtree.Direction) (int, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.session.Bisect(r, predicate, dir)
}

// Update replaces leaf i under the write lock.
func (e *Entry) Update(i int, value string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.Update(i, value)
}

// Apply transforms leaf i under the write lock.
func (e *Entry) Apply(i int, fn string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.Apply(i, fn)
}

// Swap exchanges two leaves under the write lock.
func (e *Entry) Swap(i, j int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.Swap(i, j)
}

// Run applies a sequence of script ops atomically with respect to other
// callers of this entry.
func (e *Entry) Run(ops []script.Op) []script.Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	results := make([]script.Result, 0, len(ops))

	for step, op := range ops {
		res := script.Apply(e.session, op)
		res.Step = step
		results = append(results, res)
	}

	return results
}

// stateBasename names the snapshot file inside a state directory.
const stateBasename = "workspace"

// Snapshot is the persisted form of a workspace.
type Snapshot struct {
	Trees []TreeSnapshot `json:"trees" yaml:"trees"`
}

// TreeSnapshot holds one tree as the text leaves it can be rebuilt from.
type TreeSnapshot struct {
	Name   string   `json:"name" yaml:"name"`
	Monoid string   `json:"monoid" yaml:"monoid"`
	Data   []string `json:"data" yaml:"data"`
}

// Snapshot captures every tree plus the held ones, sorted by name. Each tree
// is read under its own lock, so the snapshot is consistent per tree but not
// across trees.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.RLock()
	entries := make([]*Entry, 0, len(w.trees))

	for _, entry := range w.trees {
		entries = append(entries, entry)
	}

	held := slices.Clone(w.held)
	w.mu.RUnlock()

	snap := Snapshot{Trees: make([]TreeSnapshot, 0, len(entries)+len(held))}
	for _, entry := range entries {
		snap.Trees = append(snap.Trees, entry.snapshot())
	}

	snap.Trees = append(snap.Trees, held...)

	slices.SortStableFunc(snap.Trees, func(a, b TreeSnapshot) int { return cmp.Compare(a.Name, b.Name) })

	return snap
}

// Restore rebuilds every tree of snap. Trees are built concurrently and
// stored in snapshot order; trees that fail are held for the next Save and
// their errors joined.
func (w *Workspace) Restore(snap Snapshot, maxLeaves int) (int, error) {
	sessions := make([]script.Session, len(snap.Trees))
	errs := make([]error, len(snap.Trees))

	var g errgroup.Group

	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, tree := range snap.Trees {
		g.Go(func() error {
			if tree.Name == "" {
				errs[i] = ErrInvalidName

				return nil
			}

			session, err := script.NewSession(tree.Monoid, tree.Data, maxLeaves)
			if err != nil {
				errs[i] = fmt.Errorf("restore %q: %w", tree.Name, err)

				return nil
			}

			sessions[i] = session

			return nil
		})
	}

	_ = g.Wait() // Workers report through errs.

	restored := 0

	var failed []TreeSnapshot

	for i, tree := range snap.Trees {
		if sessions[i] != nil {
			_, errs[i] = w.insert(tree.Name, sessions[i])
		}

		if errs[i] != nil {
			failed = append(failed, tree)

			continue
		}

		restored++
	}

	if len(failed) > 0 {
		w.mu.Lock()
		w.held = append(w.held, failed...)
		w.mu.Unlock()
	}

	return restored, errors.Join(errs...)
}

// Save writes a snapshot into dir using codec.
func (w *Workspace) Save(dir string, codec persist.Codec) error {
	snap := w.Snapshot()

	err := persist.NewPersister[Snapshot](stateBasename, codec).Save(dir, &snap)
	if err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}

	return nil
}

// Load restores the snapshot saved in dir. A directory without a snapshot
// returns persist.ErrNoState; a snapshot that cannot be read or decoded
// returns ErrUnreadableSnapshot and restores nothing.
func (w *Workspace) Load(dir string, codec persist.Codec, maxLeaves int) (int, error) {
	snap, err := persist.NewPersister[Snapshot](stateBasename, codec).Load(dir)
	if errors.Is(err, persist.ErrNoState) {
		return 0, fmt.Errorf("load workspace: %w", err)
	}

	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnreadableSnapshot, err)
	}

	return w.Restore(*snap, maxLeaves)
}

func (e *Entry) snapshot() TreeSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return TreeSnapshot{Name: e.name, Monoid: e.session.Monoid(), Data: e.session.Leaves()}
}
