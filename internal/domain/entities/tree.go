package entities

import "sort"

// TaskIndex is a node store over a set of task rows, keyed by id, with a
// parent-to-children index kept in insertion (id) order. Trees are built
// from the index on demand; rows never point at each other.
type TaskIndex struct {
	nodes    map[int64]*Task
	children map[int64][]int64
	roots    []int64
}

// NewTaskIndex indexes the given rows. A row whose parent is not part of
// the set is treated as a root of the indexed forest.
func NewTaskIndex(tasks []*Task) *TaskIndex {
	ix := &TaskIndex{
		nodes:    make(map[int64]*Task, len(tasks)),
		children: make(map[int64][]int64),
	}

	ordered := make([]*Task, len(tasks))
	copy(ordered, tasks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, t := range ordered {
		ix.nodes[t.ID] = t
	}

	for _, t := range ordered {
		if t.ParentID != nil {
			if _, ok := ix.nodes[*t.ParentID]; ok {
				ix.children[*t.ParentID] = append(ix.children[*t.ParentID], t.ID)
				continue
			}
		}
		ix.roots = append(ix.roots, t.ID)
	}

	return ix
}

// Len returns the number of indexed tasks
func (ix *TaskIndex) Len() int {
	return len(ix.nodes)
}

// Get returns the indexed row for id
func (ix *TaskIndex) Get(id int64) (*Task, bool) {
	t, ok := ix.nodes[id]
	return t, ok
}

// Children returns the direct child ids of id in insertion order
func (ix *TaskIndex) Children(id int64) []int64 {
	return ix.children[id]
}

// RootIDs returns the ids of tasks without an indexed parent
func (ix *TaskIndex) RootIDs() []int64 {
	return ix.roots
}

// PreOrder returns id followed by all of its descendants, parents before
// children, siblings in insertion order.
func (ix *TaskIndex) PreOrder(id int64) ([]int64, error) {
	if _, ok := ix.nodes[id]; !ok {
		return nil, ErrTaskNotFound
	}

	var (
		out     []int64
		visited = make(map[int64]bool)
		stack   = []int64{id}
	)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[cur] {
			return nil, ErrHierarchyCycle
		}
		visited[cur] = true
		out = append(out, cur)

		kids := ix.children[cur]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}

	return out, nil
}

// PostOrder returns every descendant of id before id itself, so deleting
// in the returned order never removes a parent ahead of its children.
func (ix *TaskIndex) PostOrder(id int64) ([]int64, error) {
	if _, ok := ix.nodes[id]; !ok {
		return nil, ErrTaskNotFound
	}

	type frame struct {
		id   int64
		next int
	}

	var (
		out     []int64
		visited = map[int64]bool{id: true}
		stack   = []frame{{id: id}}
	)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		kids := ix.children[top.id]

		if top.next < len(kids) {
			child := kids[top.next]
			top.next++
			if visited[child] {
				return nil, ErrHierarchyCycle
			}
			visited[child] = true
			stack = append(stack, frame{id: child})
			continue
		}

		out = append(out, top.id)
		stack = stack[:len(stack)-1]
	}

	return out, nil
}

// Tree returns a copy of the task at id with Subtasks filled recursively
func (ix *TaskIndex) Tree(id int64) (*Task, error) {
	order, err := ix.PreOrder(id)
	if err != nil {
		return nil, err
	}

	built := make(map[int64]*Task, len(order))
	for _, nodeID := range order {
		node := *ix.nodes[nodeID]
		node.Subtasks = nil
		built[nodeID] = &node
	}

	// pre-order guarantees a parent is built before its children are linked
	for _, nodeID := range order[1:] {
		node := built[nodeID]
		parent := built[*node.ParentID]
		parent.Subtasks = append(parent.Subtasks, node)
	}

	return built[id], nil
}

// Forest returns the trees rooted at every top-level task in the index
func (ix *TaskIndex) Forest() ([]*Task, error) {
	trees := make([]*Task, 0, len(ix.roots))
	for _, id := range ix.roots {
		if !ix.nodes[id].IsTopLevel() {
			continue
		}
		tree, err := ix.Tree(id)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, nil
}
