package engine

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// sessionState is the in-memory view of the active workspace. It is owned
// exclusively by the session loop; everything handed out is a copy.
type sessionState struct {
	profile   *models.Profile
	workspace *models.Workspace

	known      []models.Workspace
	members    []Member
	categories []models.Category
	items      []models.Item

	// categoryFilter narrows the visible items; nil means "All".
	categoryFilter *primitive.ObjectID
}

func (st *sessionState) clearWorkspace() {
	st.workspace = nil
	st.members = nil
	st.categories = nil
	st.items = nil
	st.categoryFilter = nil
}

func (st *sessionState) itemIndex(id primitive.ObjectID) int {
	for i := range st.items {
		if st.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (st *sessionState) categoryIndex(id primitive.ObjectID) int {
	for i := range st.categories {
		if st.categories[i].ID == id {
			return i
		}
	}
	return -1
}

// removeItem removes the item by id. A miss is a no-op so the two delete
// producers (primary feed, advisory broadcast) converge on one removal.
func (st *sessionState) removeItem(id primitive.ObjectID) bool {
	i := st.itemIndex(id)
	if i < 0 {
		return false
	}
	st.items = append(st.items[:i], st.items[i+1:]...)
	return true
}

// insertItemAt reinserts a rolled-back delete at its prior position,
// clamped in case the list shrank meanwhile.
func (st *sessionState) insertItemAt(it models.Item, index int) {
	if index < 0 {
		index = 0
	}
	if index > len(st.items) {
		index = len(st.items)
	}
	st.items = append(st.items, models.Item{})
	copy(st.items[index+1:], st.items[index:])
	st.items[index] = it
}

// itemMatchesFilter reports whether the item belongs in the visible
// collection under the current category filter.
func (st *sessionState) itemMatchesFilter(it models.Item) bool {
	if st.categoryFilter == nil {
		return true
	}
	return it.CategoryID != nil && *it.CategoryID == *st.categoryFilter
}

// Snapshot is a consistent read-only copy of the session state.
type Snapshot struct {
	Profile        *models.Profile
	Workspace      *models.Workspace
	Known          []models.Workspace
	Members        []Member
	Categories     []models.Category
	Items          []models.Item
	CategoryFilter *primitive.ObjectID
}

func (st *sessionState) snapshot() Snapshot {
	snap := Snapshot{
		Known:      append([]models.Workspace(nil), st.known...),
		Members:    append([]Member(nil), st.members...),
		Categories: append([]models.Category(nil), st.categories...),
		Items:      append([]models.Item(nil), st.items...),
	}
	if st.profile != nil {
		p := *st.profile
		snap.Profile = &p
	}
	if st.workspace != nil {
		w := *st.workspace
		snap.Workspace = &w
	}
	if st.categoryFilter != nil {
		f := *st.categoryFilter
		snap.CategoryFilter = &f
	}
	return snap
}

// FilterByAssignee returns the snapshot's items narrowed to one assignee
// display value. An empty value means unassigned items.
func (s Snapshot) FilterByAssignee(assignee string) []models.Item {
	var out []models.Item
	for _, it := range s.Items {
		switch {
		case assignee == "" && it.AssignedTo == nil:
			out = append(out, it)
		case it.AssignedTo != nil && *it.AssignedTo == assignee:
			out = append(out, it)
		}
	}
	return out
}

// SortedByDate returns the items ordered newest first.
func (s Snapshot) SortedByDate() []models.Item {
	out := append([]models.Item(nil), s.Items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SortedByAssignment returns the items grouped with assigned first,
// alphabetically by assignee, unassigned last; ties keep current order.
func (s Snapshot) SortedByAssignment() []models.Item {
	out := append([]models.Item(nil), s.Items...)
	key := func(it models.Item) string {
		if it.AssignedTo == nil {
			return "￿"
		}
		return *it.AssignedTo
	}
	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) < key(out[j])
	})
	return out
}
