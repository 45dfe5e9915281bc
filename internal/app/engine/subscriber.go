package engine

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/raaulc/shared-tasks/internal/app/system/timeouts"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// applyEvent translates one feed event into a local state patch. Events
// stamped with a stale epoch belong to a previous workspace and are
// discarded; the workspace id is re-checked on every event because feed
// filtering at the collaborator may be partial.
func (s *Session) applyEvent(epoch uint64, ev Event) {
	if epoch != s.epoch || s.state.workspace == nil {
		return
	}
	switch ev.Table {
	case TableCategories:
		s.applyCategoryEvent(ev)
	case TableItems:
		s.applyItemEvent(ev)
	default:
		s.log.Debug("event for unwatched table", zap.String("table", string(ev.Table)))
	}
}

func (s *Session) applyCategoryEvent(ev Event) {
	switch ev.Op {
	case OpInsert, OpUpdate:
		if ev.Category == nil || ev.Category.WorkspaceID != s.state.workspace.ID {
			return
		}
		if i := s.state.categoryIndex(ev.Category.ID); i >= 0 {
			s.state.categories[i] = *ev.Category
			return
		}
		s.state.categories = append([]models.Category{*ev.Category}, s.state.categories...)
	case OpDelete:
		if ev.DeletedID.IsZero() {
			s.log.Debug("category delete event without id, dropped")
			return
		}
		s.dropCategoryLocked(ev.DeletedID)
	}
}

// dropCategoryLocked removes the category from the view, detaches local
// items that referenced it, and falls back to the "All" filter when the
// deleted category was selected.
func (s *Session) dropCategoryLocked(id primitive.ObjectID) {
	if i := s.state.categoryIndex(id); i >= 0 {
		s.state.categories = append(s.state.categories[:i], s.state.categories[i+1:]...)
	}
	for i := range s.state.items {
		if s.state.items[i].CategoryID != nil && *s.state.items[i].CategoryID == id {
			s.state.items[i].CategoryID = nil
		}
	}
	if s.state.categoryFilter != nil && *s.state.categoryFilter == id {
		s.state.categoryFilter = nil
		s.reloadItemsAsync()
	}
}

func (s *Session) applyItemEvent(ev Event) {
	switch ev.Op {
	case OpInsert:
		if ev.Item == nil || ev.Item.WorkspaceID != s.state.workspace.ID {
			return
		}
		if !s.state.itemMatchesFilter(*ev.Item) {
			return
		}
		// An optimistic insert may already hold this id; the feed echo
		// merges as a replace, not a duplicate.
		if i := s.state.itemIndex(ev.Item.ID); i >= 0 {
			s.state.items[i] = *ev.Item
			return
		}
		s.state.items = append([]models.Item{*ev.Item}, s.state.items...)
	case OpUpdate:
		if ev.Item == nil || ev.Item.WorkspaceID != s.state.workspace.ID {
			return
		}
		if !s.state.itemMatchesFilter(*ev.Item) {
			s.state.removeItem(ev.Item.ID)
			return
		}
		if i := s.state.itemIndex(ev.Item.ID); i >= 0 {
			// Replace in place; updates never re-sort the collection.
			s.state.items[i] = *ev.Item
			return
		}
		// At-least-once delivery can surface an update for an item the
		// view never saw (e.g. it moved into the active filter).
		s.state.items = append([]models.Item{*ev.Item}, s.state.items...)
	case OpDelete:
		if ev.DeletedID.IsZero() {
			s.log.Debug("item delete event without id, dropped")
			return
		}
		if !ev.WorkspaceID.IsZero() && ev.WorkspaceID != s.state.workspace.ID {
			return
		}
		s.state.removeItem(ev.DeletedID)
	}
}

// applyBroadcastDelete handles the advisory delete channel. The primary
// feed delivers the authoritative delete later; both converge on the same
// idempotent removal.
func (s *Session) applyBroadcastDelete(epoch uint64, id primitive.ObjectID) {
	if epoch != s.epoch || s.state.workspace == nil {
		return
	}
	s.state.removeItem(id)
}

// reloadItemsAsync refetches the item list off the loop and installs it
// if the workspace and filter are unchanged when the fetch completes.
func (s *Session) reloadItemsAsync() {
	workspaceID := s.state.workspace.ID
	filter := s.state.categoryFilter
	epoch := s.epoch

	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
		defer cancel()
		items, err := s.cfg.Items.ListByWorkspace(ctx, workspaceID, filter)
		if err != nil {
			s.post(func() { s.notify(&RemoteWriteError{Op: "reload items", Err: err}) })
			return
		}
		s.post(func() {
			if epoch != s.epoch || s.state.workspace == nil || s.state.workspace.ID != workspaceID {
				return
			}
			if (filter == nil) != (s.state.categoryFilter == nil) {
				return
			}
			s.state.items = items
		})
	}()
}

// SetCategoryFilter selects the visible category (nil means "All"),
// persists the choice as a UX default, and reloads the item view.
func (s *Session) SetCategoryFilter(ctx context.Context, categoryID *primitive.ObjectID) error {
	var opErr error
	if err := s.do(func() { opErr = s.setCategoryFilterLocked(ctx, categoryID) }); err != nil {
		return err
	}
	return opErr
}

func (s *Session) setCategoryFilterLocked(ctx context.Context, categoryID *primitive.ObjectID) error {
	if s.state.workspace == nil {
		return ErrNoActiveWorkspace
	}
	if categoryID != nil && s.state.categoryIndex(*categoryID) < 0 {
		return &ValidationError{Field: "category", Msg: "not found"}
	}
	s.state.categoryFilter = categoryID

	if s.cfg.Prefs != nil {
		saved := ""
		if categoryID != nil {
			saved = categoryID.Hex()
		}
		if err := s.cfg.Prefs.SetLastCategory(s.state.workspace.ID.Hex(), saved); err != nil {
			s.log.Warn("persist category preference failed", zap.Error(err))
		}
	}

	items, err := s.cfg.Items.ListByWorkspace(ctx, s.state.workspace.ID, categoryID)
	if err != nil {
		return &RemoteWriteError{Op: "load items", Err: err}
	}
	s.state.items = items
	return nil
}
