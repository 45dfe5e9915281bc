package engine

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raaulc/shared-tasks/internal/app/system/htmlsanitize"
	"github.com/raaulc/shared-tasks/internal/app/system/timeouts"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

// Every mutation here follows the same discipline: validate, apply the
// local patch synchronously on the loop, then issue the remote write off
// the loop. Success leaves the optimistic state in place (a later feed
// echo merges as a no-op); failure rolls back to the pre-mutation
// snapshot unless a newer mutation has claimed the entity's token, in
// which case the stale rollback is discarded.

// AddItem creates an item optimistically with a pre-generated id so the
// remote row and the local row are the same record.
func (s *Session) AddItem(title string, categoryID *primitive.ObjectID, assignedTo *string) (models.Item, error) {
	title = htmlsanitize.Strip(title)
	if title == "" {
		return models.Item{}, &ValidationError{Field: "title", Msg: "title is required"}
	}

	var (
		it    models.Item
		opErr error
	)
	err := s.do(func() {
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		if categoryID != nil && s.state.categoryIndex(*categoryID) < 0 {
			opErr = &ValidationError{Field: "category", Msg: "not found"}
			return
		}
		if assignedTo != nil && !s.memberExistsLocked(*assignedTo) {
			opErr = &ValidationError{Field: "assignee", Msg: "not a member"}
			return
		}

		it = models.Item{
			ID:           primitive.NewObjectID(),
			WorkspaceID:  s.state.workspace.ID,
			CategoryID:   categoryID,
			Title:        title,
			AssignedTo:   assignedTo,
			CreatorEmail: s.state.profile.Email,
			CreatedAt:    time.Now().UTC(),
		}
		if s.state.itemMatchesFilter(it) {
			s.state.items = append([]models.Item{it}, s.state.items...)
		}

		id := it.ID
		insert := it
		token := s.claimToken(id)
		s.spawnWrite("add item", func(ctx context.Context) error {
			_, err := s.cfg.Items.Insert(ctx, insert)
			return err
		}, func() {
			if !s.tokenCurrent(id, token) {
				return
			}
			s.state.removeItem(id)
		})
	})
	if err != nil {
		return models.Item{}, err
	}
	return it, opErr
}

// ToggleItem flips the completion flag. The rollback snapshot is the
// single changed field.
func (s *Session) ToggleItem(id primitive.ObjectID) error {
	var opErr error
	err := s.do(func() {
		i := s.state.itemIndex(id)
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		if i < 0 {
			opErr = &ValidationError{Field: "item", Msg: "not found"}
			return
		}
		prev := s.state.items[i].Completed
		next := !prev
		s.state.items[i].Completed = next

		token := s.claimToken(id)
		s.spawnWrite("toggle item", func(ctx context.Context) error {
			return s.cfg.Items.SetCompleted(ctx, id, next)
		}, func() {
			if !s.tokenCurrent(id, token) {
				return
			}
			if j := s.state.itemIndex(id); j >= 0 {
				s.state.items[j].Completed = prev
			}
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

// SetItemTitle edits the title, snapshotting only the prior title.
func (s *Session) SetItemTitle(id primitive.ObjectID, title string) error {
	title = htmlsanitize.Strip(title)
	if title == "" {
		return &ValidationError{Field: "title", Msg: "title is required"}
	}

	var opErr error
	err := s.do(func() {
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		i := s.state.itemIndex(id)
		if i < 0 {
			opErr = &ValidationError{Field: "item", Msg: "not found"}
			return
		}
		prev := s.state.items[i].Title
		s.state.items[i].Title = title

		token := s.claimToken(id)
		s.spawnWrite("edit item title", func(ctx context.Context) error {
			return s.cfg.Items.SetTitle(ctx, id, title)
		}, func() {
			if !s.tokenCurrent(id, token) {
				return
			}
			if j := s.state.itemIndex(id); j >= 0 {
				s.state.items[j].Title = prev
			}
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

// AssignItem sets or clears (nil) the item's assignee.
func (s *Session) AssignItem(id primitive.ObjectID, assignedTo *string) error {
	var opErr error
	err := s.do(func() {
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		i := s.state.itemIndex(id)
		if i < 0 {
			opErr = &ValidationError{Field: "item", Msg: "not found"}
			return
		}
		if assignedTo != nil && !s.memberExistsLocked(*assignedTo) {
			opErr = &ValidationError{Field: "assignee", Msg: "not a member"}
			return
		}
		prev := s.state.items[i].AssignedTo
		s.state.items[i].AssignedTo = assignedTo

		token := s.claimToken(id)
		s.spawnWrite("assign item", func(ctx context.Context) error {
			return s.cfg.Items.SetAssignee(ctx, id, assignedTo)
		}, func() {
			if !s.tokenCurrent(id, token) {
				return
			}
			if j := s.state.itemIndex(id); j >= 0 {
				s.state.items[j].AssignedTo = prev
			}
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

// DeleteItem removes the item, publishes the advisory delete, and issues
// the remote delete. The rollback snapshot is the full record plus its
// list position so a failed delete reinserts where it was.
func (s *Session) DeleteItem(id primitive.ObjectID) error {
	var opErr error
	err := s.do(func() {
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		i := s.state.itemIndex(id)
		if i < 0 {
			opErr = &ValidationError{Field: "item", Msg: "not found"}
			return
		}
		snapshot := s.state.items[i]
		position := i
		s.state.removeItem(id)

		if s.cfg.Broadcast != nil {
			s.cfg.Broadcast.Publish(s.state.workspace.ID, id)
		}

		token := s.claimToken(id)
		s.spawnWrite("delete item", func(ctx context.Context) error {
			_, err := s.cfg.Items.Delete(ctx, id)
			return err
		}, func() {
			if !s.tokenCurrent(id, token) {
				return
			}
			s.state.insertItemAt(snapshot, position)
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

// AddCategory creates a category optimistically with a pre-generated id.
func (s *Session) AddCategory(name string) (models.Category, error) {
	name = htmlsanitize.Strip(name)
	if name == "" {
		return models.Category{}, &ValidationError{Field: "name", Msg: "name is required"}
	}

	var (
		c     models.Category
		opErr error
	)
	err := s.do(func() {
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		c = models.Category{
			ID:          primitive.NewObjectID(),
			WorkspaceID: s.state.workspace.ID,
			Name:        name,
			CreatedAt:   time.Now().UTC(),
		}
		s.state.categories = append([]models.Category{c}, s.state.categories...)

		id := c.ID
		insert := c
		token := s.claimToken(id)
		s.spawnWrite("add category", func(ctx context.Context) error {
			_, err := s.cfg.Categories.Insert(ctx, insert)
			return err
		}, func() {
			if !s.tokenCurrent(id, token) {
				return
			}
			if j := s.state.categoryIndex(id); j >= 0 {
				s.state.categories = append(s.state.categories[:j], s.state.categories[j+1:]...)
			}
		})
	})
	if err != nil {
		return models.Category{}, err
	}
	return c, opErr
}

// DeleteCategory removes the category; its items drop their category
// reference and become uncategorized, never deleted. The remote side
// clears references first, then deletes the row; a failure between the
// two surfaces as PartialFailure.
func (s *Session) DeleteCategory(id primitive.ObjectID) error {
	var opErr error
	err := s.do(func() {
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		i := s.state.categoryIndex(id)
		if i < 0 {
			opErr = &ValidationError{Field: "category", Msg: "not found"}
			return
		}
		snapshot := s.state.categories[i]
		position := i
		var detached []primitive.ObjectID
		for j := range s.state.items {
			if s.state.items[j].CategoryID != nil && *s.state.items[j].CategoryID == id {
				detached = append(detached, s.state.items[j].ID)
				s.state.items[j].CategoryID = nil
			}
		}
		filterWasSet := s.state.categoryFilter != nil && *s.state.categoryFilter == id
		if filterWasSet {
			s.state.categoryFilter = nil
		}
		s.state.categories = append(s.state.categories[:i], s.state.categories[i+1:]...)

		restoreCategory := func() {
			if position > len(s.state.categories) {
				position = len(s.state.categories)
			}
			s.state.categories = append(s.state.categories, models.Category{})
			copy(s.state.categories[position+1:], s.state.categories[position:])
			s.state.categories[position] = snapshot
		}
		restoreRefs := func() {
			for _, itemID := range detached {
				if j := s.state.itemIndex(itemID); j >= 0 {
					ref := id
					s.state.items[j].CategoryID = &ref
				}
			}
		}

		token := s.claimToken(id)
		s.writes.Add(1)
		go func() {
			defer s.writes.Done()
			ctx, cancel := s.writeContext()
			defer cancel()

			if _, err := s.cfg.Items.ClearCategory(ctx, id); err != nil {
				s.post(func() {
					if !s.tokenCurrent(id, token) {
						return
					}
					restoreCategory()
					restoreRefs()
					if filterWasSet {
						ref := id
						s.state.categoryFilter = &ref
					}
					s.notify(&RemoteWriteError{Op: "delete category", Err: err})
				})
				return
			}
			if _, err := s.cfg.Categories.Delete(ctx, id); err != nil {
				// References are already cleared remotely; only the
				// category row survives, so restore just that.
				s.post(func() {
					if s.tokenCurrent(id, token) {
						restoreCategory()
					}
					s.notify(&PartialFailure{Primary: "category item detachment", Cleanup: "category deletion", Err: err})
				})
			}
		}()

		if filterWasSet {
			s.reloadItemsAsync()
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// RenameWorkspace renames the active workspace optimistically.
func (s *Session) RenameWorkspace(name string) error {
	name = htmlsanitize.Strip(name)
	if name == "" {
		return &ValidationError{Field: "name", Msg: "name is required"}
	}

	var opErr error
	err := s.do(func() {
		if s.state.workspace == nil {
			opErr = ErrNoActiveWorkspace
			return
		}
		id := s.state.workspace.ID
		prev := s.state.workspace.Name
		s.state.workspace.Name = name
		s.renameKnownLocked(id, name)

		token := s.claimToken(id)
		s.spawnWrite("rename workspace", func(ctx context.Context) error {
			return s.cfg.Workspaces.Rename(ctx, id, name)
		}, func() {
			if !s.tokenCurrent(id, token) {
				return
			}
			if s.state.workspace != nil && s.state.workspace.ID == id {
				s.state.workspace.Name = prev
			}
			s.renameKnownLocked(id, prev)
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// SetOwnColor overrides the caller's member color. The explicit color
// persists on the profile and wins over the palette fallback.
func (s *Session) SetOwnColor(color string) error {
	if !hexColorRe.MatchString(color) {
		return &ValidationError{Field: "color", Msg: "must be a #rrggbb hex color"}
	}

	var opErr error
	err := s.do(func() {
		if s.state.profile == nil {
			opErr = ErrNotAuthenticated
			return
		}
		profileID := s.state.profile.ID
		prev := s.state.profile.Color
		next := color
		s.state.profile.Color = &next
		s.setMemberColorLocked(profileID, &next)

		// Token keyed by a synthetic id derived from the profile; profile
		// ids are strings, item tokens are ObjectIDs, so hash into one.
		tokenKey := tokenKeyForProfile(profileID)
		token := s.claimToken(tokenKey)
		s.spawnWrite("set color", func(ctx context.Context) error {
			return s.cfg.Profiles.SetColor(ctx, profileID, &next)
		}, func() {
			if !s.tokenCurrent(tokenKey, token) {
				return
			}
			if s.state.profile != nil && s.state.profile.ID == profileID {
				s.state.profile.Color = prev
			}
			s.setMemberColorLocked(profileID, prev)
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

func (s *Session) memberExistsLocked(display string) bool {
	for _, m := range s.state.members {
		if m.DisplayValue == display {
			return true
		}
	}
	return false
}

func (s *Session) setMemberColorLocked(profileID string, color *string) {
	for i := range s.state.members {
		if s.state.members[i].Profile.ID == profileID {
			s.state.members[i].Profile.Color = color
			break
		}
	}
	s.rebuildMembersLocked()
}

func (s *Session) renameKnownLocked(id primitive.ObjectID, name string) {
	for i := range s.state.known {
		if s.state.known[i].ID == id {
			s.state.known[i].Name = name
			return
		}
	}
}

func (s *Session) writeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeouts.Medium())
}

func tokenKeyForProfile(profileID string) primitive.ObjectID {
	var key primitive.ObjectID
	copy(key[:], profileID)
	return key
}
