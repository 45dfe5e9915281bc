package engine

// In-memory fakes for the store, feed, broadcast, mail, and prefs ports.
// Each store supports per-operation failure injection so rollback paths
// can be driven deterministically.

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	membershipstore "github.com/raaulc/shared-tasks/internal/app/store/memberships"
	profilestore "github.com/raaulc/shared-tasks/internal/app/store/profiles"
	workspacestore "github.com/raaulc/shared-tasks/internal/app/store/workspaces"
	"github.com/raaulc/shared-tasks/internal/domain/models"
)

type fakeProfiles struct {
	mu   sync.Mutex
	byID map[string]models.Profile

	failGet         error
	failCreate      error
	failSetActive   error
	failSetColor    error
	failSetFullName error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byID: make(map[string]models.Profile)}
}

func (f *fakeProfiles) Get(_ context.Context, id string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return models.Profile{}, f.failGet
	}
	p, ok := f.byID[id]
	if !ok {
		return models.Profile{}, profilestore.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Create(_ context.Context, p models.Profile) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return models.Profile{}, f.failCreate
	}
	if _, ok := f.byID[p.ID]; ok {
		return models.Profile{}, profilestore.ErrDuplicateProfile
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeProfiles) SetFullName(_ context.Context, id, fullName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetFullName != nil {
		return f.failSetFullName
	}
	p, ok := f.byID[id]
	if !ok {
		return profilestore.ErrNotFound
	}
	p.FullName = fullName
	f.byID[id] = p
	return nil
}

func (f *fakeProfiles) SetActiveWorkspace(_ context.Context, id string, workspaceID *primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetActive != nil {
		return f.failSetActive
	}
	p, ok := f.byID[id]
	if !ok {
		return profilestore.ErrNotFound
	}
	p.ActiveWorkspaceID = workspaceID
	f.byID[id] = p
	return nil
}

func (f *fakeProfiles) SetColor(_ context.Context, id string, color *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetColor != nil {
		return f.failSetColor
	}
	p, ok := f.byID[id]
	if !ok {
		return profilestore.ErrNotFound
	}
	p.Color = color
	f.byID[id] = p
	return nil
}

func (f *fakeProfiles) FindByIDs(_ context.Context, ids []string) ([]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Profile
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeWorkspaces struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Workspace

	failRename error
	createErrs []error // popped per Create call before normal handling
}

func newFakeWorkspaces() *fakeWorkspaces {
	return &fakeWorkspaces{byID: make(map[primitive.ObjectID]models.Workspace)}
}

func (f *fakeWorkspaces) Create(_ context.Context, ws models.Workspace) (models.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return models.Workspace{}, err
		}
	}
	for _, existing := range f.byID {
		if existing.InviteCode == ws.InviteCode {
			return models.Workspace{}, workspacestore.ErrDuplicateInviteCode
		}
	}
	ws.ID = primitive.NewObjectID()
	ws.CreatedAt = time.Now().UTC()
	ws.UpdatedAt = ws.CreatedAt
	f.byID[ws.ID] = ws
	return ws, nil
}

func (f *fakeWorkspaces) GetByID(_ context.Context, id primitive.ObjectID) (models.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.byID[id]
	if !ok {
		return models.Workspace{}, workspacestore.ErrNotFound
	}
	return ws, nil
}

func (f *fakeWorkspaces) GetByInviteCode(_ context.Context, code string) (models.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ws := range f.byID {
		if ws.InviteCode == code {
			return ws, nil
		}
	}
	return models.Workspace{}, workspacestore.ErrNotFound
}

func (f *fakeWorkspaces) Rename(_ context.Context, id primitive.ObjectID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRename != nil {
		return f.failRename
	}
	ws, ok := f.byID[id]
	if !ok {
		return workspacestore.ErrNotFound
	}
	ws.Name = name
	f.byID[id] = ws
	return nil
}

func (f *fakeWorkspaces) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Workspace
	for _, id := range ids {
		if ws, ok := f.byID[id]; ok {
			out = append(out, ws)
		}
	}
	return out, nil
}

type fakeMemberships struct {
	mu   sync.Mutex
	list []models.Membership

	failAdd    error
	failRemove error
}

func newFakeMemberships() *fakeMemberships { return &fakeMemberships{} }

func (f *fakeMemberships) Add(_ context.Context, workspaceID primitive.ObjectID, profileID string) (models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd != nil {
		return models.Membership{}, f.failAdd
	}
	for _, m := range f.list {
		if m.WorkspaceID == workspaceID && m.ProfileID == profileID {
			return models.Membership{}, membershipstore.ErrDuplicateMembership
		}
	}
	m := models.Membership{
		ID:          primitive.NewObjectID(),
		WorkspaceID: workspaceID,
		ProfileID:   profileID,
		CreatedAt:   time.Now().UTC(),
	}
	f.list = append(f.list, m)
	return m, nil
}

func (f *fakeMemberships) Remove(_ context.Context, workspaceID primitive.ObjectID, profileID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemove != nil {
		return 0, f.failRemove
	}
	for i, m := range f.list {
		if m.WorkspaceID == workspaceID && m.ProfileID == profileID {
			f.list = append(f.list[:i], f.list[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeMemberships) Exists(_ context.Context, workspaceID primitive.ObjectID, profileID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.list {
		if m.WorkspaceID == workspaceID && m.ProfileID == profileID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMemberships) ListByProfile(_ context.Context, profileID string) ([]models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Membership
	for _, m := range f.list {
		if m.ProfileID == profileID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemberships) ListByWorkspace(_ context.Context, workspaceID primitive.ObjectID) ([]models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Membership
	for _, m := range f.list {
		if m.WorkspaceID == workspaceID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeCategories struct {
	mu   sync.Mutex
	list []models.Category

	failInsert error
	failDelete error
}

func newFakeCategories() *fakeCategories { return &fakeCategories{} }

func (f *fakeCategories) Insert(_ context.Context, c models.Category) (models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert != nil {
		return models.Category{}, f.failInsert
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	f.list = append(f.list, c)
	return c, nil
}

func (f *fakeCategories) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return 0, f.failDelete
	}
	for i, c := range f.list {
		if c.ID == id {
			f.list = append(f.list[:i], f.list[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeCategories) ListByWorkspace(_ context.Context, workspaceID primitive.ObjectID) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Category
	for i := len(f.list) - 1; i >= 0; i-- {
		if f.list[i].WorkspaceID == workspaceID {
			out = append(out, f.list[i])
		}
	}
	return out, nil
}

type fakeItems struct {
	mu   sync.Mutex
	list []models.Item

	failInsert        error
	failSetCompleted  error
	failSetTitle      error
	failSetAssignee   error
	failDelete        error
	failUnassign      error
	failClearCategory error
}

func newFakeItems() *fakeItems { return &fakeItems{} }

func (f *fakeItems) Insert(_ context.Context, it models.Item) (models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert != nil {
		return models.Item{}, f.failInsert
	}
	if it.ID.IsZero() {
		it.ID = primitive.NewObjectID()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	f.list = append(f.list, it)
	return it, nil
}

func (f *fakeItems) get(id primitive.ObjectID) (int, bool) {
	for i := range f.list {
		if f.list[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (f *fakeItems) SetCompleted(_ context.Context, id primitive.ObjectID, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetCompleted != nil {
		return f.failSetCompleted
	}
	if i, ok := f.get(id); ok {
		f.list[i].Completed = completed
	}
	return nil
}

func (f *fakeItems) SetTitle(_ context.Context, id primitive.ObjectID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetTitle != nil {
		return f.failSetTitle
	}
	if i, ok := f.get(id); ok {
		f.list[i].Title = title
	}
	return nil
}

func (f *fakeItems) SetAssignee(_ context.Context, id primitive.ObjectID, assignedTo *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetAssignee != nil {
		return f.failSetAssignee
	}
	if i, ok := f.get(id); ok {
		f.list[i].AssignedTo = assignedTo
	}
	return nil
}

func (f *fakeItems) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return 0, f.failDelete
	}
	if i, ok := f.get(id); ok {
		f.list = append(f.list[:i], f.list[i+1:]...)
		return 1, nil
	}
	return 0, nil
}

func (f *fakeItems) ListByWorkspace(_ context.Context, workspaceID primitive.ObjectID, categoryID *primitive.ObjectID) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Item
	for i := len(f.list) - 1; i >= 0; i-- {
		it := f.list[i]
		if it.WorkspaceID != workspaceID {
			continue
		}
		if categoryID != nil && (it.CategoryID == nil || *it.CategoryID != *categoryID) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeItems) UnassignMember(_ context.Context, workspaceID primitive.ObjectID, assignedTo string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUnassign != nil {
		return 0, f.failUnassign
	}
	var n int64
	for i := range f.list {
		if f.list[i].WorkspaceID == workspaceID && f.list[i].AssignedTo != nil && *f.list[i].AssignedTo == assignedTo {
			f.list[i].AssignedTo = nil
			n++
		}
	}
	return n, nil
}

func (f *fakeItems) ClearCategory(_ context.Context, categoryID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failClearCategory != nil {
		return 0, f.failClearCategory
	}
	var n int64
	for i := range f.list {
		if f.list[i].CategoryID != nil && *f.list[i].CategoryID == categoryID {
			f.list[i].CategoryID = nil
			n++
		}
	}
	return n, nil
}

type feedSub struct {
	workspaceID primitive.ObjectID
	table       Table
	ch          chan Event
	closed      bool
}

type fakeFeed struct {
	mu   sync.Mutex
	subs []*feedSub
}

func newFakeFeed() *fakeFeed { return &fakeFeed{} }

func (f *fakeFeed) Subscribe(ctx context.Context, workspaceID primitive.ObjectID, table Table) (<-chan Event, error) {
	sub := &feedSub{workspaceID: workspaceID, table: table, ch: make(chan Event, 64)}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		sub.closed = true
		close(sub.ch)
		f.mu.Unlock()
	}()
	return sub.ch, nil
}

// Emit delivers the event to every live subscription watching its table.
func (f *fakeFeed) Emit(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if !sub.closed && sub.table == ev.Table {
			sub.ch <- ev
		}
	}
}

type broadcastSub struct {
	workspaceID primitive.ObjectID
	ch          chan primitive.ObjectID
	closed      bool
}

type fakeBroadcast struct {
	mu   sync.Mutex
	subs []*broadcastSub
}

func newFakeBroadcast() *fakeBroadcast { return &fakeBroadcast{} }

func (f *fakeBroadcast) Publish(workspaceID, itemID primitive.ObjectID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if !sub.closed && sub.workspaceID == workspaceID {
			sub.ch <- itemID
		}
	}
}

func (f *fakeBroadcast) Subscribe(ctx context.Context, workspaceID primitive.ObjectID) <-chan primitive.ObjectID {
	sub := &broadcastSub{workspaceID: workspaceID, ch: make(chan primitive.ObjectID, 64)}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		sub.closed = true
		close(sub.ch)
		f.mu.Unlock()
	}()
	return sub.ch
}

type sentInvite struct {
	Recipient     string
	Link          string
	WorkspaceName string
}

type fakeInvites struct {
	mu   sync.Mutex
	sent []sentInvite
	fail error
}

func (f *fakeInvites) SendInvite(recipient, inviteLink, workspaceName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentInvite{recipient, inviteLink, workspaceName})
	return nil
}

type fakePrefs struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakePrefs() *fakePrefs { return &fakePrefs{data: make(map[string]string)} }

func (f *fakePrefs) LastCategory(workspaceID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[workspaceID]
}

func (f *fakePrefs) SetLastCategory(workspaceID, categoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if categoryID == "" {
		delete(f.data, workspaceID)
		return nil
	}
	f.data[workspaceID] = categoryID
	return nil
}
