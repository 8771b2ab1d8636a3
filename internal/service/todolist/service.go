package todolist

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"todo-app-backend/internal/database"
	"todo-app-backend/internal/model"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// timeLayout matches the millisecond ISO-8601 strings browsers produce.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now)
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// Lists returns the lists the caller owns plus the ones shared with them,
// newest first.
func (s *Service) Lists(ctx context.Context, identity Identity) ([]ListResult, error) {
	if identity.UserID == "" {
		return nil, newError(ErrorCodeValidation, "missing user identity", nil)
	}

	owned, err := s.repo.ListsByOwner(ctx, identity.UserID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to fetch lists", err)
	}

	shares, err := s.repo.SharesForUser(ctx, identity.UserID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to fetch shared lists", err)
	}

	lists := owned
	if len(shares) > 0 {
		ids := make([]string, 0, len(shares))
		for _, share := range shares {
			ids = append(ids, share.ListID)
		}
		shared, err := s.repo.GetLists(ctx, ids)
		if err != nil {
			return nil, newError(ErrorCodeInternal, "failed to fetch shared lists", err)
		}
		lists = append(lists, shared...)
	}

	sort.SliceStable(lists, func(i, j int) bool {
		if lists[i].CreatedAt != lists[j].CreatedAt {
			return lists[i].CreatedAt > lists[j].CreatedAt
		}
		return lists[i].ListID > lists[j].ListID
	})

	results := make([]ListResult, 0, len(lists))
	for _, list := range lists {
		collaborators, err := s.repo.SharesForList(ctx, list.ListID)
		if err != nil {
			return nil, newError(ErrorCodeInternal, "failed to fetch collaborators", err)
		}
		results = append(results, ListResult{List: list, Shares: collaborators})
	}

	return results, nil
}

func (s *Service) CreateList(ctx context.Context, identity Identity, name string) (ListResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ListResult{}, newError(ErrorCodeValidation, "List name is required", nil)
	}
	if len([]rune(name)) > maxListNameLength {
		return ListResult{}, newError(ErrorCodeValidation, "List name is too long", nil)
	}

	list := model.ListItem{
		ListID:    uuid.NewString(),
		OwnerID:   identity.UserID,
		Name:      name,
		CreatedAt: s.timestamp(),
	}

	if err := s.repo.CreateList(ctx, list); err != nil {
		return ListResult{}, newError(ErrorCodeInternal, "failed to create list", err)
	}

	return ListResult{List: list, Shares: []model.ShareItem{}}, nil
}

// DeleteList removes the list together with its todos and share records.
// Only the owner may delete.
func (s *Service) DeleteList(ctx context.Context, identity Identity, listID string) error {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return newError(ErrorCodeValidation, "List ID is required", nil)
	}

	acc, err := s.resolveAccess(ctx, identity, listID)
	if err != nil {
		return err
	}
	if !acc.owner {
		return newError(ErrorCodeForbidden, "Only the owner can delete a list", nil)
	}

	todos, err := s.repo.TodosForList(ctx, listID)
	if err != nil {
		return newError(ErrorCodeInternal, "failed to fetch todos", err)
	}
	if len(todos) > 0 {
		ids := make([]string, 0, len(todos))
		for _, todo := range todos {
			ids = append(ids, todo.TodoID)
		}
		if err := s.repo.DeleteTodos(ctx, listID, ids); err != nil {
			return newError(ErrorCodeInternal, "failed to delete todos", err)
		}
	}

	shares, err := s.repo.SharesForList(ctx, listID)
	if err != nil {
		return newError(ErrorCodeInternal, "failed to fetch collaborators", err)
	}
	if len(shares) > 0 {
		if err := s.repo.DeleteShares(ctx, shares); err != nil {
			return newError(ErrorCodeInternal, "failed to delete shares", err)
		}
	}

	if err := s.repo.DeleteList(ctx, listID); err != nil {
		return newError(ErrorCodeInternal, "failed to delete list", err)
	}
	return nil
}

func (s *Service) Todos(ctx context.Context, identity Identity, listID string) ([]model.TodoItem, error) {
	if _, err := s.resolveAccess(ctx, identity, listID); err != nil {
		return nil, err
	}

	todos, err := s.repo.TodosForList(ctx, listID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to fetch todos", err)
	}
	return todos, nil
}

func (s *Service) CreateTodo(ctx context.Context, identity Identity, params CreateTodoParams) (TodoResult, error) {
	taskName := strings.TrimSpace(params.TaskName)
	if taskName == "" {
		return TodoResult{}, newError(ErrorCodeValidation, "Task name is required", nil)
	}
	if len([]rune(taskName)) > maxTaskNameLength {
		return TodoResult{}, newError(ErrorCodeValidation, "Task name is too long", nil)
	}

	priority := model.PriorityMedium
	if params.Priority != "" {
		priority = model.Priority(params.Priority)
		if !priority.Valid() {
			return TodoResult{}, newError(ErrorCodeValidation, "invalid priority", nil)
		}
	}

	status := model.StatusToDo
	if params.Status != "" {
		status = model.Status(params.Status)
		if !status.Valid() {
			return TodoResult{}, newError(ErrorCodeValidation, "invalid status", nil)
		}
	}

	if _, err := s.editableList(ctx, identity, params.ListID); err != nil {
		return TodoResult{}, err
	}

	now := s.now()
	todo := model.TodoItem{
		ListID:    params.ListID,
		TodoID:    ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		UserID:    identity.UserID,
		TaskName:  taskName,
		Type:      false,
		Status:    status,
		Priority:  priority,
		CreatedAt: now.UTC().Format(timeLayout),
	}

	if err := s.repo.PutTodo(ctx, todo); err != nil {
		return TodoResult{}, newError(ErrorCodeInternal, "failed to create todo", err)
	}

	list, err := s.repo.AdjustListCounters(ctx, params.ListID, 1, completedDelta(model.Status(""), status))
	if err != nil {
		return TodoResult{}, newError(ErrorCodeInternal, "failed to update list counters", err)
	}

	return TodoResult{Todo: todo, List: list}, nil
}

func (s *Service) UpdateTodo(ctx context.Context, identity Identity, params UpdateTodoParams) (TodoResult, error) {
	if params.TodoID == "" {
		return TodoResult{}, newError(ErrorCodeValidation, "Todo ID is required", nil)
	}
	if params.ListID == "" {
		return TodoResult{}, newError(ErrorCodeValidation, "List ID is required", nil)
	}

	acc, err := s.editableList(ctx, identity, params.ListID)
	if err != nil {
		return TodoResult{}, err
	}

	todo, err := s.repo.GetTodo(ctx, params.ListID, params.TodoID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TodoResult{}, newError(ErrorCodeNotFound, "Todo not found", err)
		}
		return TodoResult{}, newError(ErrorCodeInternal, "failed to fetch todo", err)
	}

	previous := todo.Status
	if params.TaskName != nil {
		name := strings.TrimSpace(*params.TaskName)
		if name == "" {
			return TodoResult{}, newError(ErrorCodeValidation, "Task name is required", nil)
		}
		if len([]rune(name)) > maxTaskNameLength {
			return TodoResult{}, newError(ErrorCodeValidation, "Task name is too long", nil)
		}
		todo.TaskName = name
	}
	if params.Status != nil {
		status := model.Status(*params.Status)
		if !status.Valid() {
			return TodoResult{}, newError(ErrorCodeValidation, "invalid status", nil)
		}
		todo.Status = status
	}
	if params.Priority != nil {
		priority := model.Priority(*params.Priority)
		if !priority.Valid() {
			return TodoResult{}, newError(ErrorCodeValidation, "invalid priority", nil)
		}
		todo.Priority = priority
	}
	if params.Type != nil {
		todo.Type = *params.Type
	}

	if err := s.repo.PutTodo(ctx, todo); err != nil {
		return TodoResult{}, newError(ErrorCodeInternal, "failed to update todo", err)
	}

	list := acc.list
	if delta := completedDelta(previous, todo.Status); delta != 0 {
		list, err = s.repo.AdjustListCounters(ctx, params.ListID, 0, delta)
		if err != nil {
			return TodoResult{}, newError(ErrorCodeInternal, "failed to update list counters", err)
		}
	}

	return TodoResult{Todo: todo, List: list}, nil
}

func (s *Service) DeleteTodo(ctx context.Context, identity Identity, listID, todoID string) (model.ListItem, error) {
	if todoID == "" {
		return model.ListItem{}, newError(ErrorCodeValidation, "Todo ID is required", nil)
	}
	if listID == "" {
		return model.ListItem{}, newError(ErrorCodeValidation, "List ID is required", nil)
	}

	if _, err := s.editableList(ctx, identity, listID); err != nil {
		return model.ListItem{}, err
	}

	todo, err := s.repo.GetTodo(ctx, listID, todoID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ListItem{}, newError(ErrorCodeNotFound, "Todo not found", err)
		}
		return model.ListItem{}, newError(ErrorCodeInternal, "failed to fetch todo", err)
	}

	if err := s.repo.DeleteTodo(ctx, listID, todoID); err != nil {
		return model.ListItem{}, newError(ErrorCodeInternal, "failed to delete todo", err)
	}

	list, err := s.repo.AdjustListCounters(ctx, listID, -1, completedDelta(todo.Status, model.Status("")))
	if err != nil {
		return model.ListItem{}, newError(ErrorCodeInternal, "failed to update list counters", err)
	}
	return list, nil
}

// ShareList grants the user registered under TargetEmail access to the list.
// The owner and existing collaborators may share.
func (s *Service) ShareList(ctx context.Context, identity Identity, params ShareParams) (model.ShareItem, error) {
	email := normalizeEmail(params.TargetEmail)
	if params.ListID == "" || email == "" {
		return model.ShareItem{}, newError(ErrorCodeValidation, "Missing required fields", nil)
	}

	permission := model.PermissionEdit
	if params.Permission != "" {
		permission = model.Permission(params.Permission)
		if !permission.Valid() {
			return model.ShareItem{}, newError(ErrorCodeValidation, "invalid permission", nil)
		}
	}

	acc, err := s.resolveAccess(ctx, identity, params.ListID)
	if err != nil {
		return model.ShareItem{}, err
	}

	target, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ShareItem{}, newError(ErrorCodeNotFound, "User with this email address not found", err)
		}
		return model.ShareItem{}, newError(ErrorCodeInternal, "failed to verify user email", err)
	}

	if target.UserID == identity.UserID {
		return model.ShareItem{}, newError(ErrorCodeValidation, "Cannot share list with yourself", nil)
	}
	if target.UserID == acc.list.OwnerID {
		return model.ShareItem{}, newError(ErrorCodeValidation, "List is already shared with this user", nil)
	}

	_, err = s.repo.GetShare(ctx, target.UserID, params.ListID)
	switch {
	case err == nil:
		return model.ShareItem{}, newError(ErrorCodeValidation, "List is already shared with this user", nil)
	case !errors.Is(err, ErrNotFound):
		return model.ShareItem{}, newError(ErrorCodeInternal, "failed to check share", err)
	}

	share := model.ShareItem{
		UserID:     target.UserID,
		ListID:     params.ListID,
		Email:      target.Email,
		Permission: permission,
		CreatedAt:  s.timestamp(),
	}
	if err := s.repo.PutShare(ctx, share); err != nil {
		return model.ShareItem{}, newError(ErrorCodeInternal, "failed to share list", err)
	}

	return share, nil
}

// UpdatePermissions changes the permission of existing collaborators.
// Entries with an unknown email or an invalid permission are skipped. It
// returns the number of shares that changed.
func (s *Service) UpdatePermissions(ctx context.Context, identity Identity, listID string, updates []PermissionUpdate) (int, error) {
	if listID == "" || updates == nil {
		return 0, newError(ErrorCodeValidation, "Missing required fields", nil)
	}

	if _, err := s.resolveAccess(ctx, identity, listID); err != nil {
		return 0, err
	}

	shares, err := s.repo.SharesForList(ctx, listID)
	if err != nil {
		return 0, newError(ErrorCodeInternal, "failed to fetch collaborators", err)
	}

	byEmail := make(map[string]model.ShareItem, len(shares))
	for _, share := range shares {
		byEmail[share.Email] = share
	}

	changed := 0
	for _, update := range updates {
		permission := model.Permission(update.Permission)
		if !permission.Valid() {
			continue
		}
		share, ok := byEmail[normalizeEmail(update.Email)]
		if !ok || share.Permission == permission {
			continue
		}

		share.Permission = permission
		if err := s.repo.PutShare(ctx, share); err != nil {
			return changed, newError(ErrorCodeInternal, "failed to update permission", err)
		}
		byEmail[share.Email] = share
		changed++
	}

	return changed, nil
}

// resolveAccess fails with not_found both for a missing list and for a
// caller with no access, so list ids cannot be probed.
func (s *Service) resolveAccess(ctx context.Context, identity Identity, listID string) (access, error) {
	if identity.UserID == "" {
		return access{}, newError(ErrorCodeValidation, "missing user identity", nil)
	}
	if listID == "" {
		return access{}, newError(ErrorCodeValidation, "List ID is required", nil)
	}

	list, err := s.repo.GetList(ctx, listID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return access{}, newError(ErrorCodeNotFound, "List not found or access denied", err)
		}
		return access{}, newError(ErrorCodeInternal, "failed to fetch list", err)
	}

	if list.OwnerID == identity.UserID {
		return access{list: list, owner: true}, nil
	}

	share, err := s.repo.GetShare(ctx, identity.UserID, listID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return access{}, newError(ErrorCodeNotFound, "List not found or access denied", err)
		}
		return access{}, newError(ErrorCodeInternal, "failed to fetch share", err)
	}

	return access{list: list, share: share}, nil
}

func (s *Service) editableList(ctx context.Context, identity Identity, listID string) (access, error) {
	acc, err := s.resolveAccess(ctx, identity, listID)
	if err != nil {
		return access{}, err
	}
	if !acc.canEdit() {
		return access{}, newError(ErrorCodeForbidden, "View permission does not allow changes", nil)
	}
	return acc, nil
}

func completedDelta(from, to model.Status) int {
	switch {
	case from != model.StatusCompleted && to == model.StatusCompleted:
		return 1
	case from == model.StatusCompleted && to != model.StatusCompleted:
		return -1
	}
	return 0
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
