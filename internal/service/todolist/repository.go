package todolist

import (
	"context"
	"errors"

	"todo-app-backend/internal/database"
	"todo-app-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("todolist repository: not found")

type Repository interface {
	CreateList(ctx context.Context, list model.ListItem) error
	GetList(ctx context.Context, listID string) (model.ListItem, error)
	GetLists(ctx context.Context, listIDs []string) ([]model.ListItem, error)
	ListsByOwner(ctx context.Context, ownerID string) ([]model.ListItem, error)
	AdjustListCounters(ctx context.Context, listID string, taskDelta, completedDelta int) (model.ListItem, error)
	DeleteList(ctx context.Context, listID string) error

	PutShare(ctx context.Context, share model.ShareItem) error
	GetShare(ctx context.Context, userID, listID string) (model.ShareItem, error)
	SharesForUser(ctx context.Context, userID string) ([]model.ShareItem, error)
	SharesForList(ctx context.Context, listID string) ([]model.ShareItem, error)
	DeleteShares(ctx context.Context, shares []model.ShareItem) error

	PutTodo(ctx context.Context, todo model.TodoItem) error
	GetTodo(ctx context.Context, listID, todoID string) (model.TodoItem, error)
	TodosForList(ctx context.Context, listID string) ([]model.TodoItem, error)
	DeleteTodo(ctx context.Context, listID, todoID string) error
	DeleteTodos(ctx context.Context, listID string, todoIDs []string) error

	FindUserByEmail(ctx context.Context, email string) (model.UserItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateList(ctx context.Context, list model.ListItem) error {
	return r.db.Client.PutItem(ctx, model.ListsTable, list)
}

func (r *DynamoRepository) GetList(ctx context.Context, listID string) (model.ListItem, error) {
	var list model.ListItem
	if err := r.db.Client.GetItem(ctx, model.ListsTable, database.StringKey("listId", listID), &list); err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return model.ListItem{}, ErrNotFound
		}
		return model.ListItem{}, err
	}
	return list, nil
}

func (r *DynamoRepository) GetLists(ctx context.Context, listIDs []string) ([]model.ListItem, error) {
	items, err := r.db.Client.BatchGetByKeys(ctx, model.ListsTable, "listId", listIDs)
	if err != nil {
		return nil, err
	}
	return unmarshalAll[model.ListItem](items)
}

func (r *DynamoRepository) ListsByOwner(ctx context.Context, ownerID string) ([]model.ListItem, error) {
	items, err := r.db.Client.QueryAll(ctx, database.Query{
		Table:        model.ListsTable,
		Index:        model.ListsByOwnerIndex,
		KeyCondition: "userId = :userId",
		Values: map[string]types.AttributeValue{
			":userId": database.S(ownerID),
		},
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	return unmarshalAll[model.ListItem](items)
}

func (r *DynamoRepository) AdjustListCounters(ctx context.Context, listID string, taskDelta, completedDelta int) (model.ListItem, error) {
	var list model.ListItem
	err := r.db.Client.UpdateItem(ctx, database.Update{
		Table:      model.ListsTable,
		Key:        database.StringKey("listId", listID),
		Expression: "ADD taskCount :tasks, completedTaskCount :completed",
		Condition:  "attribute_exists(listId)",
		Values: map[string]types.AttributeValue{
			":tasks":     database.N(taskDelta),
			":completed": database.N(completedDelta),
		},
	}, &list)
	if err != nil {
		if errors.Is(err, database.ErrConditionFailed) {
			return model.ListItem{}, ErrNotFound
		}
		return model.ListItem{}, err
	}
	return list, nil
}

func (r *DynamoRepository) DeleteList(ctx context.Context, listID string) error {
	return r.db.Client.DeleteItem(ctx, model.ListsTable, database.StringKey("listId", listID))
}

func (r *DynamoRepository) PutShare(ctx context.Context, share model.ShareItem) error {
	return r.db.Client.PutItem(ctx, model.ListSharesTable, share)
}

func (r *DynamoRepository) GetShare(ctx context.Context, userID, listID string) (model.ShareItem, error) {
	var share model.ShareItem
	key := database.StringKey("userId", userID, "listId", listID)
	if err := r.db.Client.GetItem(ctx, model.ListSharesTable, key, &share); err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return model.ShareItem{}, ErrNotFound
		}
		return model.ShareItem{}, err
	}
	return share, nil
}

func (r *DynamoRepository) SharesForUser(ctx context.Context, userID string) ([]model.ShareItem, error) {
	items, err := r.db.Client.QueryAll(ctx, database.Query{
		Table:        model.ListSharesTable,
		KeyCondition: "userId = :userId",
		Values: map[string]types.AttributeValue{
			":userId": database.S(userID),
		},
	})
	if err != nil {
		return nil, err
	}
	return unmarshalAll[model.ShareItem](items)
}

func (r *DynamoRepository) SharesForList(ctx context.Context, listID string) ([]model.ShareItem, error) {
	items, err := r.db.Client.QueryAll(ctx, database.Query{
		Table:        model.ListSharesTable,
		Index:        model.SharesByListIndex,
		KeyCondition: "listId = :listId",
		Values: map[string]types.AttributeValue{
			":listId": database.S(listID),
		},
	})
	if err != nil {
		return nil, err
	}
	return unmarshalAll[model.ShareItem](items)
}

func (r *DynamoRepository) DeleteShares(ctx context.Context, shares []model.ShareItem) error {
	keys := make([]database.Key, 0, len(shares))
	for _, share := range shares {
		keys = append(keys, database.StringKey("userId", share.UserID, "listId", share.ListID))
	}
	return r.db.Client.BatchDeleteItems(ctx, model.ListSharesTable, keys)
}

func (r *DynamoRepository) PutTodo(ctx context.Context, todo model.TodoItem) error {
	return r.db.Client.PutItem(ctx, model.TodosTable, todo)
}

func (r *DynamoRepository) GetTodo(ctx context.Context, listID, todoID string) (model.TodoItem, error) {
	var todo model.TodoItem
	key := database.StringKey("listId", listID, "todoId", todoID)
	if err := r.db.Client.GetItem(ctx, model.TodosTable, key, &todo); err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return model.TodoItem{}, ErrNotFound
		}
		return model.TodoItem{}, err
	}
	return todo, nil
}

func (r *DynamoRepository) TodosForList(ctx context.Context, listID string) ([]model.TodoItem, error) {
	items, err := r.db.Client.QueryAll(ctx, database.Query{
		Table:        model.TodosTable,
		KeyCondition: "listId = :listId",
		Values: map[string]types.AttributeValue{
			":listId": database.S(listID),
		},
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	return unmarshalAll[model.TodoItem](items)
}

func (r *DynamoRepository) DeleteTodo(ctx context.Context, listID, todoID string) error {
	return r.db.Client.DeleteItem(ctx, model.TodosTable, database.StringKey("listId", listID, "todoId", todoID))
}

func (r *DynamoRepository) DeleteTodos(ctx context.Context, listID string, todoIDs []string) error {
	keys := make([]database.Key, 0, len(todoIDs))
	for _, id := range todoIDs {
		keys = append(keys, database.StringKey("listId", listID, "todoId", id))
	}
	return r.db.Client.BatchDeleteItems(ctx, model.TodosTable, keys)
}

func (r *DynamoRepository) FindUserByEmail(ctx context.Context, email string) (model.UserItem, error) {
	items, err := r.db.Client.QueryAll(ctx, database.Query{
		Table:        model.UsersTable,
		Index:        model.UsersByEmailIndex,
		KeyCondition: "email = :email",
		Values: map[string]types.AttributeValue{
			":email": database.S(email),
		},
	})
	if err != nil {
		return model.UserItem{}, err
	}
	if len(items) == 0 {
		return model.UserItem{}, ErrNotFound
	}

	var user model.UserItem
	if err := attributevalue.UnmarshalMap(items[0], &user); err != nil {
		return model.UserItem{}, err
	}
	return user, nil
}

func unmarshalAll[T any](items []map[string]types.AttributeValue) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
