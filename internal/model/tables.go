package model

const (
	UsersTable      = "Users"
	ListsTable      = "Lists"
	ListSharesTable = "ListShares"
	TodosTable      = "Todos"
)

// Secondary indexes.
const (
	UsersByEmailIndex = "byEmail"
	ListsByOwnerIndex = "byOwner"
	SharesByListIndex = "byList"
)

type UserItem struct {
	UserID       string `dynamodbav:"userId"`
	Email        string `dynamodbav:"email"`
	Name         string `dynamodbav:"name"`
	PasswordHash string `dynamodbav:"passwordHash"`
	CreatedAt    string `dynamodbav:"createdAt"`
}

// ListItem is keyed by listId. OwnerID is the partition key of byOwner,
// CreatedAt its sort key.
type ListItem struct {
	ListID             string `dynamodbav:"listId"`
	OwnerID            string `dynamodbav:"userId"`
	Name               string `dynamodbav:"name"`
	TaskCount          int    `dynamodbav:"taskCount"`
	CompletedTaskCount int    `dynamodbav:"completedTaskCount"`
	CreatedAt          string `dynamodbav:"createdAt"`
}

// ShareItem grants one user access to one list. Keyed by (userId, listId);
// byList is keyed by listId.
type ShareItem struct {
	UserID     string     `dynamodbav:"userId"`
	ListID     string     `dynamodbav:"listId"`
	Email      string     `dynamodbav:"email"`
	Permission Permission `dynamodbav:"permission"`
	CreatedAt  string     `dynamodbav:"createdAt"`
}

// TodoItem is keyed by (listId, todoId). Todo ids are ULIDs, so sorting on
// todoId orders by creation time.
type TodoItem struct {
	ListID    string   `dynamodbav:"listId"`
	TodoID    string   `dynamodbav:"todoId"`
	UserID    string   `dynamodbav:"userId"`
	TaskName  string   `dynamodbav:"taskName"`
	Type      bool     `dynamodbav:"type"`
	Status    Status   `dynamodbav:"status"`
	Priority  Priority `dynamodbav:"priority"`
	CreatedAt string   `dynamodbav:"createdAt"`
}
