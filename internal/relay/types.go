package relay

import (
	"encoding/json"
	"strings"
)

const (
	EventJoinList    = "join-list"
	EventLeaveList   = "leave-list"
	EventTodoAdded   = "todo-added"
	EventTodoUpdated = "todo-updated"
	EventTodoDeleted = "todo-deleted"
	EventListUpdated = "list-updated"
)

const roomPrefix = "list-"

// Envelope is one websocket text frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Frame is a relayed event on its way to the members of Room.
// Sender is empty for frames that arrived from another relay instance.
type Frame struct {
	Room   string
	Sender string
	Data   []byte
}

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Memberships int `json:"memberships"`
}

// RoomForList returns the room key for a todo list.
func RoomForList(listID string) string {
	return roomPrefix + listID
}

// ListFromRoom is the inverse of RoomForList.
func ListFromRoom(room string) (string, bool) {
	if !strings.HasPrefix(room, roomPrefix) {
		return "", false
	}
	return strings.TrimPrefix(room, roomPrefix), true
}

// routingField names the payload field an event is routed by. Todo events
// are keyed by the owning list (listId), list events by the list's own _id.
func routingField(event string) (string, bool) {
	switch event {
	case EventTodoAdded, EventTodoUpdated, EventTodoDeleted:
		return "listId", true
	case EventListUpdated:
		return "_id", true
	}
	return "", false
}

// RoomForEvent derives the target room of a relayed event. Only the routing
// field is decoded; the rest of the payload is never inspected.
// ok is false for events that are not relayed or carry no usable routing field.
func RoomForEvent(event string, data json.RawMessage) (room string, ok bool) {
	field, ok := routingField(event)
	if !ok || len(data) == 0 {
		return "", false
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return "", false
	}
	raw, ok := fields[field]
	if !ok {
		return "", false
	}

	var listID string
	if json.Unmarshal(raw, &listID) != nil || listID == "" {
		return "", false
	}
	return RoomForList(listID), true
}

// IsRelayed reports whether event belongs to the relayed vocabulary.
func IsRelayed(event string) bool {
	switch event {
	case EventTodoAdded, EventTodoUpdated, EventTodoDeleted, EventListUpdated:
		return true
	}
	return false
}
