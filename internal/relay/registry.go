package relay

// Registry tracks which connections are members of which rooms.
//
// A Registry is not safe for concurrent use; it is owned by the Hub's
// dispatcher goroutine. Rooms exist only while they have members: every
// operation that removes a membership evicts the rooms it leaves empty.
type Registry struct {
	rooms map[string]map[string]struct{} // room -> connection ids
	conns map[string]map[string]struct{} // connection id -> rooms
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join adds conn to room. created is true when the room did not exist.
// Joining a room twice is a no-op.
func (r *Registry) Join(conn, room string) (created bool) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
		created = true
	}
	members[conn] = struct{}{}

	joined, ok := r.conns[conn]
	if !ok {
		joined = make(map[string]struct{})
		r.conns[conn] = joined
	}
	joined[room] = struct{}{}
	return created
}

// Leave removes conn from room. evicted is true when the room became empty
// and was removed. Unknown rooms and non-members are ignored.
func (r *Registry) Leave(conn, room string) (evicted bool) {
	if joined, ok := r.conns[conn]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.conns, conn)
		}
	}

	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	delete(members, conn)
	return r.evictIfEmpty(room)
}

// DropConnection removes conn from every room it joined and returns the
// rooms that were evicted as a result. Safe to call more than once.
func (r *Registry) DropConnection(conn string) (evicted []string) {
	joined, ok := r.conns[conn]
	if !ok {
		return nil
	}
	delete(r.conns, conn)

	for room := range joined {
		members, ok := r.rooms[room]
		if !ok {
			continue
		}
		delete(members, conn)
		if r.evictIfEmpty(room) {
			evicted = append(evicted, room)
		}
	}
	return evicted
}

// MembersExcluding returns the members of room other than conn.
func (r *Registry) MembersExcluding(room, conn string) []string {
	members := r.rooms[room]
	out := make([]string, 0, len(members))
	for id := range members {
		if id != conn {
			out = append(out, id)
		}
	}
	return out
}

// RoomsOf returns the rooms conn is a member of.
func (r *Registry) RoomsOf(conn string) []string {
	joined := r.conns[conn]
	out := make([]string, 0, len(joined))
	for room := range joined {
		out = append(out, room)
	}
	return out
}

func (r *Registry) IsMember(conn, room string) bool {
	_, ok := r.rooms[room][conn]
	return ok
}

func (r *Registry) RoomCount() int {
	return len(r.rooms)
}

// MembershipCount is the number of (connection, room) pairs.
func (r *Registry) MembershipCount() int {
	n := 0
	for _, members := range r.rooms {
		n += len(members)
	}
	return n
}

func (r *Registry) evictIfEmpty(room string) bool {
	if len(r.rooms[room]) > 0 {
		return false
	}
	delete(r.rooms, room)
	return true
}
