package resolver

import (
	"context"
	"sort"
	"sync"
)

// Static is a fixed in-memory user directory. Useful for tests and
// small deployments where the user set is known up front.
// Safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	byName map[string]User
	groups map[string][]string
}

// NewStatic creates a directory from the given users.
func NewStatic(users ...User) *Static {
	s := &Static{
		byName: make(map[string]User, len(users)),
		groups: make(map[string][]string),
	}
	for _, u := range users {
		s.byName[u.Username] = u
	}
	return s
}

// Add registers or replaces a user.
func (s *Static) Add(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byName[u.Username] = u
}

// Remove unregisters a user by username.
func (s *Static) Remove(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byName, username)
}

// SetGroup registers a group with the given member usernames,
// replacing any previous definition.
func (s *Static) SetGroup(group string, usernames ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group] = append([]string(nil), usernames...)
}

// Resolve maps usernames to users, collecting unresolvable names.
func (s *Static) Resolve(ctx context.Context, names []string) ([]User, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []User
	var unknown []string
	for _, name := range names {
		if u, ok := s.byName[name]; ok {
			found = append(found, u)
		} else {
			unknown = append(unknown, name)
		}
	}
	return found, unknown, nil
}

// GroupMembers returns the users in the named group. Member names
// without a registered user are skipped.
func (s *Static) GroupMembers(ctx context.Context, group string) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []User
	for _, name := range s.groups[group] {
		if u, ok := s.byName[name]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// AllUsers returns every registered user in username order.
func (s *Static) AllUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]User, 0, len(s.byName))
	for _, u := range s.byName {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}
