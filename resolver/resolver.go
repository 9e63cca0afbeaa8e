// Package resolver maps recipient names to user identities and
// enumerates users for broadcast delivery.
package resolver

import "context"

// User is a resolved user identity.
type User struct {
	// ID is the stable user identifier messages are addressed to.
	ID string `json:"id"`
	// Username is the unique name recipients are looked up by.
	Username string `json:"username"`
	// DisplayName is an optional human-readable name.
	DisplayName string `json:"display_name,omitempty"`
	// Email is an optional notification address.
	Email string `json:"email,omitempty"`
}

// Resolver looks up users by the names a sender addressed.
type Resolver interface {
	// Resolve maps names to users. Names that do not resolve are
	// returned in unknown, in input order; found holds the resolved
	// users for the remaining names. A non-nil error means the lookup
	// itself failed and both slices are meaningless.
	Resolve(ctx context.Context, names []string) (found []User, unknown []string, err error)
}

// Directory enumerates users for broadcast delivery.
type Directory interface {
	// GroupMembers returns the users belonging to the named group.
	GroupMembers(ctx context.Context, group string) ([]User, error)
	// AllUsers returns every known user.
	AllUsers(ctx context.Context) ([]User, error)
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, names []string) ([]User, []string, error)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, names []string) ([]User, []string, error) {
	return f(ctx, names)
}

// FieldFunc resolves names one at a time through a lookup on an
// alternate identity field, such as a profile attribute. The lookup
// reports ok=false for names with no match; those names are collected
// as unknown. A lookup error aborts the whole resolve.
type FieldFunc func(ctx context.Context, name string) (User, bool, error)

// Resolve applies f to each name in order.
func (f FieldFunc) Resolve(ctx context.Context, names []string) ([]User, []string, error) {
	var found []User
	var unknown []string
	for _, name := range names {
		user, ok, err := f(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		found = append(found, user)
	}
	return found, unknown, nil
}
