package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/antonkondratyev/api-universal/internal/model"
	"github.com/antonkondratyev/api-universal/internal/queue"
	"github.com/antonkondratyev/api-universal/internal/repository"
)

func TestMergeRoleIDs(t *testing.T) {
	tests := []struct {
		current, add, want []uint
	}{
		{nil, []uint{3, 1}, []uint{1, 3}},
		{[]uint{1, 3}, []uint{3}, []uint{1, 3}},
		{[]uint{2, 5}, []uint{4, 4, 1}, []uint{1, 2, 4, 5}},
		{[]uint{1}, nil, []uint{1}},
	}
	for _, tt := range tests {
		current := slices.Clone(tt.current)
		got := MergeRoleIDs(current, tt.add)
		if !slices.Equal(got, tt.want) {
			t.Errorf("MergeRoleIDs(%v, %v) = %v, want %v", tt.current, tt.add, got, tt.want)
		}
		if !slices.Equal(current, tt.current) {
			t.Errorf("MergeRoleIDs() modified its input: %v", current)
		}
	}
}

func seedRoles(t *testing.T, f *fixture, admin uint, names ...string) []model.Role {
	t.Helper()
	out := make([]model.Role, 0, len(names))
	for _, n := range names {
		r, err := f.roles.Create(context.Background(), admin, RoleInput{Name: n})
		if err != nil {
			t.Fatalf("Create role %q: %v", n, err)
		}
		out = append(out, r)
	}
	return out
}

func TestAddRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "root").User.ID
	user := f.register(t, "alice").User
	roles := seedRoles(t, f, admin, "a", "b", "c")

	u, err := f.users.AddRoles(ctx, admin, repository.ByName("alice"), []uint{roles[2].ID, roles[0].ID})
	if err != nil {
		t.Fatalf("AddRoles() error = %v", err)
	}
	want := []uint{roles[0].ID, roles[2].ID}
	if !slices.Equal(u.RoleIDs(), want) {
		t.Errorf("RoleIDs() = %v, want %v", u.RoleIDs(), want)
	}

	// adding a role that is already present is a no-op
	u, err = f.users.AddRoles(ctx, admin, repository.ByID(user.ID), []uint{roles[0].ID})
	if err != nil {
		t.Fatalf("AddRoles(present) error = %v", err)
	}
	if !slices.Equal(u.RoleIDs(), want) {
		t.Errorf("RoleIDs() = %v, want %v", u.RoleIDs(), want)
	}

	stored, _ := f.users.Get(ctx, repository.ByID(user.ID))
	if !slices.Equal(stored.RoleIDs(), want) {
		t.Errorf("stored RoleIDs() = %v, want %v", stored.RoleIDs(), want)
	}
}

func TestAddRoles_UnknownRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "root").User.ID
	f.register(t, "alice")
	roles := seedRoles(t, f, admin, "a")

	_, err := f.users.AddRoles(ctx, admin, repository.ByName("alice"), []uint{roles[0].ID, 999})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("AddRoles(unknown) error = %v, want NotFound", err)
	}
	stored, _ := f.users.Get(ctx, repository.ByName("alice"))
	if len(stored.RoleIDs()) != 0 {
		t.Errorf("RoleIDs() = %v, want none", stored.RoleIDs())
	}

	if _, err := f.users.AddRoles(ctx, admin, repository.ByName("alice"), nil); !errors.Is(err, ErrValidation) {
		t.Errorf("AddRoles(empty) error = %v, want Validation", err)
	}
}

func TestRemoveRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "root").User.ID
	f.register(t, "alice")
	roles := seedRoles(t, f, admin, "a", "b", "c")
	alice := repository.ByName("alice")
	if _, err := f.users.AddRoles(ctx, admin, alice, []uint{roles[0].ID, roles[1].ID}); err != nil {
		t.Fatalf("AddRoles() error = %v", err)
	}

	u, err := f.users.RemoveRole(ctx, admin, alice, repository.ByName("a"))
	if err != nil {
		t.Fatalf("RemoveRole() error = %v", err)
	}
	if !slices.Equal(u.RoleIDs(), []uint{roles[1].ID}) {
		t.Errorf("RoleIDs() = %v, want [%d]", u.RoleIDs(), roles[1].ID)
	}

	_, err = f.users.RemoveRole(ctx, admin, alice, repository.ByID(roles[2].ID))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("RemoveRole(not held) error = %v, want NotFound", err)
	}
	stored, _ := f.users.Get(ctx, alice)
	if !slices.Equal(stored.RoleIDs(), []uint{roles[1].ID}) {
		t.Errorf("RoleIDs() after failed removal = %v, want unchanged", stored.RoleIDs())
	}
}

func TestRoles_SkipsDeletedRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "root").User.ID
	f.register(t, "alice")
	roles := seedRoles(t, f, admin, "a", "b")
	alice := repository.ByName("alice")
	if _, err := f.users.AddRoles(ctx, admin, alice, []uint{roles[0].ID, roles[1].ID}); err != nil {
		t.Fatalf("AddRoles() error = %v", err)
	}
	if err := f.roles.Remove(ctx, admin, repository.ByID(roles[0].ID)); err != nil {
		t.Fatalf("Remove role error = %v", err)
	}

	got, err := f.users.Roles(ctx, alice)
	if err != nil {
		t.Fatalf("Roles() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != roles[1].ID {
		t.Errorf("Roles() = %+v, want only role b", got)
	}
	stored, _ := f.users.Get(ctx, alice)
	if len(stored.RoleIDs()) != 2 {
		t.Errorf("RoleIDs() = %v, deleting a role should not rewrite users", stored.RoleIDs())
	}
}

func TestUserMutations_NonAdminForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "root").User.ID
	mallory := f.register(t, "mallory").User.ID
	target := f.register(t, "alice").User
	roles := seedRoles(t, f, admin, "a")
	ident := repository.ByID(target.ID)
	name := "hacked"

	calls := map[string]func() error{
		"Create": func() error {
			_, err := f.users.Create(ctx, mallory, UserInput{Name: "new", Password: "pw"})
			return err
		},
		"Change": func() error {
			_, err := f.users.Change(ctx, mallory, ident, UserPatch{Name: &name})
			return err
		},
		"Replace": func() error {
			_, err := f.users.Replace(ctx, mallory, ident, UserInput{Name: name, Password: "pw"})
			return err
		},
		"Remove": func() error { return f.users.Remove(ctx, mallory, ident) },
		"AddRoles": func() error {
			_, err := f.users.AddRoles(ctx, mallory, ident, []uint{roles[0].ID})
			return err
		},
		"RemoveRole": func() error {
			_, err := f.users.RemoveRole(ctx, mallory, ident, repository.ByID(roles[0].ID))
			return err
		},
	}
	for op, call := range calls {
		t.Run(op, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrForbidden) {
				t.Errorf("%s() error = %v, want Forbidden", op, err)
			}
		})
	}

	stored, err := f.users.Get(ctx, ident)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Name != "alice" || len(stored.RoleIDs()) != 0 {
		t.Errorf("target changed by forbidden calls: %+v", stored)
	}
	if n := f.userRows(t); n != 3 {
		t.Errorf("user rows = %d, want 3", n)
	}
}

func TestAdminCheckIsFresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.register(t, "root").User.ID
	second := f.register(t, "second").User.ID

	promote := true
	if _, err := f.users.Change(ctx, root, repository.ByID(second), UserPatch{IsAdmin: &promote}); err != nil {
		t.Fatalf("promote error = %v", err)
	}
	if _, err := f.roles.Create(ctx, second, RoleInput{Name: "ops"}); err != nil {
		t.Fatalf("Create() by promoted admin error = %v", err)
	}

	demote := false
	if _, err := f.users.Change(ctx, root, repository.ByID(second), UserPatch{IsAdmin: &demote}); err != nil {
		t.Fatalf("demote error = %v", err)
	}
	if _, err := f.roles.Create(ctx, second, RoleInput{Name: "dev"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Create() after demotion error = %v, want Forbidden", err)
	}
	if _, err := f.roles.Create(ctx, 999, RoleInput{Name: "dev"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Create() by unknown caller error = %v, want Forbidden", err)
	}
}

func TestUserCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.register(t, "root").User.ID

	created, err := f.users.Create(ctx, root, UserInput{Name: "Bob", Password: "pw"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Name != "bob" || created.IsAdmin {
		t.Errorf("Create() = %+v, want non-admin bob", created)
	}
	if _, err := f.users.Create(ctx, root, UserInput{Name: "BOB", Password: "pw"}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Create(duplicate) error = %v, want AlreadyExists", err)
	}

	replaced, err := f.users.Replace(ctx, root, repository.ByName("bob"), UserInput{Name: "robert", Password: "new-pw", IsAdmin: true})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if replaced.Name != "robert" || !replaced.IsAdmin {
		t.Errorf("Replace() = %+v, want admin robert", replaced)
	}
	if _, err := f.sessions.Login(ctx, "robert", "new-pw"); err != nil {
		t.Errorf("Login() with replaced password error = %v", err)
	}

	empty := ""
	if _, err := f.users.Change(ctx, root, repository.ByName("robert"), UserPatch{Password: &empty}); !errors.Is(err, ErrValidation) {
		t.Errorf("Change(empty password) error = %v, want Validation", err)
	}
	if _, err := f.users.Get(ctx, repository.ByName("nobody")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want NotFound", err)
	}

	if err := f.users.Remove(ctx, root, repository.ByName("robert")); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := f.users.Remove(ctx, root, repository.ByName("robert")); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove() error = %v, want NotFound", err)
	}
	if got := f.events.types(); !slices.Contains(got, queue.EventUserRemoved) {
		t.Errorf("events = %v, want %s", got, queue.EventUserRemoved)
	}

	list, err := f.users.List(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("List() = %d users, %v, want 1", len(list), err)
	}
}
