package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
)

func TestAccountService_List_Scope(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	acme := f.seedTenant("acme", 10, 5, nil)
	globex := f.seedTenant("globex", 10, 5, nil)
	ca := f.seedUser("ca", domain.RoleClientAdmin, acme.ID)
	u1 := f.seedUser("u1", domain.RoleUser, acme.ID)
	f.seedUser("u2", domain.RoleUser, globex.ID)

	all, err := f.accounts.List(ctx, f.admin, ports.Page{})
	if err != nil || len(all) != 4 {
		t.Fatalf("portal admin should see all 4 users, got %d (%v)", len(all), err)
	}

	own, _ := f.accounts.List(ctx, ca, ports.Page{})
	if len(own) != 2 {
		t.Fatalf("client admin should see 2 users, got %d", len(own))
	}
	for _, u := range own {
		if u.ClientID != acme.ID {
			t.Fatalf("client admin saw foreign user %+v", u)
		}
	}

	self, _ := f.accounts.List(ctx, u1, ports.Page{})
	if len(self) != 1 || self[0].ID != u1.ID {
		t.Fatalf("user should see only self, got %+v", self)
	}
}

func TestAccountService_List_Pagination(t *testing.T) {
	f := newFixture()
	client := f.seedTenant("acme", 10, 5, nil)
	for _, name := range []string{"a", "b", "c"} {
		f.seedUser(name, domain.RoleUser, client.ID)
	}

	page, _ := f.accounts.List(context.Background(), f.admin, ports.Page{Skip: 1, Limit: 2})
	if len(page) != 2 {
		t.Fatalf("expected 2 users, got %d", len(page))
	}
}

func TestAccountService_Get_Authorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	acme := f.seedTenant("acme", 10, 5, nil)
	globex := f.seedTenant("globex", 10, 5, nil)
	ca := f.seedUser("ca", domain.RoleClientAdmin, acme.ID)
	u1 := f.seedUser("u1", domain.RoleUser, acme.ID)
	u2 := f.seedUser("u2", domain.RoleUser, acme.ID)
	foreign := f.seedUser("foreign", domain.RoleUser, globex.ID)

	if _, err := f.accounts.Get(ctx, u1, u1.ID); err != nil {
		t.Fatalf("user should read self: %v", err)
	}
	if _, err := f.accounts.Get(ctx, u1, u2.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("user reading a colleague: expected ErrForbidden, got %v", err)
	}
	if _, err := f.accounts.Get(ctx, ca, u2.ID); err != nil {
		t.Fatalf("client admin should read own client's user: %v", err)
	}
	if _, err := f.accounts.Get(ctx, ca, foreign.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign user, got %v", err)
	}
	if _, err := f.accounts.Get(ctx, ca, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAccountService_Create_OnlyPortalAdmin(t *testing.T) {
	f := newFixture()
	client := f.seedTenant("acme", 10, 5, nil)
	ca := f.seedUser("ca", domain.RoleClientAdmin, client.ID)

	_, err := f.accounts.Create(context.Background(), ca, ports.CreateUserInput{
		Username: "new", Password: "pw", Role: domain.RoleUser, ClientID: client.ID,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAccountService_Create_UnknownClient(t *testing.T) {
	f := newFixture()
	_, err := f.accounts.Create(context.Background(), f.admin, ports.CreateUserInput{
		Username: "new", Password: "pw", Role: domain.RoleUser, ClientID: "missing",
	})
	if !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestAccountService_Update_MoveClientDropsAssignments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	acme := f.seedTenant("acme", 10, 5, nil)
	globex := f.seedTenant("globex", 10, 5, nil)
	svc := f.seedService("mail")
	user := f.seedUser("mover", domain.RoleUser, acme.ID)
	ca := f.seedUser("ca", domain.RoleClientAdmin, acme.ID)
	cs, _ := f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: acme.ID, ServiceID: svc.ID})
	if _, err := f.assignments.Assign(ctx, ca, user.ID, cs.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	updated, err := f.accounts.Update(ctx, f.admin, user.ID, ports.UpdateUserInput{ClientID: globex.ID})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.ClientID != globex.ID || updated.Role != domain.RoleUser {
		t.Fatalf("unexpected user after move: %+v", updated)
	}
	if n, _ := f.store.repos().UserServices.CountByClientService(ctx, cs.ID); n != 0 {
		t.Fatalf("expected assignments to be dropped, got %d", n)
	}
}

func TestAccountService_Update_PasswordAndTenancy(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	client := f.seedTenant("acme", 10, 5, nil)
	user := f.seedUser("pat", domain.RoleUser, client.ID)

	if _, err := f.accounts.Update(ctx, f.admin, user.ID, ports.UpdateUserInput{Password: "fresh"}); err != nil {
		t.Fatalf("password update failed: %v", err)
	}
	if _, _, err := f.auth.Login(ctx, "pat", "fresh"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	promoted, err := f.accounts.Update(ctx, f.admin, user.ID, ports.UpdateUserInput{Role: domain.RolePortalAdmin})
	if err != nil {
		t.Fatalf("promotion failed: %v", err)
	}
	if promoted.ClientID != "" {
		t.Fatalf("portal admin must not keep a client, got %q", promoted.ClientID)
	}

	if _, err := f.accounts.Update(ctx, f.admin, user.ID, ports.UpdateUserInput{Role: domain.RoleUser}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for user without client, got %v", err)
	}
}

func TestAccountService_Delete_CascadesAssignments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	client := f.seedTenant("acme", 10, 5, nil)
	svc := f.seedService("mail")
	ca := f.seedUser("ca", domain.RoleClientAdmin, client.ID)
	user := f.seedUser("leaver", domain.RoleUser, client.ID)
	cs, _ := f.subscriptions.Connect(ctx, ca, ports.ConnectInput{ClientID: client.ID, ServiceID: svc.ID})
	_, _ = f.assignments.Assign(ctx, ca, user.ID, cs.ID)

	if _, err := f.accounts.Delete(ctx, f.admin, user.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if n, _ := f.store.repos().UserServices.CountByClientService(ctx, cs.ID); n != 0 {
		t.Fatalf("expected assignments to cascade, got %d", n)
	}
	if _, err := f.accounts.Delete(ctx, f.admin, f.admin.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for self-delete, got %v", err)
	}
}

type moveSetup struct {
	f      *fixture
	acme   *domain.Client
	globex *domain.Client
	user   *domain.User
	cs     *domain.ClientService
}

func newMoveSetup(t *testing.T) moveSetup {
	t.Helper()
	f := newFixture()
	ctx := context.Background()
	acme := f.seedTenant("acme", 10, 5, nil)
	globex := f.seedTenant("globex", 10, 5, nil)
	svc := f.seedService("mail")
	user := f.seedUser("mover", domain.RoleUser, acme.ID)
	ca := f.seedUser("ca", domain.RoleClientAdmin, acme.ID)
	cs, err := f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: acme.ID, ServiceID: svc.ID})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := f.assignments.Assign(ctx, ca, user.ID, cs.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	return moveSetup{f: f, acme: acme, globex: globex, user: user, cs: cs}
}

func (s moveSetup) assertUnchanged(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	repos := s.f.store.repos()
	stored, err := repos.Users.FindByID(ctx, s.user.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.ClientID != s.acme.ID {
		t.Fatalf("client_id changed to %q after failed update", stored.ClientID)
	}
	if n, _ := repos.UserServices.CountByClientService(ctx, s.cs.ID); n != 1 {
		t.Fatalf("assignments must survive a failed update, got %d", n)
	}
}

func TestAccountService_Update_FailedWriteKeepsAssignments(t *testing.T) {
	s := newMoveSetup(t)
	ctx := context.Background()
	writeErr := errors.New("write conflict")
	s.f.store.userUpdateErr = writeErr

	if _, err := s.f.accounts.Update(ctx, s.f.admin, s.user.ID, ports.UpdateUserInput{ClientID: s.globex.ID}); !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
	if _, err := s.f.accounts.Update(ctx, s.f.admin, s.user.ID, ports.UpdateUserInput{Role: domain.RolePortalAdmin}); !errors.Is(err, writeErr) {
		t.Fatalf("expected write error on promotion, got %v", err)
	}
	s.f.store.userUpdateErr = nil
	s.assertUnchanged(t)
}

func TestAccountService_Update_FailedCleanupRestoresUser(t *testing.T) {
	s := newMoveSetup(t)
	ctx := context.Background()
	cleanupErr := errors.New("delete failed")
	s.f.store.assignmentsDelErr = cleanupErr

	if _, err := s.f.accounts.Update(ctx, s.f.admin, s.user.ID, ports.UpdateUserInput{ClientID: s.globex.ID}); !errors.Is(err, cleanupErr) {
		t.Fatalf("expected cleanup error, got %v", err)
	}
	s.f.store.assignmentsDelErr = nil
	s.assertUnchanged(t)
}

func TestAccountService_Delete_TakesUserLock(t *testing.T) {
	s := newMoveSetup(t)

	s.f.locker.held[userKey(s.user.ID)] = true
	if _, err := s.f.accounts.Delete(context.Background(), s.f.admin, s.user.ID); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy while the user is locked, got %v", err)
	}
	if _, err := s.f.store.repos().Users.FindByID(context.Background(), s.user.ID); err != nil {
		t.Fatalf("user must survive: %v", err)
	}
}
