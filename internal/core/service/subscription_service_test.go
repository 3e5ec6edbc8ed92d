package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
)

func TestSubscriptionService_Connect_PortalAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	client := f.seedTenant("acme", 10, 5, nil)
	svc := f.seedService("mail")

	cs, err := f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: client.ID, ServiceID: svc.ID})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if cs.ClientID != client.ID || cs.ServiceID != svc.ID || cs.ConnectedAt.IsZero() {
		t.Fatalf("unexpected subscription: %+v", cs)
	}
	if len(f.locker.acquired) == 0 || f.locker.acquired[len(f.locker.acquired)-1] != clientSubscriptionsKey(client.ID) {
		t.Fatalf("expected subscription lock to be taken, got %v", f.locker.acquired)
	}
}

func TestSubscriptionService_Connect_Duplicate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	client := f.seedTenant("acme", 10, 5, nil)
	svc := f.seedService("mail")

	in := ports.ConnectInput{ClientID: client.ID, ServiceID: svc.ID}
	_, _ = f.subscriptions.Connect(ctx, f.admin, in)
	if _, err := f.subscriptions.Connect(ctx, f.admin, in); !errors.Is(err, domain.ErrAlreadySubscribed) {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
}

func TestSubscriptionService_Connect_LimitExceeded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	client := f.seedTenant("acme", 10, 1, nil)
	mail := f.seedService("mail")
	storage := f.seedService("storage")

	if _, err := f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: client.ID, ServiceID: mail.ID}); err != nil {
		t.Fatalf("first connect failed: %v", err)
	}
	_, err := f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: client.ID, ServiceID: storage.ID})
	if !errors.Is(err, domain.ErrTariffLimitExceeded) {
		t.Fatalf("expected ErrTariffLimitExceeded, got %v", err)
	}
}

func TestSubscriptionService_Connect_ClientAdminScope(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	acme := f.seedTenant("acme", 10, 5, nil)
	globex := f.seedTenant("globex", 10, 5, nil)
	svc := f.seedService("mail")
	ca := f.seedUser("ca", domain.RoleClientAdmin, acme.ID)
	plain := f.seedUser("plain", domain.RoleUser, acme.ID)

	if _, err := f.subscriptions.Connect(ctx, ca, ports.ConnectInput{ClientID: acme.ID, ServiceID: svc.ID}); err != nil {
		t.Fatalf("client admin should connect own client: %v", err)
	}
	if _, err := f.subscriptions.Connect(ctx, ca, ports.ConnectInput{ClientID: globex.ID, ServiceID: svc.ID}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign client, got %v", err)
	}
	if _, err := f.subscriptions.Connect(ctx, plain, ports.ConnectInput{ClientID: acme.ID, ServiceID: svc.ID}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for user role, got %v", err)
	}
}

func TestSubscriptionService_Connect_RoleGateBeforeLookup(t *testing.T) {
	f := newFixture()
	client := f.seedTenant("acme", 10, 5, nil)
	plain := f.seedUser("plain", domain.RoleUser, client.ID)

	_, err := f.subscriptions.Connect(context.Background(), plain, ports.ConnectInput{ClientID: "missing", ServiceID: "missing"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden before lookup, got %v", err)
	}
}

func TestSubscriptionService_Connect_NotFoundAndPastExpiry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	client := f.seedTenant("acme", 10, 5, nil)
	svc := f.seedService("mail")

	if _, err := f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: "nope", ServiceID: svc.ID}); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	if _, err := f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: client.ID, ServiceID: "nope"}); !errors.Is(err, domain.ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if _, err := f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: client.ID, ServiceID: svc.ID, ExpiresAt: &past}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for past expiry, got %v", err)
	}
}

func TestSubscriptionService_Connect_LockBusy(t *testing.T) {
	f := newFixture()
	client := f.seedTenant("acme", 10, 5, nil)
	svc := f.seedService("mail")
	f.locker.held[clientSubscriptionsKey(client.ID)] = true

	_, err := f.subscriptions.Connect(context.Background(), f.admin, ports.ConnectInput{ClientID: client.ID, ServiceID: svc.ID})
	if !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestSubscriptionService_ConnectAssignDisconnectRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	client := f.seedTenant("acme", 10, 5, nil)
	svc := f.seedService("mail")
	ca := f.seedUser("ca", domain.RoleClientAdmin, client.ID)
	user := f.seedUser("worker", domain.RoleUser, client.ID)

	cs, err := f.subscriptions.Connect(ctx, ca, ports.ConnectInput{ClientID: client.ID, ServiceID: svc.ID})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := f.assignments.Assign(ctx, ca, user.ID, cs.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.usage.Record(ctx, user, ports.RecordUsageInput{ClientServiceID: cs.ID, UserID: user.ID, UsageAmount: 5}); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	if _, err := f.subscriptions.Disconnect(ctx, ca, cs.ID); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	list, _ := f.assignments.ListByUser(ctx, ca, user.ID)
	if len(list) != 0 {
		t.Fatalf("expected assignments to cascade, got %d", len(list))
	}
	subs, _ := f.subscriptions.ListByClient(ctx, ca, client.ID)
	if len(subs) != 0 {
		t.Fatalf("expected no subscriptions, got %d", len(subs))
	}
	usage, _ := f.usage.ByClient(ctx, ca, client.ID)
	if len(usage) != 1 || usage[0].ServiceID != svc.ID {
		t.Fatalf("usage should survive disconnect with copied service id, got %+v", usage)
	}
}

func TestSubscriptionService_ListByClient_Scope(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	acme := f.seedTenant("acme", 10, 5, nil)
	globex := f.seedTenant("globex", 10, 5, nil)
	svc := f.seedService("mail")
	_, _ = f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: acme.ID, ServiceID: svc.ID})
	user := f.seedUser("worker", domain.RoleUser, acme.ID)

	subs, err := f.subscriptions.ListByClient(ctx, user, acme.ID)
	if err != nil || len(subs) != 1 {
		t.Fatalf("user should list own client subscriptions: %v (%d)", err, len(subs))
	}
	if _, err := f.subscriptions.ListByClient(ctx, user, globex.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign client, got %v", err)
	}
}

func TestSubscriptionService_Disconnect_ForeignClientForbidden(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	acme := f.seedTenant("acme", 10, 5, nil)
	globex := f.seedTenant("globex", 10, 5, nil)
	svc := f.seedService("mail")
	cs, _ := f.subscriptions.Connect(ctx, f.admin, ports.ConnectInput{ClientID: globex.ID, ServiceID: svc.ID})
	ca := f.seedUser("ca", domain.RoleClientAdmin, acme.ID)

	if _, err := f.subscriptions.Disconnect(ctx, ca, cs.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.subscriptions.Disconnect(ctx, ca, "missing"); !errors.Is(err, domain.ErrClientServiceNotFound) {
		t.Fatalf("expected ErrClientServiceNotFound, got %v", err)
	}
}
