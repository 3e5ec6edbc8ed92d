package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/policy"
	"github.com/gendalf/services-portal/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory store backing every repository port
// ---------------------------------------------------------------------------

type memStore struct {
	mu            sync.Mutex
	seq           int
	users         map[string]*domain.User
	clients       map[string]*domain.Client
	services      map[string]*domain.Service
	tariffs       map[string]*domain.Tariff
	subscriptions map[string]*domain.ClientService
	assignments   map[string]*domain.UserService
	usage         []*domain.Usage

	// Injected write failures.
	userUpdateErr     error
	assignmentsDelErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]*domain.User),
		clients:       make(map[string]*domain.Client),
		services:      make(map[string]*domain.Service),
		tariffs:       make(map[string]*domain.Tariff),
		subscriptions: make(map[string]*domain.ClientService),
		assignments:   make(map[string]*domain.UserService),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_%d", prefix, m.seq)
}

func (m *memStore) repos() ports.Repositories {
	return ports.Repositories{
		Users:          memUsers{m},
		Clients:        memClients{m},
		Services:       memServices{m},
		Tariffs:        memTariffs{m},
		ClientServices: memSubscriptions{m},
		UserServices:   memAssignments{m},
		Usage:          memUsage{m},
	}
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func sortedIDs[T any](in map[string]*T) []string {
	ids := make([]string, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func paginate[T any](in []*T, p ports.Page) []*T {
	if p.Skip >= len(in) {
		return []*T{}
	}
	in = in[p.Skip:]
	if p.Limit > 0 && p.Limit < len(in) {
		in = in[:p.Limit]
	}
	return in
}

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		if existing.Username == u.Username {
			return nil, domain.ErrDuplicateUsername
		}
	}
	c := clone(u)
	c.ID = r.m.nextID("user")
	r.m.users[c.ID] = c
	return clone(c), nil
}

func (r memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (r memUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r memUsers) List(_ context.Context, f ports.UserFilter) ([]*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.User
	for _, id := range sortedIDs(r.m.users) {
		u := r.m.users[id]
		if f.ClientID != "" && u.ClientID != f.ClientID {
			continue
		}
		if f.UserID != "" && u.ID != f.UserID {
			continue
		}
		out = append(out, clone(u))
	}
	return paginate(out, f.Page), nil
}

func (r memUsers) CountByClient(_ context.Context, clientID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, u := range r.m.users {
		if u.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.userUpdateErr != nil {
		return r.m.userUpdateErr
	}
	if _, ok := r.m.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.m.users[u.ID] = clone(u)
	return nil
}

func (r memUsers) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.m.users, id)
	return nil
}

type memClients struct{ m *memStore }

func (r memClients) Create(_ context.Context, c *domain.Client) (*domain.Client, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := clone(c)
	n.ID = r.m.nextID("client")
	r.m.clients[n.ID] = n
	return clone(n), nil
}

func (r memClients) FindByID(_ context.Context, id string) (*domain.Client, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return clone(c), nil
}

func (r memClients) FindByName(_ context.Context, name string) (*domain.Client, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.clients {
		if c.Name == name {
			return clone(c), nil
		}
	}
	return nil, domain.ErrClientNotFound
}

func (r memClients) List(_ context.Context, p ports.Page) ([]*domain.Client, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Client
	for _, id := range sortedIDs(r.m.clients) {
		out = append(out, clone(r.m.clients[id]))
	}
	return paginate(out, p), nil
}

func (r memClients) CountByTariff(_ context.Context, tariffID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, c := range r.m.clients {
		if c.TariffID == tariffID {
			n++
		}
	}
	return n, nil
}

func (r memClients) Update(_ context.Context, c *domain.Client) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.clients[c.ID] = clone(c)
	return nil
}

func (r memClients) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.clients, id)
	return nil
}

type memServices struct{ m *memStore }

func (r memServices) Create(_ context.Context, s *domain.Service) (*domain.Service, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := clone(s)
	n.ID = r.m.nextID("service")
	r.m.services[n.ID] = n
	return clone(n), nil
}

func (r memServices) FindByID(_ context.Context, id string) (*domain.Service, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.services[id]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	return clone(s), nil
}

func (r memServices) FindByName(_ context.Context, name string) (*domain.Service, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.services {
		if s.Name == name {
			return clone(s), nil
		}
	}
	return nil, domain.ErrServiceNotFound
}

func (r memServices) List(_ context.Context, p ports.Page) ([]*domain.Service, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Service
	for _, id := range sortedIDs(r.m.services) {
		out = append(out, clone(r.m.services[id]))
	}
	return paginate(out, p), nil
}

func (r memServices) Update(_ context.Context, s *domain.Service) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.services[s.ID] = clone(s)
	return nil
}

func (r memServices) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.services, id)
	return nil
}

type memTariffs struct{ m *memStore }

func (r memTariffs) Create(_ context.Context, t *domain.Tariff) (*domain.Tariff, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := clone(t)
	n.ID = r.m.nextID("tariff")
	r.m.tariffs[n.ID] = n
	return clone(n), nil
}

func (r memTariffs) FindByID(_ context.Context, id string) (*domain.Tariff, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tariffs[id]
	if !ok {
		return nil, domain.ErrTariffNotFound
	}
	return clone(t), nil
}

func (r memTariffs) FindByName(_ context.Context, name string) (*domain.Tariff, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.tariffs {
		if t.Name == name {
			return clone(t), nil
		}
	}
	return nil, domain.ErrTariffNotFound
}

func (r memTariffs) List(_ context.Context, p ports.Page) ([]*domain.Tariff, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Tariff
	for _, id := range sortedIDs(r.m.tariffs) {
		out = append(out, clone(r.m.tariffs[id]))
	}
	return paginate(out, p), nil
}

func (r memTariffs) Update(_ context.Context, t *domain.Tariff) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.tariffs[t.ID] = clone(t)
	return nil
}

func (r memTariffs) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.tariffs, id)
	return nil
}

type memSubscriptions struct{ m *memStore }

func (r memSubscriptions) Create(_ context.Context, cs *domain.ClientService) (*domain.ClientService, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := clone(cs)
	n.ID = r.m.nextID("cs")
	r.m.subscriptions[n.ID] = n
	return clone(n), nil
}

func (r memSubscriptions) FindByID(_ context.Context, id string) (*domain.ClientService, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cs, ok := r.m.subscriptions[id]
	if !ok {
		return nil, domain.ErrClientServiceNotFound
	}
	return clone(cs), nil
}

func (r memSubscriptions) FindActive(_ context.Context, clientID, serviceID string, now time.Time) (*domain.ClientService, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, cs := range r.m.subscriptions {
		if cs.ClientID == clientID && cs.ServiceID == serviceID && cs.ActiveAt(now) {
			return clone(cs), nil
		}
	}
	return nil, domain.ErrClientServiceNotFound
}

func (r memSubscriptions) ExistsFor(_ context.Context, clientID, serviceID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, cs := range r.m.subscriptions {
		if cs.ClientID == clientID && cs.ServiceID == serviceID {
			return true, nil
		}
	}
	return false, nil
}

func (r memSubscriptions) ListByClient(_ context.Context, clientID string) ([]*domain.ClientService, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.ClientService{}
	for _, id := range sortedIDs(r.m.subscriptions) {
		if cs := r.m.subscriptions[id]; cs.ClientID == clientID {
			out = append(out, clone(cs))
		}
	}
	return out, nil
}

func (r memSubscriptions) count(match func(*domain.ClientService) bool) int64 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, cs := range r.m.subscriptions {
		if match(cs) {
			n++
		}
	}
	return n
}

func (r memSubscriptions) CountActiveByClient(_ context.Context, clientID string, now time.Time) (int64, error) {
	return r.count(func(cs *domain.ClientService) bool { return cs.ClientID == clientID && cs.ActiveAt(now) }), nil
}

func (r memSubscriptions) CountByClient(_ context.Context, clientID string) (int64, error) {
	return r.count(func(cs *domain.ClientService) bool { return cs.ClientID == clientID }), nil
}

func (r memSubscriptions) CountByService(_ context.Context, serviceID string) (int64, error) {
	return r.count(func(cs *domain.ClientService) bool { return cs.ServiceID == serviceID }), nil
}

func (r memSubscriptions) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.subscriptions[id]; !ok {
		return domain.ErrClientServiceNotFound
	}
	delete(r.m.subscriptions, id)
	return nil
}

type memAssignments struct{ m *memStore }

func (r memAssignments) Create(_ context.Context, us *domain.UserService) (*domain.UserService, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := clone(us)
	n.ID = r.m.nextID("us")
	r.m.assignments[n.ID] = n
	return clone(n), nil
}

func (r memAssignments) FindByID(_ context.Context, id string) (*domain.UserService, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	us, ok := r.m.assignments[id]
	if !ok {
		return nil, domain.ErrUserServiceNotFound
	}
	return clone(us), nil
}

func (r memAssignments) Exists(_ context.Context, userID, clientServiceID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, us := range r.m.assignments {
		if us.UserID == userID && us.ClientServiceID == clientServiceID {
			return true, nil
		}
	}
	return false, nil
}

func (r memAssignments) ListByUser(_ context.Context, userID string) ([]*domain.UserService, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.UserService{}
	for _, id := range sortedIDs(r.m.assignments) {
		if us := r.m.assignments[id]; us.UserID == userID {
			out = append(out, clone(us))
		}
	}
	return out, nil
}

func (r memAssignments) CountByClientService(_ context.Context, clientServiceID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, us := range r.m.assignments {
		if us.ClientServiceID == clientServiceID {
			n++
		}
	}
	return n, nil
}

func (r memAssignments) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.assignments[id]; !ok {
		return domain.ErrUserServiceNotFound
	}
	delete(r.m.assignments, id)
	return nil
}

func (r memAssignments) deleteWhere(match func(*domain.UserService) bool) int64 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, us := range r.m.assignments {
		if match(us) {
			delete(r.m.assignments, id)
			n++
		}
	}
	return n
}

func (r memAssignments) DeleteByClientService(_ context.Context, clientServiceID string) (int64, error) {
	return r.deleteWhere(func(us *domain.UserService) bool { return us.ClientServiceID == clientServiceID }), nil
}

func (r memAssignments) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.m.mu.Lock()
	err := r.m.assignmentsDelErr
	r.m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return r.deleteWhere(func(us *domain.UserService) bool { return us.UserID == userID }), nil
}

type memUsage struct{ m *memStore }

func (r memUsage) Create(_ context.Context, u *domain.Usage) (*domain.Usage, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := clone(u)
	n.ID = r.m.nextID("usage")
	r.m.usage = append(r.m.usage, n)
	return clone(n), nil
}

func (r memUsage) List(_ context.Context, f ports.UsageFilter) ([]*domain.Usage, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Usage{}
	for _, u := range r.m.usage {
		if f.ClientID != "" && u.ClientID != f.ClientID {
			continue
		}
		if f.UserID != "" && u.UserID != f.UserID {
			continue
		}
		if f.ServiceID != "" && u.ServiceID != f.ServiceID {
			continue
		}
		out = append(out, clone(u))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Coordination stubs
// ---------------------------------------------------------------------------

type stubLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
	err      error
	// before runs once, just before key is granted, to simulate a
	// competing request that got the lock first.
	before map[string]func()
}

func newStubLocker() *stubLocker {
	return &stubLocker{held: make(map[string]bool), before: make(map[string]func())}
}

func (l *stubLocker) runBefore(key string, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.before[key] = fn
}

func (l *stubLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	hook := l.before[key]
	delete(l.before, key)
	l.mu.Unlock()
	if hook != nil {
		hook()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held[key] {
		return nil, domain.ErrBusy
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type stubDedup struct {
	seen     map[string]bool
	checkErr error
}

func newStubDedup() *stubDedup {
	return &stubDedup{seen: make(map[string]bool)}
}

func (d *stubDedup) IsDuplicate(_ context.Context, clientServiceID, reportID string) (bool, error) {
	if d.checkErr != nil {
		return false, d.checkErr
	}
	return d.seen[clientServiceID+":"+reportID], nil
}

func (d *stubDedup) Mark(_ context.Context, clientServiceID, reportID string) error {
	d.seen[clientServiceID+":"+reportID] = true
	return nil
}

// ---------------------------------------------------------------------------
// Fixture: a wired set of services over one memStore
// ---------------------------------------------------------------------------

type fixture struct {
	store         *memStore
	locker        *stubLocker
	dedup         *stubDedup
	auth          *AuthService
	tenants       *TenantService
	catalog       *CatalogService
	tariffs       *TariffService
	subscriptions *SubscriptionService
	accounts      *AccountService
	assignments   *AssignmentService
	usage         *UsageService
	admin         *domain.User
}

func newFixture() *fixture {
	store := newMemStore()
	repos := store.repos()
	engine := policy.NewEngine()
	log := zerolog.Nop()
	locker := newStubLocker()
	dedup := newStubDedup()
	limits := NewLimitChecker(repos)
	auth := NewAuthService(repos.Users, "test-secret", time.Hour, log)

	f := &fixture{
		store:         store,
		locker:        locker,
		dedup:         dedup,
		auth:          auth,
		tenants:       NewTenantService(repos, engine, log),
		catalog:       NewCatalogService(repos, engine, log),
		tariffs:       NewTariffService(repos, engine, log),
		subscriptions: NewSubscriptionService(repos, engine, limits, locker, log),
		accounts:      NewAccountService(repos, auth, engine, limits, locker, log),
		assignments:   NewAssignmentService(repos, engine, limits, locker, log),
		usage:         NewUsageService(repos, engine, dedup, log),
	}
	admin, err := auth.Register(context.Background(), ports.RegisterInput{
		Username: "root",
		Password: "rootpass",
		Role:     domain.RolePortalAdmin,
	})
	if err != nil {
		panic(err)
	}
	f.admin = admin
	return f
}

func intPtr(v int) *int { return &v }

// seedTenant creates a tariff and a client on it.
func (f *fixture) seedTenant(name string, maxUsers, maxServices int, perService *int) *domain.Client {
	ctx := context.Background()
	tariff, err := f.tariffs.Create(ctx, f.admin, ports.TariffInput{
		Name:               name + "-plan",
		MaxUsers:           maxUsers,
		MaxServices:        maxServices,
		PeriodDays:         30,
		Price:              10,
		MaxUsersPerService: perService,
	})
	if err != nil {
		panic(err)
	}
	client, err := f.tenants.Create(ctx, f.admin, ports.ClientInput{Name: name, TariffID: tariff.ID})
	if err != nil {
		panic(err)
	}
	return client
}

func (f *fixture) seedService(name string) *domain.Service {
	svc, err := f.catalog.Create(context.Background(), f.admin, ports.ServiceInput{Name: name})
	if err != nil {
		panic(err)
	}
	return svc
}

func (f *fixture) seedUser(username, role, clientID string) *domain.User {
	u, err := f.accounts.Create(context.Background(), f.admin, ports.CreateUserInput{
		Username: username,
		Password: "pw-" + username,
		Role:     role,
		ClientID: clientID,
	})
	if err != nil {
		panic(err)
	}
	return u
}
