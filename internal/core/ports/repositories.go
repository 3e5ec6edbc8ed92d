package ports

// Repositories groups every persistence port so use cases share one handle
// per request path instead of reaching for global state.
type Repositories struct {
	Users          UserRepository
	Clients        ClientRepository
	Services       ServiceRepository
	Tariffs        TariffRepository
	ClientServices ClientServiceRepository
	UserServices   UserServiceRepository
	Usage          UsageRepository
}
