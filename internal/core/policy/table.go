package policy

// Resource names the kind of record an action targets.
type Resource string

const (
	ResourceClient         Resource = "client"
	ResourceService        Resource = "service"
	ResourceTariff         Resource = "tariff"
	ResourceClientService  Resource = "client_service"
	ResourceUser           Resource = "user"
	ResourceUserService    Resource = "user_service"
	ResourceUsage          Resource = "usage"
	ResourceUsageByClient  Resource = "usage_by_client"
	ResourceUsageByUser    Resource = "usage_by_user"
	ResourceUsageByService Resource = "usage_by_service"
)

// Action names the operation performed on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionList   Action = "list"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
	ActionRevoke Action = "revoke"
	ActionRecord Action = "record"
)

// Effect is the outcome a rule assigns to one role.
type Effect uint8

const (
	// Deny is the zero value so an unlisted role is always denied.
	Deny Effect = iota
	Allow
	// OwnClient allows when the target belongs to the actor's client.
	OwnClient
	// Self allows when the target is the actor.
	Self
)

func (e Effect) String() string {
	switch e {
	case Allow:
		return "allow"
	case OwnClient:
		return "own_client"
	case Self:
		return "self"
	default:
		return "deny"
	}
}

// Rule is one row of the policy table.
type Rule struct {
	Resource    Resource
	Actions     []Action
	PortalAdmin Effect
	ClientAdmin Effect
	User        Effect
}

func (r Rule) matches(res Resource, act Action) bool {
	if r.Resource != res {
		return false
	}
	for _, a := range r.Actions {
		if a == act {
			return true
		}
	}
	return false
}

// DefaultRules is the portal's access-control table. Rows are evaluated
// top-down and the first row matching (resource, action) decides.
func DefaultRules() []Rule {
	return []Rule{
		{ResourceClient, []Action{ActionCreate, ActionUpdate, ActionDelete, ActionList}, Allow, Deny, Deny},
		{ResourceClient, []Action{ActionRead}, Allow, OwnClient, OwnClient},

		{ResourceService, []Action{ActionCreate, ActionUpdate, ActionDelete}, Allow, Deny, Deny},
		{ResourceService, []Action{ActionList, ActionRead}, Allow, Allow, Allow},

		{ResourceTariff, []Action{ActionCreate, ActionUpdate, ActionDelete}, Allow, Deny, Deny},
		{ResourceTariff, []Action{ActionList, ActionRead}, Allow, Allow, Allow},

		{ResourceClientService, []Action{ActionCreate}, Allow, OwnClient, Deny},
		{ResourceClientService, []Action{ActionList}, Allow, OwnClient, OwnClient},
		{ResourceClientService, []Action{ActionDelete}, Allow, OwnClient, Deny},

		{ResourceUser, []Action{ActionCreate, ActionUpdate, ActionDelete}, Allow, Deny, Deny},
		{ResourceUser, []Action{ActionList}, Allow, OwnClient, Self},
		{ResourceUser, []Action{ActionRead}, Allow, OwnClient, Self},

		{ResourceUserService, []Action{ActionAssign}, Deny, OwnClient, Deny},
		{ResourceUserService, []Action{ActionList}, Allow, OwnClient, Self},
		{ResourceUserService, []Action{ActionRevoke}, Deny, OwnClient, Deny},

		{ResourceUsage, []Action{ActionRecord}, Allow, OwnClient, Self},
		{ResourceUsageByClient, []Action{ActionRead}, Allow, OwnClient, Deny},
		{ResourceUsageByUser, []Action{ActionRead}, Allow, OwnClient, Self},
		{ResourceUsageByService, []Action{ActionRead}, Allow, OwnClient, Deny},
	}
}
