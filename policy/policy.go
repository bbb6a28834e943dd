// Package policy holds the access-control decision table. Every handler
// asks Allow before touching an entity; the answer depends only on the
// caller's role, the action, and who owns the target.
package policy

import "github.com/wanjiru/duka-backend/models"

type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Kind string

const (
	KindCategory Kind = "category"
	KindProduct  Kind = "product"
	KindOrder    Kind = "order"
	KindUser     Kind = "user"
)

// Resource identifies the target of an action. OwnerID is the user that
// owns the entity: the user's own id for a User, the customer id for an
// Order. Zero means ownership does not apply (catalog, collections).
type Resource struct {
	Kind    Kind
	OwnerID uint
}

type rule int

const (
	deny rule = iota
	anyone
	authenticated
	ownerOrAdmin
	adminOnly
)

var rules = map[Kind]map[Action]rule{
	KindCategory: {
		ActionList:   anyone,
		ActionRead:   anyone,
		ActionCreate: adminOnly,
		ActionUpdate: adminOnly,
		ActionDelete: adminOnly,
	},
	KindProduct: {
		ActionList:   anyone,
		ActionRead:   anyone,
		ActionCreate: adminOnly,
		ActionUpdate: adminOnly,
		ActionDelete: adminOnly,
	},
	KindOrder: {
		ActionList:   authenticated,
		ActionRead:   ownerOrAdmin,
		ActionCreate: authenticated,
		ActionUpdate: ownerOrAdmin,
		ActionDelete: ownerOrAdmin,
	},
	KindUser: {
		ActionList:   adminOnly,
		ActionRead:   ownerOrAdmin,
		ActionCreate: anyone,
		ActionUpdate: ownerOrAdmin,
		ActionDelete: ownerOrAdmin,
	},
}

// Allow decides whether actor may perform action on res. A nil actor is
// an anonymous caller.
func Allow(actor *models.User, action Action, res Resource) bool {
	r, ok := rules[res.Kind][action]
	if !ok {
		return false
	}

	switch r {
	case anyone:
		return true
	case authenticated:
		return actor != nil
	case adminOnly:
		return actor.IsAdmin()
	case ownerOrAdmin:
		if actor == nil {
			return false
		}
		return actor.IsAdmin() || (res.OwnerID != 0 && res.OwnerID == actor.ID)
	default:
		return false
	}
}
