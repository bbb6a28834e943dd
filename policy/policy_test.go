package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wanjiru/duka-backend/models"
)

func TestAllow(t *testing.T) {
	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	buyer := &models.User{ID: 2, Role: models.RoleBuyer}
	seller := &models.User{ID: 3, Role: models.RoleSeller}

	cases := []struct {
		name   string
		actor  *models.User
		action Action
		res    Resource
		want   bool
	}{
		{"admin can do anything", admin, ActionDelete, Resource{Kind: KindUser, OwnerID: 2}, true},
		{"admin lists users", admin, ActionList, Resource{Kind: KindUser}, true},
		{"buyer cannot list users", buyer, ActionList, Resource{Kind: KindUser}, false},
		{"buyer reads own user", buyer, ActionRead, Resource{Kind: KindUser, OwnerID: 2}, true},
		{"buyer cannot read another user", buyer, ActionRead, Resource{Kind: KindUser, OwnerID: 3}, false},
		{"buyer updates own user", buyer, ActionUpdate, Resource{Kind: KindUser, OwnerID: 2}, true},
		{"seller cannot delete another user", seller, ActionDelete, Resource{Kind: KindUser, OwnerID: 2}, false},

		{"buyer reads own order", buyer, ActionRead, Resource{Kind: KindOrder, OwnerID: 2}, true},
		{"buyer cannot read another customer's order", buyer, ActionRead, Resource{Kind: KindOrder, OwnerID: 3}, false},
		{"admin reads any order", admin, ActionRead, Resource{Kind: KindOrder, OwnerID: 3}, true},
		{"anonymous cannot place an order", nil, ActionCreate, Resource{Kind: KindOrder}, false},
		{"buyer places an order", buyer, ActionCreate, Resource{Kind: KindOrder}, true},

		{"anonymous reads catalog", nil, ActionRead, Resource{Kind: KindProduct}, true},
		{"anonymous lists categories", nil, ActionList, Resource{Kind: KindCategory}, true},
		{"buyer cannot create a category", buyer, ActionCreate, Resource{Kind: KindCategory}, false},
		{"seller cannot update a product", seller, ActionUpdate, Resource{Kind: KindProduct}, false},
		{"admin creates a product", admin, ActionCreate, Resource{Kind: KindProduct}, true},

		{"anonymous registers", nil, ActionCreate, Resource{Kind: KindUser}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Allow(tc.actor, tc.action, tc.res))
		})
	}
}
