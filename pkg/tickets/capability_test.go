package tickets

import (
	"testing"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"github.com/stretchr/testify/require"
)

func TestCan(t *testing.T) {
	g := entities.NewGuild(testGuild)
	g.SupportRoles = []string{"support-role"}
	g.Panels["billing"] = &entities.Panel{Name: "billing", SupportRoles: []string{"billing-role"}}

	billingStaff := &Member{ID: "billing-staff", Roles: []string{"billing-role"}}
	owner := &Member{ID: "guild-owner", Owner: true}

	ticket := &entities.Ticket{Owner: user.ID, Panel: "billing", ClaimedBy: billingStaff.ID}
	support := &entities.Ticket{Owner: user.ID, Panel: testPanel}

	tests := []struct {
		name    string
		member  *Member
		action  Action
		ticket  *entities.Ticket
		options func(g *entities.Guild)
		allowed bool
	}{
		{name: "admin configures", member: admin, action: ActionAdmin, allowed: true},
		{name: "owner configures", member: owner, action: ActionAdmin, allowed: true},
		{name: "staff cannot configure", member: staff, action: ActionAdmin},
		{name: "staff claim", member: staff, action: ActionClaim, ticket: ticket, allowed: true},
		{name: "panel staff claim", member: billingStaff, action: ActionClaim, ticket: ticket, allowed: true},
		{name: "panel staff on other panels", member: billingStaff, action: ActionClaim, ticket: support},
		{name: "user cannot claim", member: user, action: ActionClaim, ticket: ticket},
		{name: "user cannot note", member: user, action: ActionNote, ticket: ticket},
		{name: "claimant transfers", member: billingStaff, action: ActionTransfer, ticket: ticket, allowed: true},
		{name: "user cannot transfer", member: user, action: ActionTransfer, ticket: ticket},
		{name: "owner close off", member: user, action: ActionClose, ticket: ticket},
		{name: "owner close on", member: user, action: ActionClose, ticket: ticket, options: func(g *entities.Guild) { g.UserCanClose = true }, allowed: true},
		{name: "stranger close on", member: user2, action: ActionClose, ticket: ticket, options: func(g *entities.Guild) { g.UserCanClose = true }},
		{name: "owner rename on", member: user, action: ActionRename, ticket: ticket, options: func(g *entities.Guild) { g.UserCanRename = true }, allowed: true},
		{name: "owner manage off", member: user, action: ActionManageUsers, ticket: ticket},
		{name: "owner manage on", member: user, action: ActionManageUsers, ticket: ticket, options: func(g *entities.Guild) { g.UserCanManage = true }, allowed: true},
		{name: "owner info", member: user, action: ActionInfo, ticket: ticket, allowed: true},
		{name: "owner reopen", member: user, action: ActionReopen, ticket: ticket, allowed: true},
		{name: "stranger info", member: visitor, action: ActionInfo, ticket: ticket},
		{name: "unknown actor", action: ActionInfo, ticket: ticket},
		{name: "unknown action", member: admin, action: "explode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := *g
			g.UserCanClose, g.UserCanRename, g.UserCanManage = false, false, false
			if tt.options != nil {
				tt.options(&g)
			}

			err := Can(tt.member, tt.action, &g, tt.ticket)
			if tt.allowed {
				require.NoError(t, err)
				return
			}
			require.Equal(t, KindPermissionDenied, KindOf(err))
		})
	}
}

func TestIsStaff(t *testing.T) {
	g := entities.NewGuild(testGuild)
	g.SupportRoles = []string{"support-role"}
	p := &entities.Panel{Name: "billing", SupportRoles: []string{"billing-role"}}

	require.True(t, IsStaff(staff, g, nil))
	require.True(t, IsStaff(admin, g, nil))
	require.True(t, IsStaff(&Member{ID: "b", Roles: []string{"billing-role"}}, g, p))
	require.False(t, IsStaff(&Member{ID: "b", Roles: []string{"billing-role"}}, g, nil))
	require.False(t, IsStaff(user, g, p))
	require.False(t, IsStaff(nil, g, p))
}
