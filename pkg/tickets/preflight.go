package tickets

import (
	"context"
	"fmt"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
)

// Severity ranks a preflight finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one preflight result. An empty Panel means the finding is guild-wide.
type Finding struct {
	Panel    string   `json:"panel,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Preflight checks the configuration and the bot's permissions for one panel, or every panel
// when name is empty.
func (m *Manager) Preflight(ctx context.Context, guildID string, actor *Member, name string) ([]Finding, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	if err := Can(actor, ActionAdmin, g, nil); err != nil {
		return nil, err
	}

	var panels []*entities.Panel
	if name != "" {
		p, ok := g.Panels[name]
		if !ok {
			return nil, notFound("Panel %q does not exist.", name)
		}
		panels = []*entities.Panel{p}
	} else {
		for _, p := range g.Panels {
			panels = append(panels, p)
		}
		sortPanels(panels)
	}

	pf := &preflight{m: m, guildID: guildID}
	if name == "" {
		pf.checkGuild(ctx, g)
	}
	for _, p := range panels {
		pf.checkPanel(ctx, g, p)
	}
	return pf.findings, nil
}

type preflight struct {
	m        *Manager
	guildID  string
	findings []Finding
}

func (pf *preflight) add(panel string, s Severity, format string, args ...any) {
	pf.findings = append(pf.findings, Finding{Panel: panel, Severity: s, Message: fmt.Sprintf(format, args...)})
}

// access looks a channel up and records a finding when it is unusable. It returns nil when the
// channel cannot be used at all.
func (pf *preflight) access(ctx context.Context, panel, what, channelID string) *Access {
	a, err := pf.m.adapter.CheckAccess(ctx, pf.guildID, channelID)
	if err != nil {
		pf.add(panel, SeverityError, "Could not check the %s <#%s>: %v", what, channelID, err)
		return nil
	}
	if !a.Exists {
		pf.add(panel, SeverityError, "The %s `%s` no longer exists.", what, channelID)
		return nil
	}
	if !a.View {
		pf.add(panel, SeverityError, "I cannot see the %s <#%s>.", what, channelID)
		return nil
	}
	return a
}

func (pf *preflight) checkGuild(ctx context.Context, g *entities.Guild) {
	if len(g.Panels) == 0 {
		pf.add("", SeverityWarning, "No panels are configured.")
	}
	if len(g.SupportRoles) == 0 {
		pf.add("", SeverityWarning, "No guild support roles are set; only panel roles and administrators can handle tickets.")
	}
	if g.SuspendedMessage != "" {
		pf.add("", SeverityInfo, "Ticket creation is suspended.")
	}
	if g.AuditLogChannel != "" {
		if a := pf.access(ctx, "", "audit log channel", g.AuditLogChannel); a != nil && !a.Send {
			pf.add("", SeverityWarning, "I cannot send messages in the audit log channel <#%s>.", g.AuditLogChannel)
		}
	}
	if g.Escalation.Enabled && g.Escalation.ChannelID != "" {
		if a := pf.access(ctx, "", "escalation channel", g.Escalation.ChannelID); a != nil && !a.Send {
			pf.add("", SeverityError, "I cannot send escalation alerts in <#%s>.", g.Escalation.ChannelID)
		}
	}
}

func (pf *preflight) checkPanel(ctx context.Context, g *entities.Guild, p *entities.Panel) {
	if p.Disabled {
		pf.add(p.Name, SeverityInfo, "The panel is disabled.")
	}
	if len(g.SupportRoles) == 0 && len(p.SupportRoles) == 0 {
		pf.add(p.Name, SeverityWarning, "No support roles handle this panel.")
	}

	if p.ChannelID == "" {
		pf.add(p.Name, SeverityError, "The panel has no channel.")
	} else if a := pf.access(ctx, p.Name, "panel channel", p.ChannelID); a != nil {
		if !a.Send || !a.EmbedLinks {
			pf.add(p.Name, SeverityError, "I need Send Messages and Embed Links in <#%s>.", p.ChannelID)
		}
		if p.Threads && !a.ManageThreads {
			pf.add(p.Name, SeverityError, "I need Manage Threads in <#%s> to create thread tickets.", p.ChannelID)
		}
		if p.MessageID == "" {
			pf.add(p.Name, SeverityError, "The panel has no message.")
		} else if ok, err := pf.m.adapter.MessageExists(ctx, p.ChannelID, p.MessageID); err != nil {
			pf.add(p.Name, SeverityWarning, "Could not check the panel message: %v", err)
		} else if !ok {
			pf.add(p.Name, SeverityError, "The panel message no longer exists.")
		}
	}

	if !p.Threads {
		if p.CategoryID == "" {
			pf.add(p.Name, SeverityError, "The panel has no category.")
		} else {
			pf.checkCategory(ctx, p, "category", p.CategoryID)
		}
		if p.AltCategoryID != "" {
			pf.checkCategory(ctx, p, "alternate category", p.AltCategoryID)
		}
	}

	if p.LogChannelID != "" {
		if a := pf.access(ctx, p.Name, "log channel", p.LogChannelID); a != nil && !a.Send {
			pf.add(p.Name, SeverityWarning, "I cannot send messages in the log channel <#%s>.", p.LogChannelID)
		}
	}
	if len(p.Questions) > maxQuestions {
		pf.add(p.Name, SeverityError, "The panel has more than %d questions.", maxQuestions)
	}
}

func (pf *preflight) checkCategory(ctx context.Context, p *entities.Panel, what, id string) {
	a := pf.access(ctx, p.Name, what, id)
	if a == nil {
		return
	}
	if !a.ManageChannels || !a.ManageRoles {
		pf.add(p.Name, SeverityError, "I need Manage Channels and Manage Permissions in the %s `%s`.", what, id)
	}
}
