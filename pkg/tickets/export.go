package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
	"gopkg.in/yaml.v3"
)

// Format is a configuration document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses an export format, defaulting to JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", invalid("Unknown format %q, use json or yaml.", s)
}

// configDocument is the exported configuration: settings, panels, blacklist and quick replies.
// Active tickets and statistics are never part of it.
type configDocument struct {
	Version int             `json:"version" yaml:"version"`
	Guild   *entities.Guild `json:"guild" yaml:"guild"`
}

// Export encodes a guild's configuration.
func (m *Manager) Export(ctx context.Context, guildID string, format Format) ([]byte, error) {
	g, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}
	return encodeConfig(g, format)
}

func encodeConfig(g *entities.Guild, format Format) ([]byte, error) {
	stripRuntime(g)
	doc := configDocument{Version: entities.CurrentSchemaVersion, Guild: g}

	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("error encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("error encoding yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error encoding json: %w", err)
		}
		return b, nil
	}
}

// stripRuntime clears everything that is state rather than configuration.
func stripRuntime(g *entities.Guild) {
	g.Opened = nil
	g.Closed = nil
	g.AuditLog = nil
	g.Stats = entities.Stats{}
	g.RecentOpens = nil
	g.LastOpened = nil
	for _, p := range g.Panels {
		p.RecentOpens = nil
		p.LastOpened = nil
	}
}

func decodeConfig(data []byte, format Format) (*entities.Guild, error) {
	var doc configDocument
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, invalid("The YAML document could not be read: %v", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, invalid("The JSON document could not be read: %v", err)
		}
	}
	if doc.Guild == nil {
		return nil, invalid("The document has no guild configuration.")
	}
	if doc.Version > entities.CurrentSchemaVersion {
		return nil, invalid("The document was exported by a newer version (%d).", doc.Version)
	}
	return doc.Guild, nil
}

// Import replaces a guild's configuration with an exported document. Everything is validated
// before anything is saved. Active tickets, statistics and the audit log are kept, and each
// panel's sequence never goes backwards.
func (m *Manager) Import(ctx context.Context, guildID string, actor *Member, format Format, data []byte) error {
	in, err := decodeConfig(data, format)
	if err != nil {
		return err
	}
	in.ApplyDefaults()
	for name, p := range in.Panels {
		p.Name = name
		if err := ValidatePanel(p); err != nil {
			return invalid("Panel %q: %s", name, messageOf(err))
		}
	}
	for name, q := range in.QuickReplies {
		q.Name = name
		if err := ValidateQuickReply(q); err != nil {
			return invalid("Quick reply %q: %s", name, messageOf(err))
		}
	}
	if err := validateGuild(in); err != nil {
		return err
	}

	err = m.mutate(ctx, guildID, func(g *entities.Guild, tx *txn) error {
		if err := Can(actor, ActionAdmin, g, nil); err != nil {
			return err
		}

		for name, p := range in.Panels {
			if old, ok := g.Panels[name]; ok {
				if old.TicketNum > p.TicketNum {
					p.TicketNum = old.TicketNum
				}
				p.RecentOpens = old.RecentOpens
				p.LastOpened = old.LastOpened
			}
		}

		in.ID = g.ID
		in.SchemaVersion = g.SchemaVersion
		in.Opened = g.Opened
		in.Closed = g.Closed
		in.AuditLog = g.AuditLog
		in.Stats = g.Stats
		in.RecentOpens = g.RecentOpens
		in.LastOpened = g.LastOpened
		*g = *in
		g.ApplyDefaults()

		tx.record(g, entities.AuditLogEntry{
			Action: entities.AuditConfigChange,
			Actor:  actor.ID,
			Detail: fmt.Sprintf("Imported configuration (%d panels, %d quick replies)", len(g.Panels), len(g.QuickReplies)),
		})
		return nil
	})
	if err != nil {
		return err
	}

	_, err = m.RebuildControls(ctx, guildID)
	return err
}

func messageOf(err error) string {
	if msg, ok := UserMessage(err); ok {
		return msg
	}
	return err.Error()
}
