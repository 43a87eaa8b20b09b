package entities

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// CurrentSchemaVersion is the schema version written by this build.
const CurrentSchemaVersion = 2

// ErrSchemaTooNew is returned for documents written by a newer build. Downgrades are not supported.
var ErrSchemaTooNew = errors.New("guild document schema is newer than this build supports")

// migrations[i] upgrades a document from version i to i+1.
var migrations = []func(g *Guild){
	// v0 -> v1: maps may be missing on documents created before defaulting existed.
	func(g *Guild) {
		g.ApplyDefaults()
	},
	// v1 -> v2: plain blacklist IDs become permanent advanced entries and every panel's sequence
	// starts at 1.
	func(g *Guild) {
		for _, id := range g.Blacklist {
			if _, ok := g.BlacklistAdvanced[id]; ok {
				continue
			}
			g.BlacklistAdvanced[id] = &BlacklistEntry{Subject: id, Reason: "migrated"}
		}
		g.Blacklist = nil
		for _, p := range g.Panels {
			if p.TicketNum < 1 {
				p.TicketNum = 1
			}
		}
	},
}

// Migrate upgrades the document to CurrentSchemaVersion and applies defaults.
func Migrate(g *Guild) error {
	if g.SchemaVersion > CurrentSchemaVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrSchemaTooNew, g.SchemaVersion, CurrentSchemaVersion)
	}
	g.ApplyDefaults()
	for v := g.SchemaVersion; v < CurrentSchemaVersion; v++ {
		migrations[v](g)
		g.SchemaVersion = v + 1
	}
	g.ApplyDefaults()
	return nil
}

// Clone deep copies the document through its BSON form, which is exactly what gets persisted.
func (g *Guild) Clone() (*Guild, error) {
	b, err := bson.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("error marshalling guild: %w", err)
	}
	out := new(Guild)
	if err := bson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("error unmarshalling guild: %w", err)
	}
	out.ApplyDefaults()
	return out, nil
}
