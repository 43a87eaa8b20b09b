package tickets

import (
	"context"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
)

// Adapter is the chat platform as seen by the ticket engine.
type Adapter interface {
	// CreateContainer creates a ticket channel or thread and returns its ID. ErrNameRejected is
	// returned when the platform refuses the name.
	CreateContainer(ctx context.Context, spec *ContainerSpec) (string, error)

	// DeleteContainer deletes a channel or thread.
	DeleteContainer(ctx context.Context, containerID string) error

	// SetArchived archives and locks a thread, or restores it.
	SetArchived(ctx context.Context, containerID string, archived bool) error

	// ContainerExists reports whether a channel or thread still exists.
	ContainerExists(ctx context.Context, containerID string) (bool, error)

	// RenameContainer renames a channel or thread.
	RenameContainer(ctx context.Context, containerID, name string) error

	// SetMemberAccess grants or revokes a user's access to a container.
	SetMemberAccess(ctx context.Context, containerID, userID string, allow bool) error

	// SendMessage sends a message and returns its ID.
	SendMessage(ctx context.Context, channelID string, msg *Message) (string, error)

	EditMessage(ctx context.Context, channelID, messageID string, msg *Message) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	PinMessage(ctx context.Context, channelID, messageID string) error

	// SendDirect sends a direct message to a user.
	SendDirect(ctx context.Context, userID string, msg *Message) error

	// AttachControls replaces the controls on an existing message.
	AttachControls(ctx context.Context, channelID, messageID string, rows [][]Control) error

	MessageExists(ctx context.Context, channelID, messageID string) (bool, error)

	// Member resolves a guild member.
	Member(ctx context.Context, guildID, userID string) (*Member, error)

	// SaveTranscript saves the container's history before it is closed.
	SaveTranscript(ctx context.Context, guildID, containerID string, detailed bool) error

	// CheckAccess reports what the bot can do in a channel or category.
	CheckAccess(ctx context.Context, guildID, channelID string) (*Access, error)
}

// ContainerSpec describes a container to create.
type ContainerSpec struct {
	GuildID string
	Name    string

	// CategoryID is the parent category of a channel ticket.
	CategoryID string

	// FallbackCategoryID is tried when CategoryID is full or missing.
	FallbackCategoryID string

	// ParentChannelID is the channel a thread ticket is created in.
	ParentChannelID string

	Thread bool

	// Users are granted read and write access.
	Users []string

	// Roles are granted read and write access. For threads their members are added when
	// AddRoleMembers is set.
	Roles          []string
	AddRoleMembers bool

	Topic string
}

// Message is an outgoing chat message.
type Message struct {
	Content  string
	Embed    *Embed
	Controls [][]Control

	// Mentions lists the user and role IDs allowed to be pinged.
	MentionUsers []string
	MentionRoles []string
}

// Embed is a rich message block.
type Embed struct {
	Title       string
	Description string
	Colour      int
	Fields      []EmbedField
	Footer      string
	Timestamp   time.Time
}

// EmbedField is one titled field of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Control is an interactive button.
type Control struct {
	CustomID string
	Label    string
	Style    entities.ButtonStyle
	Emoji    string
	Disabled bool
}

// Member is a resolved guild member.
type Member struct {
	ID   string
	Name string

	Roles []string

	JoinedAt       time.Time
	AccountCreated time.Time

	// Admin is true for members with the administrator or manage guild permission.
	Admin bool

	// Owner is true for the guild owner.
	Owner bool

	Bot bool
}

// Mention renders the member as a mention.
func (m *Member) Mention() string {
	return "<@" + m.ID + ">"
}

// Access is what the bot may do in a channel or category.
type Access struct {
	Exists         bool
	View           bool
	Send           bool
	ManageChannels bool
	ManageThreads  bool
	ManageRoles    bool
	EmbedLinks     bool
}
