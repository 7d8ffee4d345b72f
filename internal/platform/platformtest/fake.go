// Package platformtest provides an in-memory platform.Platform for tests.
package platformtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ashureev/gatekeeper/internal/platform"
)

// Sent is a message recorded by Fake.
type Sent struct {
	ChannelID string
	UserID    string
	Message   platform.Message
}

// Reaction is a reaction recorded by Fake.
type Reaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}

// Fake records every outbound effect. Error fields make the matching
// operation fail.
type Fake struct {
	mu sync.Mutex

	Channels map[string]string // name -> channel ID
	Members  map[string]*platform.Member
	Guild    []platform.Role
	BotTop   int

	ChannelMessages []Sent
	DirectMessages  []Sent
	Reactions       []Reaction
	RoleMoves       map[string]int

	DMErr          map[string]error // user ID -> error
	AddRoleErr     error
	SetRolesErr    error
	CreateRoleErr  error
	MoveRoleErr    error
	BotTopErr      error
	AddRoleCalls   int
	SetRolesCalls  int
	CreateRoleCall int

	nextID int
}

// New returns an empty Fake whose bot role sits at position 10.
func New() *Fake {
	return &Fake{
		Channels:  map[string]string{},
		Members:   map[string]*platform.Member{},
		RoleMoves: map[string]int{},
		DMErr:     map[string]error{},
		BotTop:    10,
	}
}

func (f *Fake) id(prefix string) string {
	f.nextID++
	return prefix + "-" + strconv.Itoa(f.nextID)
}

// AddMember registers a guild member.
func (f *Fake) AddMember(m platform.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Members[m.UserID] = &m
}

// FindChannel implements platform.Platform.
func (f *Fake) FindChannel(_ context.Context, _, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.Channels[name]
	if !ok {
		return "", platform.ErrChannelNotFound
	}
	return id, nil
}

// SendChannelMessage implements platform.Platform.
func (f *Fake) SendChannelMessage(_ context.Context, channelID string, msg platform.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ChannelMessages = append(f.ChannelMessages, Sent{ChannelID: channelID, Message: msg})
	return f.id("msg"), nil
}

// SendDirectMessage implements platform.Platform.
func (f *Fake) SendDirectMessage(_ context.Context, userID string, msg platform.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.DMErr[userID]; err != nil {
		return err
	}
	f.DirectMessages = append(f.DirectMessages, Sent{UserID: userID, Message: msg})
	return nil
}

// AddReaction implements platform.Platform.
func (f *Fake) AddReaction(_ context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions = append(f.Reactions, Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emoji})
	return nil
}

// Member implements platform.Platform.
func (f *Fake) Member(_ context.Context, _, userID string) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Members[userID]
	if !ok {
		return nil, platform.ErrMemberNotFound
	}
	c := *m
	c.RoleIDs = append([]string(nil), m.RoleIDs...)
	return &c, nil
}

// BotTopRolePosition implements platform.Platform.
func (f *Fake) BotTopRolePosition(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.BotTop, f.BotTopErr
}

// Roles implements platform.Platform.
func (f *Fake) Roles(context.Context, string) ([]platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Role(nil), f.Guild...), nil
}

// CreateRole implements platform.Platform.
func (f *Fake) CreateRole(_ context.Context, _, name string, _ int) (platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateRoleCall++
	if f.CreateRoleErr != nil {
		return platform.Role{}, f.CreateRoleErr
	}
	r := platform.Role{ID: f.id("role"), Name: name, Position: 1}
	f.Guild = append(f.Guild, r)
	return r, nil
}

// MoveRole implements platform.Platform.
func (f *Fake) MoveRole(_ context.Context, _, roleID string, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MoveRoleErr != nil {
		return f.MoveRoleErr
	}
	f.RoleMoves[roleID] = position
	return nil
}

// AddMemberRole implements platform.Platform.
func (f *Fake) AddMemberRole(_ context.Context, _, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AddRoleCalls++
	if f.AddRoleErr != nil {
		return f.AddRoleErr
	}
	return f.grantLocked(userID, roleID)
}

// SetMemberRoles implements platform.Platform.
func (f *Fake) SetMemberRoles(_ context.Context, _, userID string, roleIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetRolesCalls++
	if f.SetRolesErr != nil {
		return f.SetRolesErr
	}
	m, ok := f.Members[userID]
	if !ok {
		return platform.ErrMemberNotFound
	}
	m.RoleIDs = append([]string(nil), roleIDs...)
	return nil
}

func (f *Fake) grantLocked(userID, roleID string) error {
	m, ok := f.Members[userID]
	if !ok {
		return fmt.Errorf("grant %s: %w", userID, platform.ErrMemberNotFound)
	}
	m.RoleIDs = append(m.RoleIDs, roleID)
	return nil
}

// DirectMessagesTo returns the DMs sent to a user.
func (f *Fake) DirectMessagesTo(userID string) []platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []platform.Message
	for _, s := range f.DirectMessages {
		if s.UserID == userID {
			out = append(out, s.Message)
		}
	}
	return out
}

// MessagesIn returns the messages posted to a channel.
func (f *Fake) MessagesIn(channelID string) []platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []platform.Message
	for _, s := range f.ChannelMessages {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

var _ platform.Platform = (*Fake)(nil)
