// Package access grants the verified role to members.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/gatekeeper/internal/platform"
)

// State is a step of the grant state machine.
type State string

// Grant states. A Result always ends in StateGrantSucceeded or StateGrantFailed.
const (
	StateNoRoleFound    State = "no_role_found"
	StateRoleFound      State = "role_found"
	StateGrantAttempted State = "grant_attempted"
	StateGrantSucceeded State = "grant_succeeded"
	StateGrantFailed    State = "grant_failed"
)

// roleColor is the green used for a created verified role.
const roleColor = 0x2ecc71

// StrategyError records why one grant method failed.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// Result is the terminal outcome of a grant.
type Result struct {
	State       State
	Role        platform.Role
	AlreadyHeld bool
	RoleCreated bool
	Strategy    string
	// HierarchyIssue is set when the bot's top role is not above the target role.
	HierarchyIssue bool
	Failures       []error
}

// Granted reports whether the member ends up holding the role.
func (r Result) Granted() bool {
	return r.State == StateGrantSucceeded
}

// Err joins all recorded failures.
func (r Result) Err() error {
	return errors.Join(r.Failures...)
}

// Strategy is one method of assigning a role.
type Strategy interface {
	Name() string
	Grant(ctx context.Context, guildID string, member *platform.Member, roleID string) error
}

// AddRole assigns the single role.
type AddRole struct {
	Platform platform.Platform
}

// Name implements Strategy.
func (AddRole) Name() string { return "add_role" }

// Grant implements Strategy.
func (s AddRole) Grant(ctx context.Context, guildID string, member *platform.Member, roleID string) error {
	return s.Platform.AddMemberRole(ctx, guildID, member.UserID, roleID)
}

// ReplaceRoles rewrites the member's full role list with the role appended.
type ReplaceRoles struct {
	Platform platform.Platform
}

// Name implements Strategy.
func (ReplaceRoles) Name() string { return "replace_roles" }

// Grant implements Strategy.
func (s ReplaceRoles) Grant(ctx context.Context, guildID string, member *platform.Member, roleID string) error {
	roles := append(append([]string(nil), member.RoleIDs...), roleID)
	return s.Platform.SetMemberRoles(ctx, guildID, member.UserID, roles)
}

// Granter resolves the verified role and assigns it.
type Granter struct {
	platform   platform.Platform
	roleName   string
	strategies []Strategy
	logger     *slog.Logger
}

// NewGranter creates a granter that tries AddRole, then ReplaceRoles.
func NewGranter(p platform.Platform, roleName string, logger *slog.Logger) *Granter {
	return NewGranterWithStrategies(p, roleName, logger, AddRole{Platform: p}, ReplaceRoles{Platform: p})
}

// NewGranterWithStrategies creates a granter with an explicit strategy order.
func NewGranterWithStrategies(p platform.Platform, roleName string, logger *slog.Logger, strategies ...Strategy) *Granter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Granter{
		platform:   p,
		roleName:   roleName,
		strategies: strategies,
		logger:     logger,
	}
}

// RoleName returns the name of the role this granter assigns.
func (g *Granter) RoleName() string {
	return g.roleName
}

// Grant gives the member the verified role, creating the role if needed.
func (g *Granter) Grant(ctx context.Context, guildID, userID string) Result {
	log := g.logger.With("guild_id", guildID, "user_id", userID, "role", g.roleName)

	botTop, botErr := g.platform.BotTopRolePosition(ctx, guildID)
	if botErr != nil {
		log.Warn("Could not resolve bot role position", "error", botErr)
	}

	role, state, err := g.resolveRole(ctx, guildID, botTop, botErr == nil)
	res := Result{State: state, Role: role}
	if err != nil {
		log.Error("Verified role unavailable", "error", err)
		res.State = StateGrantFailed
		res.Failures = append(res.Failures, &StrategyError{Strategy: "role_create", Err: err})
		return res
	}
	res.RoleCreated = state == StateNoRoleFound
	res.State = StateRoleFound

	if botErr == nil && role.Position >= botTop {
		res.HierarchyIssue = true
		log.Warn("Role hierarchy issue: bot role must be above the verified role",
			"bot_position", botTop, "role_position", role.Position)
	}

	member, err := g.platform.Member(ctx, guildID, userID)
	if err != nil {
		log.Error("Member lookup failed", "error", err)
		res.State = StateGrantFailed
		res.Failures = append(res.Failures, &StrategyError{Strategy: "member_lookup", Err: err})
		return res
	}
	if member.HasRole(role.ID) {
		log.Info("Member already holds verified role")
		res.State = StateGrantSucceeded
		res.AlreadyHeld = true
		return res
	}

	res.State = StateGrantAttempted
	for _, s := range g.strategies {
		if err := s.Grant(ctx, guildID, member, role.ID); err != nil {
			log.Warn("Grant method failed", "strategy", s.Name(), "error", err)
			res.Failures = append(res.Failures, &StrategyError{Strategy: s.Name(), Err: err})
			continue
		}
		log.Info("Verified role assigned", "strategy", s.Name())
		res.State = StateGrantSucceeded
		res.Strategy = s.Name()
		return res
	}

	res.State = StateGrantFailed
	log.Error("All grant methods failed", "attempts", len(res.Failures), "hierarchy_issue", res.HierarchyIssue)
	return res
}

// resolveRole finds the role by name or creates it. The returned state is
// StateNoRoleFound when the role had to be created.
func (g *Granter) resolveRole(ctx context.Context, guildID string, botTop int, botKnown bool) (platform.Role, State, error) {
	roles, err := g.platform.Roles(ctx, guildID)
	if err != nil {
		return platform.Role{}, StateNoRoleFound, fmt.Errorf("list roles: %w", err)
	}
	for _, r := range roles {
		if r.Name == g.roleName {
			return r, StateRoleFound, nil
		}
	}

	g.logger.Info("Verified role missing, creating it", "guild_id", guildID, "role", g.roleName)
	role, err := g.platform.CreateRole(ctx, guildID, g.roleName, roleColor)
	if err != nil {
		return platform.Role{}, StateNoRoleFound, fmt.Errorf("create role: %w", err)
	}

	if botKnown && botTop > 1 {
		target := botTop - 1
		if err := g.platform.MoveRole(ctx, guildID, role.ID, target); err != nil {
			g.logger.Warn("Failed to move verified role below bot role", "guild_id", guildID, "error", err)
		} else {
			role.Position = target
		}
	}
	return role, StateNoRoleFound, nil
}
