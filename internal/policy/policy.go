// Package policy decides membership-level permissions with CEL expressions.
//
// Every expression sees three maps: user (id, email, name), member (role,
// organizationId; role is empty for non-members) and resource (action specific).
// Expressions must evaluate to bool; anything else fails at startup.
package policy

import (
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"

	"github.com/dyluth/projecthub/internal/apperr"
	"github.com/dyluth/projecthub/pkg/hub"
)

// Action names a guarded operation.
type Action string

const (
	MemberAdd     Action = "organization.member.add"
	MemberRemove  Action = "organization.member.remove"
	ProjectDelete Action = "project.delete"
	CommentDelete Action = "comment.delete"
	LabelDelete   Action = "label.delete"
)

// Defaults are the built-in rules; configuration may override any of them.
var Defaults = map[Action]string{
	MemberAdd:     `member.role == "OWNER" || (member.role == "ADMIN" && resource.role != "OWNER")`,
	MemberRemove:  `member.role == "OWNER" || (member.role == "ADMIN" && resource.role != "OWNER") || resource.userId == user.id`,
	ProjectDelete: `member.role in ["OWNER", "ADMIN"]`,
	CommentDelete: `resource.userId == user.id`,
	LabelDelete:   `member.role != ""`,
}

var denied = map[Action]string{
	MemberAdd:     "only owners and admins can add members; only owners can add owners",
	MemberRemove:  "only owners and admins can remove members; only owners can remove owners",
	ProjectDelete: "only owners and admins can delete projects",
	CommentDelete: "you can only delete your own comments",
	LabelDelete:   "you do not have permission to delete this label",
}

// Input is the evaluation context of one decision.
type Input struct {
	User     map[string]any
	Member   map[string]any
	Resource map[string]any
}

// For builds an input for user acting with the given membership (nil when not a member).
func For(user *hub.User, member *hub.Member, resource map[string]any) Input {
	in := Input{
		User:     map[string]any{"id": user.ID, "email": user.Email, "name": user.Name},
		Member:   map[string]any{"role": "", "organizationId": ""},
		Resource: resource,
	}
	if member != nil {
		in.Member["role"] = string(member.Role)
		in.Member["organizationId"] = member.OrganizationID
	}
	if in.Resource == nil {
		in.Resource = map[string]any{}
	}
	return in
}

// Engine holds one compiled program per action. It is safe for concurrent use.
type Engine struct {
	programs map[Action]cel.Program
	sources  map[Action]string
}

// New compiles the defaults merged with overrides. Unknown actions and
// expressions that are not boolean are rejected.
func New(overrides map[string]string) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("user", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("member", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("resource", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build policy environment: %w", err)
	}

	sources := make(map[Action]string, len(Defaults))
	for a, src := range Defaults {
		sources[a] = src
	}
	for name, src := range overrides {
		a := Action(name)
		if _, ok := Defaults[a]; !ok {
			return nil, fmt.Errorf("unknown policy action '%s' (known: %v)", name, Actions())
		}
		sources[a] = src
	}

	e := &Engine{programs: make(map[Action]cel.Program, len(sources)), sources: sources}
	for a, src := range sources {
		ast, issues := env.Compile(src)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("policy '%s': %w", a, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("policy '%s': expression must evaluate to bool, got %s", a, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("policy '%s': %w", a, err)
		}
		e.programs[a] = prg
	}
	return e, nil
}

// Actions lists every known action, sorted.
func Actions() []string {
	names := make([]string, 0, len(Defaults))
	for a := range Defaults {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// Allowed evaluates the action's rule.
func (e *Engine) Allowed(action Action, in Input) (bool, error) {
	prg, ok := e.programs[action]
	if !ok {
		return false, fmt.Errorf("unknown policy action '%s'", action)
	}
	out, _, err := prg.Eval(map[string]any{
		"user":     in.User,
		"member":   in.Member,
		"resource": in.Resource,
	})
	if err != nil {
		return false, fmt.Errorf("policy '%s' evaluation failed: %w", action, err)
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy '%s' returned %T, expected bool", action, out.Value())
	}
	return allowed, nil
}

// Check returns a Forbidden error unless the action is allowed.
func (e *Engine) Check(action Action, in Input) error {
	ok, err := e.Allowed(action, in)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden(denied[action])
	}
	return nil
}

// Source returns the expression in force for an action.
func (e *Engine) Source(action Action) string {
	return e.sources[action]
}
