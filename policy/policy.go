// Package policy decides whether an API caller may perform an action.
// Role grants live in a permissions.json file next to the config and are
// evaluated through OPA, so tightening access needs no rebuild.
package policy

import (
	"context"
	"encoding/json"
	"os"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage/inmem"
)

type Policy interface {
	Allowed(ctx context.Context, roles []string, permission string) (bool, error)
}

const authzModule = `
package shop.authz

default allow = false

allow {
	role := input.roles[_]
	grant := data.permissions[role][_]
	grant == input.permission
}

allow {
	role := input.roles[_]
	grant := data.permissions[role][_]
	grant == "*"
}
`

func NewRegoPolicy(ctx context.Context, permissionsPath string) (Policy, error) {
	permissions := make(map[string][]string)

	if data, err := os.ReadFile(permissionsPath); err == nil {
		if err := json.Unmarshal(data, &permissions); err != nil {
			return nil, err
		}
	}

	store := inmem.NewFromObject(map[string]any{
		"permissions": permissions,
	})

	query, err := rego.New(
		rego.Query("data.shop.authz.allow"),
		rego.Module("authz.rego", authzModule),
		rego.Store(store),
	).PrepareForEval(ctx)

	if err != nil {
		return nil, err
	}

	policy := new(regoPolicy)
	policy.query = query
	return policy, nil
}

type regoPolicy struct {
	query rego.PreparedEvalQuery
}

func (p *regoPolicy) Allowed(ctx context.Context, roles []string, permission string) (bool, error) {
	input := map[string]any{
		"roles":      roles,
		"permission": permission,
	}

	results, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, err
	}

	return results.Allowed(), nil
}
