package licensing

import (
	"fmt"
	"strings"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanTeam       Plan = "team"
	PlanEnterprise Plan = "enterprise"
)

// Unlimited marks a limit that is never enforced.
const Unlimited = -1

// Feature names accepted by Limits.Feature and Manager.CheckFeature.
const (
	FeaturePrivateRepos      = "private_repos"
	FeatureGitHubIntegration = "github_integration"
	FeatureSelfHosted        = "self_hosted"
	FeaturePrioritySupport   = "priority_support"
)

// Limits are the quotas and feature flags attached to a plan.
type Limits struct {
	ReviewsPerMonth   int  `json:"reviews_per_month"`
	MaxFileLines      int  `json:"max_file_lines"`
	TestGenPerMonth   int  `json:"testgen_per_month"`
	FixPerMonth       int  `json:"fix_per_month"`
	PrivateRepos      bool `json:"private_repos"`
	GitHubIntegration bool `json:"github_integration"`
	SelfHosted        bool `json:"self_hosted"`
	PrioritySupport   bool `json:"priority_support"`
}

var planLimits = map[Plan]Limits{
	PlanFree: {
		ReviewsPerMonth: 50,
		MaxFileLines:    500,
		TestGenPerMonth: 20,
		FixPerMonth:     10,
	},
	PlanPro: {
		ReviewsPerMonth:   500,
		MaxFileLines:      2000,
		TestGenPerMonth:   200,
		FixPerMonth:       100,
		PrivateRepos:      true,
		GitHubIntegration: true,
	},
	PlanTeam: {
		ReviewsPerMonth:   Unlimited,
		MaxFileLines:      Unlimited,
		TestGenPerMonth:   Unlimited,
		FixPerMonth:       Unlimited,
		PrivateRepos:      true,
		GitHubIntegration: true,
		PrioritySupport:   true,
	},
	PlanEnterprise: {
		ReviewsPerMonth:   Unlimited,
		MaxFileLines:      Unlimited,
		TestGenPerMonth:   Unlimited,
		FixPerMonth:       Unlimited,
		PrivateRepos:      true,
		GitHubIntegration: true,
		SelfHosted:        true,
		PrioritySupport:   true,
	},
}

// Plans lists every tier from cheapest to most expensive.
func Plans() []Plan {
	return []Plan{PlanFree, PlanPro, PlanTeam, PlanEnterprise}
}

// ParsePlan accepts a plan name case-insensitively.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := planLimits[p]; !ok {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}

// Limits returns the plan's quotas. Unknown plans get the free tier.
func (p Plan) Limits() Limits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// Feature reports whether the named feature is enabled. The second
// result is false for unknown feature names.
func (l Limits) Feature(name string) (enabled, known bool) {
	switch name {
	case FeaturePrivateRepos:
		return l.PrivateRepos, true
	case FeatureGitHubIntegration:
		return l.GitHubIntegration, true
	case FeatureSelfHosted:
		return l.SelfHosted, true
	case FeaturePrioritySupport:
		return l.PrioritySupport, true
	}
	return false, false
}

// Features returns every feature flag by name.
func (l Limits) Features() map[string]bool {
	return map[string]bool{
		FeaturePrivateRepos:      l.PrivateRepos,
		FeatureGitHubIntegration: l.GitHubIntegration,
		FeatureSelfHosted:        l.SelfHosted,
		FeaturePrioritySupport:   l.PrioritySupport,
	}
}
