package concretizer

import "go.trai.ch/sprig/internal/core/domain"

func dependsReason(depender *domain.Spec, rule domain.DependencyRule) string {
	return depender.Name + "@" + depender.Version().String() + ": depends on " + rule.Spec.String() + whenSuffix(rule.When)
}

func providesReason(provider string, rule domain.ProvidesRule) string {
	return provider + ": provides " + rule.Virtual.String() + whenSuffix(rule.When)
}

func conflictReason(pkg string, rule domain.ConflictRule) string {
	out := pkg + ": conflicts " + rule.Spec.String() + whenSuffix(rule.When)
	if rule.Message != "" {
		out += " (" + rule.Message + ")"
	}
	return out
}

func whenSuffix(when *domain.Spec) string {
	if when == nil {
		return ""
	}
	return " when " + when.String()
}
