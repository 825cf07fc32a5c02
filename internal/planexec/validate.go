package planexec

import (
	"fmt"

	"github.com/riverfold/querymind/internal/model"
)

// ValidatePlan checks the plan-level invariants of spec.md §3 before the
// executor is handed the plan:
//  1. step values, when present on any request, are present on all and
//     form the sequence 1..N;
//  2. dependsOn, when set, references a smaller step;
//  3. outputAs, when set, matches the `$name` pattern and is unique;
//  4. a `$name` placeholder may appear only in a request whose transitive
//     dependsOn chain defines outputAs = $name.
func ValidatePlan(requests []model.DataRequest) error {
	if len(requests) == 0 {
		return fmt.Errorf("empty plan")
	}

	anyStep := false
	for _, r := range requests {
		if r.Step != nil {
			anyStep = true
			break
		}
	}

	if anyStep {
		seen := make(map[int]bool, len(requests))
		for _, r := range requests {
			if r.Step == nil {
				return fmt.Errorf("request missing step value while other requests in the plan declare one")
			}
			seen[*r.Step] = true
		}
		for i := 1; i <= len(requests); i++ {
			if !seen[i] {
				return fmt.Errorf("plan step sequence is not 1..%d: missing step %d", len(requests), i)
			}
		}

		byStep := make(map[int]model.DataRequest, len(requests))
		for _, r := range requests {
			byStep[*r.Step] = r
		}
		for _, r := range requests {
			if r.DependsOn != nil {
				if *r.DependsOn >= *r.Step {
					return fmt.Errorf("step %d dependsOn %d, which is not smaller", *r.Step, *r.DependsOn)
				}
				if _, ok := byStep[*r.DependsOn]; !ok {
					return fmt.Errorf("step %d dependsOn nonexistent step %d", *r.Step, *r.DependsOn)
				}
			}
		}
	}

	if !anyStep {
		for _, r := range requests {
			if r.DependsOn != nil {
				return fmt.Errorf("request dependsOn step %d, but the plan declares no step values", *r.DependsOn)
			}
			if ph := model.PlaceholderPattern.FindString(r.SQL); ph != "" {
				return fmt.Errorf("request references %s, but the plan declares no steps to define it", ph)
			}
		}
	}

	outputNames := make(map[string]bool)
	for _, r := range requests {
		if r.OutputAs == "" {
			continue
		}
		if !model.OutputVarPattern.MatchString(r.OutputAs) {
			return fmt.Errorf("invalid outputAs %q: must match %s", r.OutputAs, model.OutputVarPattern.String())
		}
		if outputNames[r.OutputAs] {
			return fmt.Errorf("duplicate outputAs %q", r.OutputAs)
		}
		outputNames[r.OutputAs] = true
	}

	if anyStep {
		if err := validatePlaceholderAncestry(requests); err != nil {
			return err
		}
	}

	return nil
}

// validatePlaceholderAncestry enforces invariant 4: every `$name`
// placeholder referenced in a step's SQL must be declared by some ancestor
// step reachable via the dependsOn chain.
func validatePlaceholderAncestry(requests []model.DataRequest) error {
	byStep := make(map[int]model.DataRequest, len(requests))
	for _, r := range requests {
		byStep[*r.Step] = r
	}

	for _, r := range requests {
		placeholders := model.PlaceholderPattern.FindAllString(r.SQL, -1)
		if len(placeholders) == 0 {
			continue
		}
		ancestors := ancestorOutputs(r, byStep)
		for _, ph := range placeholders {
			if !ancestors[ph] {
				return fmt.Errorf("step %d references %s, which is not declared by any ancestor step", *r.Step, ph)
			}
		}
	}
	return nil
}

func ancestorOutputs(r model.DataRequest, byStep map[int]model.DataRequest) map[string]bool {
	out := make(map[string]bool)
	cur := r
	for cur.DependsOn != nil {
		parent, ok := byStep[*cur.DependsOn]
		if !ok {
			break
		}
		if parent.OutputAs != "" {
			out[parent.OutputAs] = true
		}
		cur = parent
	}
	return out
}
