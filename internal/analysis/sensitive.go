package analysis

import "strings"

// CollectSensitive returns the union of the report's explicit sensitive_info
// entries and every entity flagged sensitive, deduplicated, in first-seen
// order. Flagged entities render as "name (reason)" when a reason exists.
func CollectSensitive(r *Report) []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	out := []string{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range r.SensitiveInfo {
		add(s)
	}
	for _, e := range r.Entities {
		if !e.Sensitive {
			continue
		}
		name := EntityLabel(e)
		if e.SensitivityReason != "" {
			add(name + " (" + e.SensitivityReason + ")")
		} else {
			add(name)
		}
	}
	return out
}

// HasSensitive reports whether the report carries anything that should be
// hidden behind the reveal toggle.
func HasSensitive(r *Report) bool {
	return len(CollectSensitive(r)) > 0
}
