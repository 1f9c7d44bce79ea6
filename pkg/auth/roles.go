package auth

// RoleFromGroup maps one external group claim to an application role name.
// Pure so the mapping is testable without any token machinery.
func RoleFromGroup(prefix, group string) string {
	if prefix == "" {
		prefix = "ROLE_"
	}
	return prefix + group
}

// MapGroups maps every external group claim to its application role,
// preserving order and dropping empties.
func MapGroups(prefix string, groups []string) map[string]struct{} {
	out := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if g == "" {
			continue
		}
		out[RoleFromGroup(prefix, g)] = struct{}{}
	}
	return out
}
