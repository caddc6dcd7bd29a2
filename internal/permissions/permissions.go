package permissions

import "strings"

// Permission tokens follow the resource:action convention. Transition
// permissions are combinatorial: one token per configured transition edge.
const transitionPrefix = "moderation:transition:"

// TransitionPermission returns the token guarding a single transition edge.
func TransitionPermission(transitionName string) string {
	return transitionPrefix + strings.TrimSpace(transitionName)
}
