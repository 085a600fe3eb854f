package domain

import "strings"

// ParseRepositoryArg turns a command-line repository reference into a
// descriptor. References containing "://" are remote URLs, anything else is
// a local path. An optional "#branch" suffix selects the branch to clone.
// The token is attached to remote references only.
func ParseRepositoryArg(ref, token string) RepositoryDescriptor {
	ref = strings.TrimSpace(ref)
	var branch string
	if i := strings.LastIndex(ref, "#"); i > 0 {
		ref, branch = ref[:i], ref[i+1:]
	}
	if strings.Contains(ref, "://") {
		return RepositoryDescriptor{URL: ref, Branch: branch, AccessToken: token}
	}
	return RepositoryDescriptor{LocalPath: ref, Branch: branch}
}
