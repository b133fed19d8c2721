package validation

import (
	"fmt"

	"github.com/lucci-xyz/pilot/internal/model"
)

// SupportedPermissions lists the permission tokens an API key may carry.
func SupportedPermissions() []string {
	return []string{
		model.PermissionRead,
		model.PermissionWrite,
		model.PermissionExecute,
		model.PermissionWebhook,
	}
}

// Permissions validates that all permission tokens are supported and unique.
func Permissions(perms []string) error {
	if len(perms) == 0 {
		return fmt.Errorf("permissions cannot be empty")
	}

	supported := make(map[string]struct{}, len(SupportedPermissions()))
	for _, p := range SupportedPermissions() {
		supported[p] = struct{}{}
	}

	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if _, ok := supported[p]; !ok {
			return fmt.Errorf("permission %q is not supported", p)
		}
		if _, exists := seen[p]; exists {
			return fmt.Errorf("duplicate permission %q is not allowed", p)
		}
		seen[p] = struct{}{}
	}

	return nil
}

// AgentStatus validates an agent status value.
func AgentStatus(status model.AgentStatus) error {
	switch status {
	case model.AgentActive, model.AgentPaused, model.AgentError, model.AgentNeedsSetup:
		return nil
	}
	return fmt.Errorf("status %q is not supported", status)
}

// ProjectStatus validates a project status value.
func ProjectStatus(status model.ProjectStatus) error {
	switch status {
	case model.ProjectActive, model.ProjectArchived:
		return nil
	}
	return fmt.Errorf("status %q is not supported", status)
}
