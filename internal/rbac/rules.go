package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"clinician": {
		"catalog:view",
		"attempt:create",
		"answers:save",
		"attempt:score",
		"attempt:view",
	},
	"reviewer": {
		"catalog:view",
		"attempt:view",
		"attempt:export",
	},
	"admin": {
		"*", // everything
	},
}
