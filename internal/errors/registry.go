package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	DocURL   string
}

const docBase = "https://cn.harmonyui.app/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Registry Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryRegistry,
		Message:  "Registry unreachable",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryValidation,
		Message:  "Invalid payload",
		DocURL:   docBase + "E101",
	},

	// ============================================
	// Auth Errors (E110-E119)
	// ============================================

	"E110": {
		Category: CategoryAuth,
		Message:  "Could not reach the authorization server",
		DocURL:   docBase + "E110",
	},
	"E111": {
		Category: CategoryAuth,
		Message:  "Authorization denied",
		DocURL:   docBase + "E111",
	},
	"E112": {
		Category: CategoryAuth,
		Message:  "Authorization expired",
		DocURL:   docBase + "E112",
	},

	// ============================================
	// Publish Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategoryPublish,
		Message:  "Publishing to the registry repository failed",
		DocURL:   docBase + "E120",
	},

	// ============================================
	// Configuration Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryConfig,
		Message:  "Configuration not found",
		DocURL:   docBase + "E130",
	},
	"E131": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		DocURL:   docBase + "E131",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Component not found",
		DocURL:   docBase + "E140",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
