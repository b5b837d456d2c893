package orchestrator

import "github.com/skylift/skylift/engine/internal/models"

// GenericAPIURLKey is injected for every framework.
const GenericAPIURLKey = "API_URL"

// Build-time environment prefixes that frontend frameworks expose to
// client code. Unknown frameworks get only the generic key.
var frameworkEnvPrefixes = map[string]string{
	"react":   "REACT_APP_",
	"next":    "NEXT_PUBLIC_",
	"nextjs":  "NEXT_PUBLIC_",
	"vue":     "VUE_APP_",
	"nuxt":    "NUXT_PUBLIC_",
	"vite":    "VITE_",
	"svelte":  "VITE_",
	"angular": "NG_APP_",
}

// injectBackendURL makes the backend's address visible to the service's
// build under a generic key and, when the framework is known, under its
// prefixed variant. Only called before the service's deployment starts.
func injectBackendURL(svc *models.Service, apiURL string) {
	if svc.Env == nil {
		svc.Env = make(map[string]string)
	}
	svc.Env[GenericAPIURLKey] = apiURL
	if prefix, ok := frameworkEnvPrefixes[svc.Framework]; ok {
		svc.Env[prefix+GenericAPIURLKey] = apiURL
	}
}
