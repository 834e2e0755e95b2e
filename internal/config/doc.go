// Package config provides configuration parsing for harmonycn projects.
//
// The configuration is stored in components.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "style": "new-york",
//	  "tailwind": {
//	    "baseColor": "neutral",
//	    "cssVariables": true
//	  },
//	  "aliases": {
//	    "components": "@/components",
//	    "ui": "@/components/ui",
//	    "lib": "@/lib",
//	    "hooks": "@/hooks"
//	  },
//	  "registry": "https://github.com/acme/component-registry",
//	  "paths": {
//	    "components": "src/components"
//	  },
//	  "publish": {
//	    "owner": "acme",
//	    "repo": "component-registry",
//	    "branch": "master"
//	  },
//	  "auth": {
//	    "clientId": "Iv1.0123456789abcdef"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println("Components:", cfg.ComponentsPath())
package config
