package banner

import (
	"fmt"

	"livechat/pkg/config"
)

const banner = `
██╗     ██╗██╗   ██╗███████╗ ██████╗██╗  ██╗ █████╗ ████████╗
██║     ██║██║   ██║██╔════╝██╔════╝██║  ██║██╔══██╗╚══██╔══╝
██║     ██║██║   ██║█████╗  ██║     ███████║███████║   ██║
██║     ██║╚██╗ ██╔╝██╔══╝  ██║     ██╔══██║██╔══██║   ██║
███████╗██║ ╚████╔╝ ███████╗╚██████╗██║  ██║██║  ██║   ██║
╚══════╝╚═╝  ╚═══╝  ╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// PrintWithEff prints the startup banner using an EffectiveConfigResult so
// runtime info (listen address, db path, config sources) is shown centrally.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config: %s\n", src)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -H 'Authorization: Bearer <token>' 'http://<host>:<port>/v1/chat/all'")
	fmt.Println("curl -X POST -H 'Authorization: Bearer <token>' 'http://<host>:<port>/v1/chat' -d '{\"body\": \"hello\"}'")
	fmt.Println("\n== Production? =================================================")

	if eff.Config != nil && eff.Config.Auth.JWKSURL != "" {
		fmt.Println("- Token verification: configured")
	} else {
		fmt.Println("- Token verification: MISSING (set auth.jwks_url)")
	}

	tlsOK := eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if eff.DBPath != "" {
		fmt.Printf("- DB Path: %s\n", eff.DBPath)
	} else {
		fmt.Println("- DB Path: not set (use --db or LIVECHAT_DB_PATH)")
	}

	if eff.Config != nil && eff.Config.Notify.URL != "" {
		fmt.Println("- Notifications: enabled")
	} else {
		fmt.Println("- Notifications: disabled (set notify.url)")
	}

	retEnabled := false
	retInfo := ""
	if eff.Config != nil {
		retEnabled = eff.Config.Retention.Enabled
		if retEnabled {
			if eff.Config.Retention.Cron != "" {
				retInfo = "cron=" + eff.Config.Retention.Cron
			} else if eff.Config.Retention.Period != "" {
				retInfo = "period=" + eff.Config.Retention.Period
			}
		}
	}
	if retEnabled {
		if retInfo != "" {
			fmt.Printf("- Retention: enabled (%s)\n", retInfo)
		} else {
			fmt.Println("- Retention: enabled")
		}
	} else {
		fmt.Println("- Retention: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}
