package agentchat

import "embed"

// MigrationsFS holds the global and per-tenant schema migrations.
//
//go:embed migrations
var MigrationsFS embed.FS
