package db

var sqliteMigrations = []string{
	sqliteLandingPages,
	sqliteLandingPagesIndex,
	sqliteEmailTemplates,
	sqliteEmailTemplatesIndex,
	sqliteAnalytics,
	sqliteAnalyticsIndex,
}

var postgresMigrations = []string{
	postgresLandingPages,
	sqliteLandingPagesIndex,
	postgresEmailTemplates,
	sqliteEmailTemplatesIndex,
	postgresAnalytics,
	sqliteAnalyticsIndex,
}

const sqliteLandingPages = `
CREATE TABLE IF NOT EXISTS landing_pages (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    keywords TEXT NOT NULL DEFAULT '[]',
    analyzed_data TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, url)
);
`

const sqliteLandingPagesIndex = `
CREATE INDEX IF NOT EXISTS idx_landing_pages_user_created ON landing_pages(user_id, created_at);
`

const sqliteEmailTemplates = `
CREATE TABLE IF NOT EXISTS email_templates (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    subject TEXT NOT NULL,
    preheader TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const sqliteEmailTemplatesIndex = `
CREATE INDEX IF NOT EXISTS idx_email_templates_user_updated ON email_templates(user_id, updated_at);
`

const sqliteAnalytics = `
CREATE TABLE IF NOT EXISTS analytics (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    event_data TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const sqliteAnalyticsIndex = `
CREATE INDEX IF NOT EXISTS idx_analytics_user_created ON analytics(user_id, created_at);
`

const postgresLandingPages = `
CREATE TABLE IF NOT EXISTS landing_pages (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    keywords JSONB NOT NULL DEFAULT '[]',
    analyzed_data JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, url)
);
`

const postgresEmailTemplates = `
CREATE TABLE IF NOT EXISTS email_templates (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    subject TEXT NOT NULL,
    preheader TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const postgresAnalytics = `
CREATE TABLE IF NOT EXISTS analytics (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    event_data JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
