// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"context"
	"database/sql"
)

// deals.stage carries no CHECK constraint; values outside the registry are
// reported by the aggregator instead of being refused here.
const schema = `
CREATE TABLE IF NOT EXISTS companies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	domain TEXT NOT NULL DEFAULT '',
	industry TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	company_id TEXT,
	notes TEXT NOT NULL DEFAULT '',
	last_contacted_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_contacts_company_id ON contacts(company_id);

CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	amount REAL,
	stage TEXT NOT NULL,
	probability INTEGER NOT NULL DEFAULT 0 CHECK(probability BETWEEN 0 AND 100),
	expected_close_date DATETIME,
	contact_id TEXT,
	company_id TEXT,
	created_by TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE SET NULL,
	FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_deals_stage ON deals(stage);
CREATE INDEX IF NOT EXISTS idx_deals_company_id ON deals(company_id);
CREATE INDEX IF NOT EXISTS idx_deals_contact_id ON deals(contact_id);

CREATE TABLE IF NOT EXISTS activities (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL CHECK(type IN ('call', 'email', 'meeting', 'note', 'task')),
	subject TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	deal_id TEXT,
	contact_id TEXT,
	company_id TEXT,
	due_at DATETIME,
	completed INTEGER NOT NULL DEFAULT 0,
	completed_at DATETIME,
	created_by TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE SET NULL,
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE SET NULL,
	FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_deal_id ON activities(deal_id);
CREATE INDEX IF NOT EXISTS idx_activities_contact_id ON activities(contact_id);
CREATE INDEX IF NOT EXISTS idx_activities_created_at ON activities(created_at DESC);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	channel TEXT NOT NULL DEFAULT '',
	transcript TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_conversations_deal_id ON conversations(deal_id);

CREATE TABLE IF NOT EXISTS conversation_analyses (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	deal_id TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	sentiment TEXT NOT NULL DEFAULT '',
	key_points TEXT NOT NULL DEFAULT '[]',
	objections TEXT NOT NULL DEFAULT '[]',
	next_steps TEXT NOT NULL DEFAULT '[]',
	recommended_stage TEXT NOT NULL DEFAULT '',
	win_probability INTEGER,
	raw_response TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_conversation_analyses_conversation ON conversation_analyses(conversation_id, created_at DESC);
`

func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
