// Package database provides venue ledger instantiation
package database

import (
	"database/sql"
	"fmt"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
)

// TableCreator handles the creation of the ledger schema for a new venue.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the venue's ledger tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

// SeedInitialContent adds the default reference data required for a new venue to function.
func (tc *TableCreator) SeedInitialContent(db *sql.DB) error {
	// Idempotently seed the acquisition channels with their default spend.
	costs := channel.DefaultCosts()
	for _, name := range channel.Names() {
		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM channels WHERE name = ?)", name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check for channel existence: %w", err)
		}
		if exists {
			continue
		}
		if _, err := db.Exec(`INSERT INTO channels (name, monthly_cost, is_active) VALUES (?, ?, 1)`, name, costs[name]); err != nil {
			return fmt.Errorf("failed to insert default channel %s: %w", name, err)
		}
	}
	return nil
}

// Schema definitions for the venue ledger
var tables = []string{
	`CREATE TABLE IF NOT EXISTS leads (id TEXT PRIMARY KEY, sequence INTEGER NOT NULL, client_key TEXT NOT NULL, source TEXT NOT NULL, name TEXT, phone TEXT, email TEXT, channel TEXT NOT NULL, utm_source TEXT, utm_medium TEXT, utm_campaign TEXT, external_client_a TEXT, external_client_b TEXT, metrics_payload TEXT, capture_time TIMESTAMP, created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS clients (id TEXT PRIMARY KEY, client_key TEXT NOT NULL UNIQUE, display_name TEXT, phone TEXT, email TEXT, channel TEXT, segment TEXT NOT NULL DEFAULT 'POTENTIAL', total_visits INTEGER NOT NULL DEFAULT 0, total_revenue REAL NOT NULL DEFAULT 0, first_visit TIMESTAMP, last_visit TIMESTAMP, first_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, last_seen TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS client_visits (id INTEGER PRIMARY KEY AUTOINCREMENT, client_id TEXT NOT NULL REFERENCES clients(id), visit_date TIMESTAMP NOT NULL, amount REAL NOT NULL, status TEXT, party_size INTEGER)`,
	`CREATE TABLE IF NOT EXISTS channels (name TEXT PRIMARY KEY, monthly_cost REAL NOT NULL DEFAULT 0, is_active BOOLEAN NOT NULL DEFAULT 1)`,
	`CREATE TABLE IF NOT EXISTS reservations (id TEXT PRIMARY KEY, name TEXT, phone TEXT, phone_key TEXT, email TEXT, time_from TIMESTAMP, status TEXT, order_sum REAL NOT NULL DEFAULT 0, party_size INTEGER NOT NULL DEFAULT 0, source TEXT, created_at TIMESTAMP, updated_at TIMESTAMP)`,
	`CREATE TABLE IF NOT EXISTS merge_runs (run_id TEXT PRIMARY KEY, started_at TIMESTAMP NOT NULL, finished_at TIMESTAMP, status TEXT NOT NULL, accepted INTEGER NOT NULL DEFAULT 0, duplicates INTEGER NOT NULL DEFAULT 0, failed INTEGER NOT NULL DEFAULT 0, sources_payload TEXT, warnings_payload TEXT)`,
	`CREATE TABLE IF NOT EXISTS preferences (operator_id TEXT PRIMARY KEY, roi_alerts BOOLEAN NOT NULL DEFAULT 1, merge_digest BOOLEAN NOT NULL DEFAULT 0, reserve_digest BOOLEAN NOT NULL DEFAULT 0, email TEXT, changed TIMESTAMP)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_leads_client_key ON leads(client_key)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_channel ON leads(channel)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_sequence ON leads(sequence)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_client_key ON clients(client_key)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_segment ON clients(segment)`,
	`CREATE INDEX IF NOT EXISTS idx_client_visits_client_id ON client_visits(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_client_visits_date ON client_visits(visit_date)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_phone_key ON reservations(phone_key)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_time_from ON reservations(time_from)`,
	`CREATE INDEX IF NOT EXISTS idx_merge_runs_started_at ON merge_runs(started_at)`,
}
