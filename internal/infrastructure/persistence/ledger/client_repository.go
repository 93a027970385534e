package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

const clientColumns = `id, client_key, display_name, phone, email, channel, segment,
	       total_visits, total_revenue, first_visit, last_visit, first_seen, last_seen`

// ClientRepository is the SQL-based implementation of the canonical client
// store. Visit history rows live in a side table and are rewritten whenever
// the owning client is updated.
type ClientRepository struct {
	db     *database.DB
	cache  interfaces.LedgerCache
	logger *logging.ChanneledLogger
}

// NewClientRepository creates a new instance of the repository.
func NewClientRepository(db *database.DB, cache interfaces.LedgerCache, logger *logging.ChanneledLogger) *ClientRepository {
	return &ClientRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// FindByID retrieves a canonical client by its identifier.
func (r *ClientRepository) FindByID(venueID, id string) (*client.CanonicalClient, error) {
	if c, found := r.cache.GetClient(venueID, id); found {
		return c, nil
	}

	c, err := r.loadFromDB(`id = ?`, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	r.cache.SetClient(venueID, c)
	return c, nil
}

// FindByClientKey retrieves the canonical client owning one identity key.
func (r *ClientRepository) FindByClientKey(venueID, clientKey string) (*client.CanonicalClient, error) {
	if c, found := r.cache.GetClientByKey(venueID, clientKey); found {
		return c, nil
	}

	c, err := r.loadFromDB(`client_key = ?`, clientKey)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	r.cache.SetClient(venueID, c)
	return c, nil
}

// FindAll retrieves every canonical client, employing a cache-first strategy.
func (r *ClientRepository) FindAll(venueID string) ([]*client.CanonicalClient, error) {
	if ids, found := r.cache.GetAllClientIDs(venueID); found {
		return r.FindByIDs(venueID, ids)
	}

	ids, err := r.loadAllIDsFromDB()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*client.CanonicalClient{}, nil
	}

	r.cache.SetAllClientIDs(venueID, ids)
	return r.FindByIDs(venueID, ids)
}

// FindByIDs retrieves the given clients, falling back to the database for
// any the cache does not hold.
func (r *ClientRepository) FindByIDs(venueID string, ids []string) ([]*client.CanonicalClient, error) {
	var result []*client.CanonicalClient
	var missingIDs []string

	for _, id := range ids {
		if c, found := r.cache.GetClient(venueID, id); found {
			result = append(result, c)
		} else {
			missingIDs = append(missingIDs, id)
		}
	}

	if len(missingIDs) > 0 {
		missing, err := r.loadMultipleFromDB(missingIDs)
		if err != nil {
			return nil, err
		}

		for _, c := range missing {
			r.cache.SetClient(venueID, c)
			result = append(result, c)
		}
	}

	return result, nil
}

// FindBySegment retrieves the clients whose stored segment echo matches.
// Callers re-derive segments for authoritative classification; this filter
// serves the dashboard listings where the echo is fresh enough.
func (r *ClientRepository) FindBySegment(venueID string, segment client.Segment) ([]*client.CanonicalClient, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE segment = ? ORDER BY total_revenue DESC`

	start := time.Now()
	r.logger.Database().Debug("Loading clients by segment", "segment", segment)

	rows, err := r.db.Query(query, string(segment))
	if err != nil {
		r.logger.Database().Error("Failed to query clients by segment", "error", err.Error(), "segment", segment)
		return nil, fmt.Errorf("failed to query clients by segment: %w", err)
	}
	defer rows.Close()

	clients, err := r.collectClients(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachVisits(clients); err != nil {
		return nil, err
	}
	for _, c := range clients {
		r.cache.SetClient(venueID, c)
	}

	r.logger.Database().Info("Clients loaded by segment", "segment", segment, "count", len(clients), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return clients, nil
}

// Store inserts a new canonical client along with its visit history.
func (r *ClientRepository) Store(venueID string, c *client.CanonicalClient) error {
	start := time.Now()
	r.logger.Database().Debug("Executing client insert", "id", c.ID, "clientKey", c.ClientKey)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin client insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `INSERT INTO clients (id, client_key, display_name, phone, email, channel, segment,
	          total_visits, total_revenue, first_visit, last_visit, first_seen, last_seen)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if c.FirstSeen.IsZero() {
		c.FirstSeen = time.Now().UTC()
	}

	_, err = tx.Exec(
		query,
		c.ID,
		c.ClientKey,
		c.DisplayName,
		c.Phone,
		c.Email,
		c.Channel,
		string(c.Segment),
		c.TotalVisits,
		c.TotalRevenue,
		sqlTime(c.FirstVisit),
		sqlTime(c.LastVisit),
		sqlTime(c.FirstSeen),
		sqlTime(c.LastSeen),
	)
	if err != nil {
		r.logger.Database().Error("Client insert failed", "error", err.Error(), "id", c.ID)
		return fmt.Errorf("failed to insert client: %w", err)
	}

	if err = insertVisits(tx, c.ID, c.VisitHistory); err != nil {
		r.logger.Database().Error("Client visit insert failed", "error", err.Error(), "id", c.ID)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client insert: %w", err)
	}

	r.logger.Database().Info("Client insert completed", "id", c.ID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	r.cache.SetClient(venueID, c)
	return nil
}

// Update rewrites an existing client and replaces its persisted visit
// history with the current capped list.
func (r *ClientRepository) Update(venueID string, c *client.CanonicalClient) error {
	start := time.Now()
	r.logger.Database().Debug("Executing client update", "id", c.ID, "clientKey", c.ClientKey)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin client update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `UPDATE clients SET client_key = ?, display_name = ?, phone = ?, email = ?,
	          channel = ?, segment = ?, total_visits = ?, total_revenue = ?,
	          first_visit = ?, last_visit = ?, last_seen = ?
	          WHERE id = ?`

	_, err = tx.Exec(
		query,
		c.ClientKey,
		c.DisplayName,
		c.Phone,
		c.Email,
		c.Channel,
		string(c.Segment),
		c.TotalVisits,
		c.TotalRevenue,
		sqlTime(c.FirstVisit),
		sqlTime(c.LastVisit),
		sqlTime(c.LastSeen),
		c.ID,
	)
	if err != nil {
		r.logger.Database().Error("Client update failed", "error", err.Error(), "id", c.ID)
		return fmt.Errorf("failed to update client: %w", err)
	}

	if _, err = tx.Exec(`DELETE FROM client_visits WHERE client_id = ?`, c.ID); err != nil {
		r.logger.Database().Error("Client visit delete failed", "error", err.Error(), "id", c.ID)
		return fmt.Errorf("failed to clear client visits: %w", err)
	}
	if err = insertVisits(tx, c.ID, c.VisitHistory); err != nil {
		r.logger.Database().Error("Client visit insert failed", "error", err.Error(), "id", c.ID)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client update: %w", err)
	}

	r.logger.Database().Info("Client update completed", "id", c.ID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	r.cache.SetClient(venueID, c)
	return nil
}

// UpdateSegment rewrites only the stored segment echo.
func (r *ClientRepository) UpdateSegment(venueID, id string, segment client.Segment) error {
	query := `UPDATE clients SET segment = ? WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing client segment update", "id", id, "segment", segment)

	_, err := r.db.Exec(query, string(segment), id)
	if err != nil {
		r.logger.Database().Error("Client segment update failed", "error", err.Error(), "id", id)
		return fmt.Errorf("failed to update client segment: %w", err)
	}

	r.logger.Database().Info("Client segment update completed", "id", id, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	if cached, found := r.cache.GetClient(venueID, id); found {
		cached.Segment = segment
		r.cache.SetClient(venueID, cached)
	}
	return nil
}

// Delete removes a client and its visit history.
func (r *ClientRepository) Delete(venueID, id string) error {
	start := time.Now()
	r.logger.Database().Debug("Executing client delete", "id", id)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin client delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM client_visits WHERE client_id = ?`, id); err != nil {
		r.logger.Database().Error("Client visit delete failed", "error", err.Error(), "id", id)
		return fmt.Errorf("failed to delete client visits: %w", err)
	}
	if _, err = tx.Exec(`DELETE FROM clients WHERE id = ?`, id); err != nil {
		r.logger.Database().Error("Client delete failed", "error", err.Error(), "id", id)
		return fmt.Errorf("failed to delete client: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client delete: %w", err)
	}

	r.logger.Database().Info("Client delete completed", "id", id, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery("DELETE clients", duration, venueID)
	}
	r.cache.RemoveClient(venueID, id)
	return nil
}

func (r *ClientRepository) loadAllIDsFromDB() ([]string, error) {
	query := `SELECT id FROM clients ORDER BY first_seen`

	start := time.Now()
	r.logger.Database().Debug("Loading all client IDs from database")

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to query client IDs", "error", err.Error())
		return nil, fmt.Errorf("failed to query client IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan client ID: %w", err)
		}
		ids = append(ids, id)
	}

	r.logger.Database().Info("Loaded client IDs from database", "count", len(ids), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, "system")
	}
	return ids, rows.Err()
}

func (r *ClientRepository) loadFromDB(where string, arg any) (*client.CanonicalClient, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + where

	start := time.Now()
	r.logger.Database().Debug("Loading client from database")

	c, err := r.scanClient(r.db.QueryRow(query, arg))
	if err != nil {
		r.logger.Database().Error("Failed to scan client", "error", err.Error())
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	if err := r.attachVisits([]*client.CanonicalClient{c}); err != nil {
		return nil, err
	}

	r.logger.Database().Info("Client loaded from database", "id", c.ID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, "system")
	}
	return c, nil
}

func (r *ClientRepository) loadMultipleFromDB(ids []string) ([]*client.CanonicalClient, error) {
	if len(ids) == 0 {
		return []*client.CanonicalClient{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT ` + clientColumns + ` FROM clients WHERE id IN (` + strings.Join(placeholders, ",") + `)`

	start := time.Now()
	r.logger.Database().Debug("Loading multiple clients from database", "count", len(ids))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query multiple clients", "error", err.Error(), "count", len(ids))
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	clients, err := r.collectClients(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachVisits(clients); err != nil {
		return nil, err
	}

	r.logger.Database().Info("Multiple clients loaded from database", "requested", len(ids), "loaded", len(clients), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, "system")
	}
	return clients, rows.Err()
}

// attachVisits bulk loads the visit history rows for the given clients,
// newest first.
func (r *ClientRepository) attachVisits(clients []*client.CanonicalClient) error {
	if len(clients) == 0 {
		return nil
	}

	placeholders := make([]string, len(clients))
	args := make([]any, len(clients))
	byID := make(map[string]*client.CanonicalClient, len(clients))
	for i, c := range clients {
		placeholders[i] = "?"
		args[i] = c.ID
		byID[c.ID] = c
		c.VisitHistory = nil
	}

	query := `SELECT client_id, visit_date, amount, status, party_size
	          FROM client_visits WHERE client_id IN (` + strings.Join(placeholders, ",") + `)
	          ORDER BY visit_date DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query client visits", "error", err.Error())
		return fmt.Errorf("failed to query client visits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var clientID string
		var visitDate any
		var v client.Visit
		var status sql.NullString
		var partySize sql.NullInt64

		if err := rows.Scan(&clientID, &visitDate, &v.Amount, &status, &partySize); err != nil {
			return fmt.Errorf("failed to scan client visit: %w", err)
		}
		v.Date = scanTime(visitDate)
		v.Status = status.String
		v.PartySize = int(partySize.Int64)

		if c, ok := byID[clientID]; ok {
			c.VisitHistory = append(c.VisitHistory, v)
		}
	}
	return rows.Err()
}

func (r *ClientRepository) collectClients(rows *sql.Rows) ([]*client.CanonicalClient, error) {
	var clients []*client.CanonicalClient
	for rows.Next() {
		c, err := r.scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// scanClient is a helper function to scan a row into a CanonicalClient struct.
func (r *ClientRepository) scanClient(row rowScanner) (*client.CanonicalClient, error) {
	var c client.CanonicalClient
	var displayName, phone, email, channelName sql.NullString
	var segment string
	var firstVisit, lastVisit, firstSeen, lastSeen any

	err := row.Scan(
		&c.ID,
		&c.ClientKey,
		&displayName,
		&phone,
		&email,
		&channelName,
		&segment,
		&c.TotalVisits,
		&c.TotalRevenue,
		&firstVisit,
		&lastVisit,
		&firstSeen,
		&lastSeen,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan client: %w", err)
	}

	c.DisplayName = displayName.String
	c.Phone = phone.String
	c.Email = email.String
	c.Channel = channelName.String
	c.Segment = client.Segment(segment)
	c.FirstVisit = scanTime(firstVisit)
	c.LastVisit = scanTime(lastVisit)
	c.FirstSeen = scanTime(firstSeen)
	c.LastSeen = scanTime(lastSeen)
	return &c, nil
}

func insertVisits(tx *sql.Tx, clientID string, visits []client.Visit) error {
	for _, v := range visits {
		_, err := tx.Exec(
			`INSERT INTO client_visits (client_id, visit_date, amount, status, party_size) VALUES (?, ?, ?, ?, ?)`,
			clientID, sqlTime(v.Date), v.Amount, v.Status, v.PartySize,
		)
		if err != nil {
			return fmt.Errorf("failed to insert client visit: %w", err)
		}
	}
	return nil
}
