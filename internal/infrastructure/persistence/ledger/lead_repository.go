package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

const leadColumns = `id, client_key, source, name, phone, email, channel,
	       utm_source, utm_medium, utm_campaign, external_client_a,
	       external_client_b, metrics_payload, capture_time, created_at`

// LeadRepository is the SQL-based implementation of the lead ledger store,
// employing a cache-first strategy for point and full-list reads.
type LeadRepository struct {
	db     *database.DB
	cache  interfaces.LedgerCache
	logger *logging.ChanneledLogger
}

// NewLeadRepository creates a new instance of the repository.
func NewLeadRepository(db *database.DB, cache interfaces.LedgerCache, logger *logging.ChanneledLogger) *LeadRepository {
	return &LeadRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// FindByID retrieves a lead by its ledger identifier.
func (r *LeadRepository) FindByID(venueID, leadID string) (*lead.Lead, error) {
	if l, found := r.cache.GetLead(venueID, leadID); found {
		return l, nil
	}

	l, err := r.loadFromDB(leadID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, nil
	}

	r.cache.SetLead(venueID, l)
	return l, nil
}

// FindByClientKey retrieves every lead recorded under one client key.
func (r *LeadRepository) FindByClientKey(venueID, clientKey string) ([]*lead.Lead, error) {
	if ids, found := r.cache.GetLeadIDsByClientKey(venueID, clientKey); found {
		return r.FindByIDs(venueID, ids)
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE client_key = ? ORDER BY created_at`

	start := time.Now()
	r.logger.Database().Debug("Loading leads by client key", "clientKey", clientKey)

	rows, err := r.db.Query(query, clientKey)
	if err != nil {
		r.logger.Database().Error("Failed to query leads by client key", "error", err.Error(), "clientKey", clientKey)
		return nil, fmt.Errorf("failed to query leads by client key: %w", err)
	}
	defer rows.Close()

	leads, err := r.collectLeads(rows)
	if err != nil {
		return nil, err
	}
	for _, l := range leads {
		r.cache.SetLead(venueID, l)
	}

	r.logger.Database().Info("Leads loaded by client key", "clientKey", clientKey, "count", len(leads), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return leads, nil
}

// FindAll retrieves every lead in the ledger, employing a cache-first strategy.
func (r *LeadRepository) FindAll(venueID string) ([]*lead.Lead, error) {
	// 1. Check cache for the master list of IDs first.
	if ids, found := r.cache.GetAllLeadIDs(venueID); found {
		return r.FindByIDs(venueID, ids)
	}

	// --- CACHE MISS FALLBACK ---
	// 2. Load all IDs from the database.
	ids, err := r.loadAllIDsFromDB()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*lead.Lead{}, nil
	}

	// 3. Set the master ID list in the cache immediately.
	r.cache.SetAllLeadIDs(venueID, ids)

	// 4. Use the robust FindByIDs method to load the actual objects.
	return r.FindByIDs(venueID, ids)
}

// FindByIDs retrieves the given leads, falling back to the database for
// any the cache does not hold.
func (r *LeadRepository) FindByIDs(venueID string, ids []string) ([]*lead.Lead, error) {
	var result []*lead.Lead
	var missingIDs []string

	for _, id := range ids {
		if l, found := r.cache.GetLead(venueID, id); found {
			result = append(result, l)
		} else {
			missingIDs = append(missingIDs, id)
		}
	}

	if len(missingIDs) > 0 {
		missing, err := r.loadMultipleFromDB(missingIDs)
		if err != nil {
			return nil, err
		}

		for _, l := range missing {
			r.cache.SetLead(venueID, l)
			result = append(result, l)
		}
	}

	return result, nil
}

// FindSince retrieves leads recorded in the ledger at or after the given
// instant. Used to build the dedup window for a merge run, so it filters on
// ledger insertion time rather than source capture time.
func (r *LeadRepository) FindSince(venueID string, since time.Time) ([]*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE created_at >= ? ORDER BY sequence`

	start := time.Now()
	r.logger.Database().Debug("Loading leads since", "since", since)

	rows, err := r.db.Query(query, sqlTime(since))
	if err != nil {
		r.logger.Database().Error("Failed to query leads since", "error", err.Error(), "since", since)
		return nil, fmt.Errorf("failed to query leads since %s: %w", since, err)
	}
	defer rows.Close()

	leads, err := r.collectLeads(rows)
	if err != nil {
		return nil, err
	}
	for _, l := range leads {
		r.cache.SetLead(venueID, l)
	}

	r.logger.Database().Info("Leads loaded since", "since", since, "count", len(leads), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return leads, nil
}

// FindByPeriod retrieves leads captured inside the reporting period. Filters
// on source capture time, the business timestamp reports roll up by.
func (r *LeadRepository) FindByPeriod(venueID string, from, to time.Time) ([]*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE capture_time >= ? AND capture_time <= ? ORDER BY capture_time`

	start := time.Now()
	r.logger.Database().Debug("Loading leads by period", "from", from, "to", to)

	rows, err := r.db.Query(query, sqlTime(from), sqlTime(to))
	if err != nil {
		r.logger.Database().Error("Failed to query leads by period", "error", err.Error())
		return nil, fmt.Errorf("failed to query leads by period: %w", err)
	}
	defer rows.Close()

	leads, err := r.collectLeads(rows)
	if err != nil {
		return nil, err
	}

	r.logger.Database().Info("Leads loaded by period", "count", len(leads), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return leads, nil
}

// FindByChannel retrieves leads attributed to one channel inside a period.
func (r *LeadRepository) FindByChannel(venueID, channelName string, from, to time.Time) ([]*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE channel = ? AND capture_time >= ? AND capture_time <= ? ORDER BY capture_time`

	start := time.Now()
	r.logger.Database().Debug("Loading leads by channel", "channel", channelName)

	rows, err := r.db.Query(query, channelName, sqlTime(from), sqlTime(to))
	if err != nil {
		r.logger.Database().Error("Failed to query leads by channel", "error", err.Error(), "channel", channelName)
		return nil, fmt.Errorf("failed to query leads by channel: %w", err)
	}
	defer rows.Close()

	leads, err := r.collectLeads(rows)
	if err != nil {
		return nil, err
	}

	r.logger.Database().Info("Leads loaded by channel", "channel", channelName, "count", len(leads), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return leads, nil
}

// MaxSequence returns the highest sequence ever assigned in the ledger, 0
// when the ledger is empty. Identifiers stay monotonic across deletes
// because the maximum is taken over the persisted column, never recounted.
func (r *LeadRepository) MaxSequence(venueID string) (int, error) {
	query := `SELECT COALESCE(MAX(sequence), 0) FROM leads`

	start := time.Now()
	r.logger.Database().Debug("Loading max lead sequence")

	var maxSeq int
	if err := r.db.QueryRow(query).Scan(&maxSeq); err != nil {
		r.logger.Database().Error("Failed to query max lead sequence", "error", err.Error())
		return 0, fmt.Errorf("failed to query max lead sequence: %w", err)
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return maxSeq, nil
}

// Store inserts an accepted lead into the ledger.
func (r *LeadRepository) Store(venueID string, l *lead.Lead) error {
	query := `INSERT INTO leads (id, sequence, client_key, source, name, phone, email, channel,
	          utm_source, utm_medium, utm_campaign, external_client_a, external_client_b,
	          metrics_payload, capture_time, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	seq, _ := lead.SequenceFromID(l.LeadID)

	start := time.Now()
	r.logger.Database().Debug("Executing lead insert", "id", l.LeadID, "channel", l.Channel)

	_, err := r.db.Exec(
		query,
		l.LeadID,
		seq,
		l.ClientKey,
		l.Source,
		l.Name,
		l.Phone,
		l.Email,
		l.Channel,
		l.UTMSource,
		l.UTMMedium,
		l.UTMCampaign,
		l.ExternalClientA,
		l.ExternalClientB,
		metricsPayload(l.Metrics),
		sqlTime(l.CaptureTime),
		sqlTime(l.CreatedAt),
	)
	if err != nil {
		r.logger.Database().Error("Lead insert failed", "error", err.Error(), "id", l.LeadID)
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	r.logger.Database().Info("Lead insert completed", "id", l.LeadID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	r.cache.SetLead(venueID, l)
	return nil
}

// Update rewrites an existing ledger row.
func (r *LeadRepository) Update(venueID string, l *lead.Lead) error {
	query := `UPDATE leads SET client_key = ?, source = ?, name = ?, phone = ?, email = ?,
	          channel = ?, utm_source = ?, utm_medium = ?, utm_campaign = ?,
	          external_client_a = ?, external_client_b = ?, metrics_payload = ?, capture_time = ?
	          WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing lead update", "id", l.LeadID)

	_, err := r.db.Exec(
		query,
		l.ClientKey,
		l.Source,
		l.Name,
		l.Phone,
		l.Email,
		l.Channel,
		l.UTMSource,
		l.UTMMedium,
		l.UTMCampaign,
		l.ExternalClientA,
		l.ExternalClientB,
		metricsPayload(l.Metrics),
		sqlTime(l.CaptureTime),
		l.LeadID,
	)
	if err != nil {
		r.logger.Database().Error("Lead update failed", "error", err.Error(), "id", l.LeadID)
		return fmt.Errorf("failed to update lead: %w", err)
	}

	r.logger.Database().Info("Lead update completed", "id", l.LeadID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	r.cache.SetLead(venueID, l)
	return nil
}

// UpdateMetrics attaches enrichment metrics to an already stored lead.
func (r *LeadRepository) UpdateMetrics(venueID, leadID string, m *lead.WebMetrics) error {
	query := `UPDATE leads SET metrics_payload = ? WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing lead metrics update", "id", leadID)

	_, err := r.db.Exec(query, metricsPayload(m), leadID)
	if err != nil {
		r.logger.Database().Error("Lead metrics update failed", "error", err.Error(), "id", leadID)
		return fmt.Errorf("failed to update lead metrics: %w", err)
	}

	r.logger.Database().Info("Lead metrics update completed", "id", leadID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	if cached, found := r.cache.GetLead(venueID, leadID); found {
		cached.Metrics = m
		r.cache.SetLead(venueID, cached)
	}
	return nil
}

// Delete removes a lead from the ledger. The sequence it held is never
// reassigned.
func (r *LeadRepository) Delete(venueID, leadID string) error {
	query := `DELETE FROM leads WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing lead delete", "id", leadID)

	_, err := r.db.Exec(query, leadID)
	if err != nil {
		r.logger.Database().Error("Lead delete failed", "error", err.Error(), "id", leadID)
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	r.logger.Database().Info("Lead delete completed", "id", leadID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	r.cache.RemoveLead(venueID, leadID)
	return nil
}

func (r *LeadRepository) loadAllIDsFromDB() ([]string, error) {
	query := `SELECT id FROM leads ORDER BY sequence`

	start := time.Now()
	r.logger.Database().Debug("Loading all lead IDs from database")

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to query lead IDs", "error", err.Error())
		return nil, fmt.Errorf("failed to query lead IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lead ID: %w", err)
		}
		ids = append(ids, id)
	}

	r.logger.Database().Info("Loaded lead IDs from database", "count", len(ids), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, "system")
	}
	return ids, rows.Err()
}

func (r *LeadRepository) loadFromDB(id string) (*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading lead from database", "id", id)

	l, err := r.scanLead(r.db.QueryRow(query, id))
	if err != nil {
		r.logger.Database().Error("Failed to scan lead", "error", err.Error(), "id", id)
		return nil, err
	}
	if l == nil {
		return nil, nil
	}

	r.logger.Database().Info("Lead loaded from database", "id", id, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, "system")
	}
	return l, nil
}

func (r *LeadRepository) loadMultipleFromDB(ids []string) ([]*lead.Lead, error) {
	if len(ids) == 0 {
		return []*lead.Lead{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE id IN (` + strings.Join(placeholders, ",") + `)`

	start := time.Now()
	r.logger.Database().Debug("Loading multiple leads from database", "count", len(ids))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to query multiple leads", "error", err.Error(), "count", len(ids))
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	leads, err := r.collectLeads(rows)
	if err != nil {
		return nil, err
	}

	r.logger.Database().Info("Multiple leads loaded from database", "requested", len(ids), "loaded", len(leads), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, "system")
	}
	return leads, rows.Err()
}

func (r *LeadRepository) collectLeads(rows *sql.Rows) ([]*lead.Lead, error) {
	var leads []*lead.Lead
	for rows.Next() {
		l, err := r.scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// scanLead is a helper function to scan a row into a Lead struct.
func (r *LeadRepository) scanLead(row rowScanner) (*lead.Lead, error) {
	var l lead.Lead
	var name, phone, email sql.NullString
	var utmSource, utmMedium, utmCampaign sql.NullString
	var externalA, externalB, metricsStr sql.NullString
	var captureTime, createdAt any

	err := row.Scan(
		&l.LeadID,
		&l.ClientKey,
		&l.Source,
		&name,
		&phone,
		&email,
		&l.Channel,
		&utmSource,
		&utmMedium,
		&utmCampaign,
		&externalA,
		&externalB,
		&metricsStr,
		&captureTime,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}

	l.Name = name.String
	l.Phone = phone.String
	l.Email = email.String
	l.UTMSource = utmSource.String
	l.UTMMedium = utmMedium.String
	l.UTMCampaign = utmCampaign.String
	l.ExternalClientA = externalA.String
	l.ExternalClientB = externalB.String

	if metricsStr.Valid && metricsStr.String != "" {
		var m lead.WebMetrics
		if err := json.Unmarshal([]byte(metricsStr.String), &m); err == nil {
			l.Metrics = &m
		}
	}

	l.CaptureTime = scanTime(captureTime)
	l.CreatedAt = scanTime(createdAt)
	return &l, nil
}

func metricsPayload(m *lead.WebMetrics) any {
	if m == nil {
		return nil
	}
	b, _ := json.Marshal(m)
	return string(b)
}
