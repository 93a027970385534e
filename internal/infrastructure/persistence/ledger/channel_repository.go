package ledger

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// ChannelRepository is the SQL-based implementation of the acquisition
// channel store. The table is tiny and seeded at venue creation, so the
// whole set is kept write-through in the ledger cache.
type ChannelRepository struct {
	db     *database.DB
	cache  interfaces.LedgerCache
	logger *logging.ChanneledLogger
}

// NewChannelRepository creates a new instance of the repository.
func NewChannelRepository(db *database.DB, cache interfaces.LedgerCache, logger *logging.ChanneledLogger) *ChannelRepository {
	return &ChannelRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// FindByName retrieves one channel definition.
func (r *ChannelRepository) FindByName(venueID, name string) (*channel.Channel, error) {
	if ch, found := r.cache.GetChannel(venueID, name); found {
		return ch, nil
	}

	query := `SELECT name, monthly_cost, is_active FROM channels WHERE name = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading channel from database", "name", name)

	var ch channel.Channel
	err := r.db.QueryRow(query, name).Scan(&ch.Name, &ch.MonthlyCost, &ch.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Database().Error("Failed to scan channel", "error", err.Error(), "name", name)
		return nil, fmt.Errorf("failed to scan channel: %w", err)
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	r.cache.SetChannel(venueID, &ch)
	return &ch, nil
}

// FindAll retrieves every channel definition in stable name order.
func (r *ChannelRepository) FindAll(venueID string) ([]*channel.Channel, error) {
	if channels, found := r.cache.GetAllChannels(venueID); found {
		sortChannels(channels)
		return channels, nil
	}

	query := `SELECT name, monthly_cost, is_active FROM channels ORDER BY name`

	start := time.Now()
	r.logger.Database().Debug("Loading all channels from database")

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to query channels", "error", err.Error())
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []*channel.Channel
	for rows.Next() {
		var ch channel.Channel
		if err := rows.Scan(&ch.Name, &ch.MonthlyCost, &ch.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ch := range channels {
		r.cache.SetChannel(venueID, ch)
	}

	r.logger.Database().Info("Channels loaded from database", "count", len(channels), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return channels, nil
}

// Store inserts a new channel definition.
func (r *ChannelRepository) Store(venueID string, ch *channel.Channel) error {
	query := `INSERT INTO channels (name, monthly_cost, is_active) VALUES (?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing channel insert", "name", ch.Name)

	_, err := r.db.Exec(query, ch.Name, ch.MonthlyCost, ch.IsActive)
	if err != nil {
		r.logger.Database().Error("Channel insert failed", "error", err.Error(), "name", ch.Name)
		return fmt.Errorf("failed to insert channel: %w", err)
	}

	r.logger.Database().Info("Channel insert completed", "name", ch.Name, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	r.cache.SetChannel(venueID, ch)
	return nil
}

// Update rewrites a channel's spend and active flag.
func (r *ChannelRepository) Update(venueID string, ch *channel.Channel) error {
	query := `UPDATE channels SET monthly_cost = ?, is_active = ? WHERE name = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing channel update", "name", ch.Name)

	_, err := r.db.Exec(query, ch.MonthlyCost, ch.IsActive, ch.Name)
	if err != nil {
		r.logger.Database().Error("Channel update failed", "error", err.Error(), "name", ch.Name)
		return fmt.Errorf("failed to update channel: %w", err)
	}

	r.logger.Database().Info("Channel update completed", "name", ch.Name, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	r.cache.SetChannel(venueID, ch)
	return nil
}

// Delete removes a channel definition. Existing leads keep their channel
// attribution; only the spend reference disappears.
func (r *ChannelRepository) Delete(venueID, name string) error {
	query := `DELETE FROM channels WHERE name = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing channel delete", "name", name)

	_, err := r.db.Exec(query, name)
	if err != nil {
		r.logger.Database().Error("Channel delete failed", "error", err.Error(), "name", name)
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	r.logger.Database().Info("Channel delete completed", "name", name, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	r.cache.InvalidateLedgerCache(venueID)
	return nil
}

func sortChannels(channels []*channel.Channel) {
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].Name < channels[j].Name
	})
}
