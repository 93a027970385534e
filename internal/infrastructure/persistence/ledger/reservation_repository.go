package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/identity"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

const reservationColumns = `id, name, phone, email, time_from, status, order_sum,
	       party_size, source, created_at, updated_at`

// ReservationRepository persists the reconciled reservation snapshot. The
// snapshot is replaced wholesale after each sync; reads serve guest
// aggregation and revenue rollups.
type ReservationRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewReservationRepository creates a new instance of the repository.
func NewReservationRepository(db *database.DB, logger *logging.ChanneledLogger) *ReservationRepository {
	return &ReservationRepository{
		db:     db,
		logger: logger,
	}
}

// FindAll retrieves the entire persisted snapshot, newest bookings first.
func (r *ReservationRepository) FindAll(venueID string) ([]reserve.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY time_from DESC`

	start := time.Now()
	r.logger.Database().Debug("Loading reservation snapshot")

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to query reservations", "error", err.Error())
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := r.collectReservations(rows)
	if err != nil {
		return nil, err
	}

	r.logger.Database().Info("Reservation snapshot loaded", "count", len(reservations), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return reservations, nil
}

// FindByPhoneKey retrieves the bookings recorded under one phone suffix.
func (r *ReservationRepository) FindByPhoneKey(venueID, phoneKey string) ([]reserve.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE phone_key = ? ORDER BY time_from DESC`

	start := time.Now()
	r.logger.Database().Debug("Loading reservations by phone key")

	rows, err := r.db.Query(query, phoneKey)
	if err != nil {
		r.logger.Database().Error("Failed to query reservations by phone key", "error", err.Error())
		return nil, fmt.Errorf("failed to query reservations by phone key: %w", err)
	}
	defer rows.Close()

	reservations, err := r.collectReservations(rows)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return reservations, nil
}

// FindByPeriod retrieves bookings whose visit time falls inside the period.
func (r *ReservationRepository) FindByPeriod(venueID string, from, to time.Time) ([]reserve.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE time_from >= ? AND time_from <= ? ORDER BY time_from`

	start := time.Now()
	r.logger.Database().Debug("Loading reservations by period", "from", from, "to", to)

	rows, err := r.db.Query(query, sqlTime(from), sqlTime(to))
	if err != nil {
		r.logger.Database().Error("Failed to query reservations by period", "error", err.Error())
		return nil, fmt.Errorf("failed to query reservations by period: %w", err)
	}
	defer rows.Close()

	reservations, err := r.collectReservations(rows)
	if err != nil {
		return nil, err
	}

	r.logger.Database().Info("Reservations loaded by period", "count", len(reservations), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return reservations, nil
}

// ReplaceAll swaps the persisted snapshot for the freshly reconciled one.
// Records without an id are skipped: they cannot be reconciled on a later
// run, so persisting them would only duplicate their visits. Duplicate ids
// within the batch keep their first occurrence, which is the fresh record
// after a fresh-wins merge.
func (r *ReservationRepository) ReplaceAll(venueID string, reservations []reserve.Reservation) error {
	start := time.Now()
	r.logger.Database().Debug("Replacing reservation snapshot", "count", len(reservations))

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM reservations`); err != nil {
		r.logger.Database().Error("Snapshot clear failed", "error", err.Error())
		return fmt.Errorf("failed to clear reservation snapshot: %w", err)
	}

	query := `INSERT INTO reservations (id, name, phone, phone_key, email, time_from, status,
	          order_sum, party_size, source, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	seen := make(map[string]struct{}, len(reservations))
	stored := 0
	for _, res := range reservations {
		if res.ID == "" {
			continue
		}
		if _, dup := seen[res.ID]; dup {
			continue
		}
		seen[res.ID] = struct{}{}

		_, err = tx.Exec(
			query,
			res.ID,
			res.Name,
			res.Phone,
			identity.PhoneKey(res.Phone),
			res.Email,
			sqlTime(res.TimeFrom),
			res.Status,
			res.OrderSum,
			res.PartySize,
			res.Source,
			sqlTime(res.CreatedAt),
			sqlTime(res.UpdatedAt),
		)
		if err != nil {
			r.logger.Database().Error("Reservation insert failed", "error", err.Error(), "id", res.ID)
			return fmt.Errorf("failed to insert reservation %s: %w", res.ID, err)
		}
		stored++
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot replace: %w", err)
	}

	r.logger.Database().Info("Reservation snapshot replaced", "stored", stored, "skipped", len(reservations)-stored, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery("REPLACE reservations", duration, venueID)
	}
	return nil
}

// MonthlyRevenue sums booking revenue over the period.
func (r *ReservationRepository) MonthlyRevenue(venueID string, from, to time.Time) (float64, error) {
	query := `SELECT COALESCE(SUM(order_sum), 0) FROM reservations WHERE time_from >= ? AND time_from <= ?`

	start := time.Now()
	r.logger.Database().Debug("Summing reservation revenue", "from", from, "to", to)

	var total float64
	if err := r.db.QueryRow(query, sqlTime(from), sqlTime(to)).Scan(&total); err != nil {
		r.logger.Database().Error("Failed to sum reservation revenue", "error", err.Error())
		return 0, fmt.Errorf("failed to sum reservation revenue: %w", err)
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return total, nil
}

func (r *ReservationRepository) collectReservations(rows *sql.Rows) ([]reserve.Reservation, error) {
	var reservations []reserve.Reservation
	for rows.Next() {
		var res reserve.Reservation
		var name, phone, email, status, source sql.NullString
		var timeFrom, createdAt, updatedAt any
		var partySize sql.NullInt64

		err := rows.Scan(
			&res.ID,
			&name,
			&phone,
			&email,
			&timeFrom,
			&status,
			&res.OrderSum,
			&partySize,
			&source,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}

		res.Name = name.String
		res.Phone = phone.String
		res.Email = email.String
		res.Status = status.String
		res.Source = source.String
		res.PartySize = int(partySize.Int64)
		res.TimeFrom = scanTime(timeFrom)
		res.CreatedAt = scanTime(createdAt)
		res.UpdatedAt = scanTime(updatedAt)
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}
