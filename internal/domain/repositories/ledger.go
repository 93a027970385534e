// Package repositories defines the repository interfaces for ledger entities.
// These repositories abstract the data persistence details, ensuring the core
// application is clean and decoupled from the database.
package repositories

import (
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
)

type LeadRepository interface {
	FindByID(venueID, leadID string) (*lead.Lead, error)
	FindByClientKey(venueID, clientKey string) ([]*lead.Lead, error)
	FindAll(venueID string) ([]*lead.Lead, error)
	FindSince(venueID string, since time.Time) ([]*lead.Lead, error)
	FindByPeriod(venueID string, from, to time.Time) ([]*lead.Lead, error)
	FindByChannel(venueID, channelName string, from, to time.Time) ([]*lead.Lead, error)
	MaxSequence(venueID string) (int, error)
	Store(venueID string, l *lead.Lead) error
	Update(venueID string, l *lead.Lead) error
	UpdateMetrics(venueID, leadID string, m *lead.WebMetrics) error
	Delete(venueID, leadID string) error
}

type ClientRepository interface {
	FindByID(venueID, id string) (*client.CanonicalClient, error)
	FindByClientKey(venueID, clientKey string) (*client.CanonicalClient, error)
	FindAll(venueID string) ([]*client.CanonicalClient, error)
	FindBySegment(venueID string, segment client.Segment) ([]*client.CanonicalClient, error)
	Store(venueID string, c *client.CanonicalClient) error
	Update(venueID string, c *client.CanonicalClient) error
	UpdateSegment(venueID, id string, segment client.Segment) error
	Delete(venueID, id string) error
}

type ChannelRepository interface {
	FindByName(venueID, name string) (*channel.Channel, error)
	FindAll(venueID string) ([]*channel.Channel, error)
	Store(venueID string, ch *channel.Channel) error
	Update(venueID string, ch *channel.Channel) error
	Delete(venueID, name string) error
}

type ReservationRepository interface {
	FindAll(venueID string) ([]reserve.Reservation, error)
	FindByPhoneKey(venueID, phoneKey string) ([]reserve.Reservation, error)
	FindByPeriod(venueID string, from, to time.Time) ([]reserve.Reservation, error)
	ReplaceAll(venueID string, reservations []reserve.Reservation) error
	MonthlyRevenue(venueID string, from, to time.Time) (float64, error)
}

type MergeRunRepository interface {
	FindByID(venueID, runID string) (*lead.MergeReport, error)
	FindRecent(venueID string, limit int) ([]*lead.MergeReport, error)
	Store(venueID string, report *lead.MergeReport) error
}

// OperatorPreference controls which alert and report deliveries an
// operator receives for a venue.
type OperatorPreference struct {
	OperatorID    string    `json:"operatorId"`
	VenueID       string    `json:"venueId"`
	ROIAlerts     bool      `json:"roiAlerts"`
	MergeDigest   bool      `json:"mergeDigest"`
	ReserveDigest bool      `json:"reserveDigest"`
	Email         string    `json:"email"`
	Changed       time.Time `json:"changed"`
}

type PreferenceRepository interface {
	FindByOperator(venueID, operatorID string) (*OperatorPreference, error)
	FindByVenue(venueID string) ([]*OperatorPreference, error)
	FindROIAlertRecipients(venueID string) ([]*OperatorPreference, error)
	Upsert(venueID string, pref *OperatorPreference) error
	Delete(venueID, operatorID string) error
}
