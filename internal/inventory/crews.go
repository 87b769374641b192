package inventory

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/store"
)

// SetCrewLeader makes a user lead a crew. The user's crew and the crew's
// leader are updated together.
func (s *Service) SetCrewLeader(ctx context.Context, crewID, userID int64) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		return store.SetCrewLeader(ctx, tx, crewID, userID)
	})
}

func (s *Service) AddCrewMember(ctx context.Context, crewID, userID int64) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		return store.AddCrewMember(ctx, tx, crewID, userID)
	})
}

func (s *Service) RemoveCrewMember(ctx context.Context, crewID, userID int64) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		return store.RemoveCrewMember(ctx, tx, crewID, userID)
	})
}

func (s *Service) CrewMembers(ctx context.Context, crewID int64) ([]model.User, error) {
	return store.ListCrewMembers(ctx, s.db, crewID)
}

// DeleteCrew soft-deletes a crew that holds nothing.
func (s *Service) DeleteCrew(ctx context.Context, crewID int64) error {
	return s.tx(ctx, func(tx *sqlx.Tx) error {
		return store.DeleteCrew(ctx, tx, crewID, s.clock.Now())
	})
}
