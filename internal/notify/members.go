package notify

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/store"
)

// StoreMembers resolves crew members from the database.
type StoreMembers struct {
	DB *sqlx.DB
}

func (s *StoreMembers) CrewMembers(ctx context.Context, crewID int64) ([]Member, error) {
	users, err := store.ListCrewMembers(ctx, s.DB, crewID)
	if err != nil {
		return nil, err
	}
	members := make([]Member, len(users))
	for i, u := range users {
		members[i] = Member{UserID: u.ID, Token: u.PushToken}
	}
	return members, nil
}
