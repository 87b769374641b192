package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/model"
)

const crewColumns = `id, number, name, leader_id, created_at, deleted_at`

// CreateCrew creates a new crew. Crew numbers are unique among active crews.
func CreateCrew(ctx context.Context, q Querier, number int, name string, at time.Time) (*model.Crew, error) {
	if number <= 0 {
		return nil, fmt.Errorf("%w: crew number must be positive", model.ErrInvalidInput)
	}
	result, err := q.ExecContext(ctx,
		`INSERT INTO crews (number, name, created_at) VALUES (?, ?, ?)`,
		number, name, utc(at),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: crew number %d already exists", model.ErrDuplicateKey, number)
		}
		return nil, fmt.Errorf("creating crew: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting crew id: %w", err)
	}

	return GetCrew(ctx, q, id)
}

// GetCrew returns a crew by ID.
func GetCrew(ctx context.Context, q Querier, id int64) (*model.Crew, error) {
	c := &model.Crew{}
	err := sqlx.GetContext(ctx, q, c, `SELECT `+crewColumns+` FROM crews WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting crew: %w", err)
	}
	return c, nil
}

// GetCrewByNumber returns the active crew with the given number.
func GetCrewByNumber(ctx context.Context, q Querier, number int) (*model.Crew, error) {
	c := &model.Crew{}
	err := sqlx.GetContext(ctx, q, c,
		`SELECT `+crewColumns+` FROM crews WHERE number = ? AND deleted_at IS NULL`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting crew by number: %w", err)
	}
	return c, nil
}

// ListCrews returns all non-deleted crews.
func ListCrews(ctx context.Context, q Querier) ([]model.Crew, error) {
	var crews []model.Crew
	err := sqlx.SelectContext(ctx, q, &crews,
		`SELECT `+crewColumns+` FROM crews WHERE deleted_at IS NULL ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("listing crews: %w", err)
	}
	return crews, nil
}

// UpdateCrew updates a crew's name.
func UpdateCrew(ctx context.Context, q Querier, id int64, name string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE crews SET name = ? WHERE id = ? AND deleted_at IS NULL`,
		name, id,
	)
	if err != nil {
		return fmt.Errorf("updating crew: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: crew %d", model.ErrNotFound, id)
	}
	return nil
}

// DeleteCrew soft-deletes a crew. Fails while the crew holds any inventory.
func DeleteCrew(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error {
	if err := requireCrew(ctx, tx, id); err != nil {
		return err
	}

	var held int
	err := sqlx.GetContext(ctx, tx, &held,
		`SELECT (SELECT COALESCE(SUM(quantity), 0) FROM crew_holdings WHERE crew_id = ?)
		      + (SELECT COUNT(*) FROM batches WHERE holder_crew_id = ? AND status = 'active')`,
		id, id,
	)
	if err != nil {
		return fmt.Errorf("checking crew inventory: %w", err)
	}
	if held > 0 {
		return fmt.Errorf("%w: crew %d still holds inventory", model.ErrNotEmpty, id)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET crew_id = NULL WHERE crew_id = ?`, id); err != nil {
		return fmt.Errorf("releasing crew members: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE crews SET deleted_at = ?, leader_id = NULL WHERE id = ? AND deleted_at IS NULL`,
		utc(at), id,
	)
	if err != nil {
		return fmt.Errorf("deleting crew: %w", err)
	}
	return nil
}

// AddCrewMember moves a user into a crew. A user belongs to at most one crew,
// so leading another crew ends with the move.
func AddCrewMember(ctx context.Context, tx *sqlx.Tx, crewID, userID int64) error {
	if err := requireCrew(ctx, tx, crewID); err != nil {
		return err
	}
	if err := requireUser(ctx, tx, userID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE crews SET leader_id = NULL WHERE leader_id = ? AND id != ?`, userID, crewID,
	); err != nil {
		return fmt.Errorf("clearing previous leadership: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET crew_id = ? WHERE id = ?`, crewID, userID); err != nil {
		return fmt.Errorf("adding crew member: %w", err)
	}
	return nil
}

// SetCrewLeader makes a user the leader of a crew, adding them as a member.
func SetCrewLeader(ctx context.Context, tx *sqlx.Tx, crewID, userID int64) error {
	if err := AddCrewMember(ctx, tx, crewID, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE crews SET leader_id = ? WHERE id = ?`, userID, crewID); err != nil {
		return fmt.Errorf("setting crew leader: %w", err)
	}
	return nil
}

// RemoveCrewMember takes a user out of a crew, clearing leadership as well.
func RemoveCrewMember(ctx context.Context, tx *sqlx.Tx, crewID, userID int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE users SET crew_id = NULL WHERE id = ? AND crew_id = ?`, userID, crewID)
	if err != nil {
		return fmt.Errorf("removing crew member: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %d is not in crew %d", model.ErrNotFound, userID, crewID)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE crews SET leader_id = NULL WHERE id = ? AND leader_id = ?`, crewID, userID,
	); err != nil {
		return fmt.Errorf("clearing crew leader: %w", err)
	}
	return nil
}

// ListCrewMembers returns the active leader and members of a crew.
func ListCrewMembers(ctx context.Context, q Querier, crewID int64) ([]model.User, error) {
	var users []model.User
	err := sqlx.SelectContext(ctx, q, &users,
		`SELECT `+userColumns+` FROM users
		 WHERE deleted_at IS NULL
		   AND (crew_id = ? OR id = (SELECT leader_id FROM crews WHERE id = ?))
		 ORDER BY id`,
		crewID, crewID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing crew members: %w", err)
	}
	return users, nil
}

func requireCrew(ctx context.Context, q Querier, crewID int64) error {
	c, err := GetCrew(ctx, q, crewID)
	if err != nil {
		return err
	}
	if c == nil || c.DeletedAt != nil {
		return fmt.Errorf("%w: crew %d", model.ErrNotFound, crewID)
	}
	return nil
}

func requireUser(ctx context.Context, q Querier, userID int64) error {
	u, err := GetUser(ctx, q, userID)
	if err != nil {
		return err
	}
	if u == nil || u.DeletedAt != nil {
		return fmt.Errorf("%w: user %d", model.ErrNotFound, userID)
	}
	return nil
}
