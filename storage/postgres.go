package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type PostgresStorage struct {
	db *sql.DB
}

// OpenPostgres connects to dsn, checks the connection and creates any missing tables.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	store := &PostgresStorage{db: db}
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (p *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

const userColumns = `id, username, discord_id, avatar, trainer_level, pokecoins, pokemon_caught, battle_wins, tournament_wins`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		user   User
		avatar sql.NullString
		counts [5]sql.NullInt64
	)

	err := row.Scan(&user.ID, &user.Username, &user.DiscordID, &avatar,
		&counts[0], &counts[1], &counts[2], &counts[3], &counts[4])
	if err != nil {
		return User{}, err
	}

	user.Avatar = avatar.String
	user.TrainerLevel = int(counts[0].Int64)
	user.Pokecoins = int(counts[1].Int64)
	user.PokemonCaught = int(counts[2].Int64)
	user.BattleWins = int(counts[3].Int64)
	user.TournamentWins = int(counts[4].Int64)

	return user, nil
}

func (p *PostgresStorage) GetUser(ctx context.Context, id int) (User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	return user, notFound(err, "user %d", id)
}

func (p *PostgresStorage) GetUserByDiscordID(ctx context.Context, discordID string) (User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE discord_id = $1`, discordID)
	user, err := scanUser(row)
	return user, notFound(err, "discord user %s", discordID)
}

func (p *PostgresStorage) CreateUser(ctx context.Context, user User) (User, error) {
	if user.TrainerLevel == 0 {
		user.TrainerLevel = 1
	}

	row := p.db.QueryRowContext(ctx,
		`INSERT INTO users (username, discord_id, avatar, trainer_level, pokecoins, pokemon_caught, battle_wins, tournament_wins)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		user.Username, user.DiscordID, user.Avatar, user.TrainerLevel,
		user.Pokecoins, user.PokemonCaught, user.BattleWins, user.TournamentWins)

	created, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("creating user %q: %w", user.Username, err)
	}
	return created, nil
}

const pokemonColumns = `id, name, level, types, image_url, user_id`

func scanPokemon(row rowScanner) (Pokemon, error) {
	var (
		poke     Pokemon
		level    sql.NullInt64
		imageURL sql.NullString
	)

	if err := row.Scan(&poke.ID, &poke.Name, &level, pq.Array(&poke.Types), &imageURL, &poke.UserID); err != nil {
		return Pokemon{}, err
	}

	poke.Level = int(level.Int64)
	poke.ImageURL = imageURL.String

	return poke, nil
}

func (p *PostgresStorage) GetPokemonByID(ctx context.Context, id int) (Pokemon, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+pokemonColumns+` FROM pokemon WHERE id = $1`, id)
	poke, err := scanPokemon(row)
	return poke, notFound(err, "pokemon %d", id)
}

func (p *PostgresStorage) CreatePokemon(ctx context.Context, poke Pokemon) (Pokemon, error) {
	var level sql.NullInt64
	if poke.Level > 0 {
		level = sql.NullInt64{Int64: int64(poke.Level), Valid: true}
	}

	row := p.db.QueryRowContext(ctx,
		`INSERT INTO pokemon (name, level, types, image_url, user_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING `+pokemonColumns,
		poke.Name, level, pq.Array(poke.Types), poke.ImageURL, poke.UserID)

	created, err := scanPokemon(row)
	if err != nil {
		return Pokemon{}, fmt.Errorf("creating pokemon %q: %w", poke.Name, err)
	}
	return created, nil
}

func (p *PostgresStorage) GetUserTeam(ctx context.Context, userID int) ([]Pokemon, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.level, p.types, p.image_url, p.user_id
		FROM user_teams t JOIN pokemon p ON p.id = t.pokemon_id
		WHERE t.user_id = $1
		ORDER BY t.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("loading team of user %d: %w", userID, err)
	}
	defer rows.Close()

	team := []Pokemon{}
	for rows.Next() {
		poke, err := scanPokemon(rows)
		if err != nil {
			return nil, err
		}
		team = append(team, poke)
	}

	return team, rows.Err()
}

func (p *PostgresStorage) AddPokemonToTeam(ctx context.Context, userID int, pokemonID int) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO user_teams (user_id, pokemon_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, pokemonID)
	if err != nil {
		return fmt.Errorf("adding pokemon %d to team of user %d: %w", pokemonID, userID, err)
	}
	return nil
}

func (p *PostgresStorage) CreateActivity(ctx context.Context, activity Activity) (Activity, error) {
	row := p.db.QueryRowContext(ctx,
		`INSERT INTO activities (type, description, timestamp, user_id)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		activity.Type, activity.Description, activity.Timestamp, activity.UserID)

	if err := row.Scan(&activity.ID); err != nil {
		return Activity{}, fmt.Errorf("creating activity: %w", err)
	}
	return activity, nil
}

func (p *PostgresStorage) RecentActivities(ctx context.Context, limit int) ([]Activity, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, type, description, timestamp, user_id FROM activities
		ORDER BY timestamp DESC, id DESC LIMIT NULLIF($1, 0)`, limit)
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	defer rows.Close()

	activities := []Activity{}
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.Type, &a.Description, &a.Timestamp, &a.UserID); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}

	return activities, rows.Err()
}

func (p *PostgresStorage) Close() error {
	return p.db.Close()
}

func notFound(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	subject := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", subject, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", subject, err)
}
