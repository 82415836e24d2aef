package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const translatorSelect = `
	SELECT
		u.id, u.name, u.email, u.mobile, u.translator_type, u.gender,
		u.translator_level, u.towns, u.no_emergency, u.no_nighttime,
		u.no_notification, u.active,
		COALESCE(array_agg(ul.language_id ORDER BY ul.language_id)
			FILTER (WHERE ul.language_id IS NOT NULL), '{}') AS languages
	FROM users u
	LEFT JOIN user_languages ul ON ul.user_id = u.id
	WHERE u.role = 'translator'`

type translatorRow struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	Email          string         `db:"email"`
	Mobile         string         `db:"mobile"`
	Type           string         `db:"translator_type"`
	Gender         string         `db:"gender"`
	Level          string         `db:"translator_level"`
	Towns          pq.StringArray `db:"towns"`
	NoEmergency    bool           `db:"no_emergency"`
	NoNighttime    bool           `db:"no_nighttime"`
	NoNotification bool           `db:"no_notification"`
	Active         bool           `db:"active"`
	Languages      pq.Int64Array  `db:"languages"`
}

func (r *translatorRow) toProfile() domain.TranslatorProfile {
	return domain.TranslatorProfile{
		UserID:         r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Mobile:         r.Mobile,
		Type:           domain.TranslatorType(r.Type),
		Languages:      []int64(r.Languages),
		Gender:         domain.Gender(r.Gender),
		Level:          domain.TranslatorLevel(r.Level),
		Towns:          []string(r.Towns),
		NoEmergency:    r.NoEmergency,
		NoNighttime:    r.NoNighttime,
		NoNotification: r.NoNotification,
		Active:         r.Active,
	}
}

type customerRow struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	Email          string         `db:"email"`
	Mobile         string         `db:"mobile"`
	ConsumerType   string         `db:"consumer_type"`
	CustomerType   string         `db:"customer_type"`
	Towns          pq.StringArray `db:"towns"`
	Address        string         `db:"address"`
	Instructions   string         `db:"instructions"`
	Town           string         `db:"town"`
	NoNighttime    bool           `db:"no_nighttime"`
	NoNotification bool           `db:"no_notification"`
}

// Directory implements domain.Directory over the users tables
type Directory struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ domain.Directory = (*Directory)(nil)

// NewDirectory creates a Directory reading from the client's pool
func NewDirectory(pg *postgresql.Client, logger *slog.Logger) *Directory {
	return &Directory{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// ListActive returns every active translator with languages loaded
func (d *Directory) ListActive(ctx context.Context) ([]domain.TranslatorProfile, error) {
	var rows []translatorRow
	query := translatorSelect + ` AND u.active GROUP BY u.id ORDER BY u.id`
	if err := d.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list translators: %w", err)
	}

	profiles := make([]domain.TranslatorProfile, len(rows))
	for i := range rows {
		profiles[i] = rows[i].toProfile()
	}
	return profiles, nil
}

func (d *Directory) Profile(ctx context.Context, userID int64) (*domain.TranslatorProfile, error) {
	return d.translator(ctx, translatorSelect+` AND u.id = $1 GROUP BY u.id`, userID)
}

func (d *Directory) TranslatorByEmail(ctx context.Context, email string) (*domain.TranslatorProfile, error) {
	return d.translator(ctx, translatorSelect+` AND lower(u.email) = lower($1) GROUP BY u.id`, email)
}

func (d *Directory) translator(ctx context.Context, query string, arg interface{}) (*domain.TranslatorProfile, error) {
	var row translatorRow
	if err := d.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTranslatorNotFound
		}
		return nil, fmt.Errorf("failed to get translator: %w", err)
	}
	p := row.toProfile()
	return &p, nil
}

func (d *Directory) LanguagesOf(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT language_id FROM user_languages WHERE user_id = $1 ORDER BY language_id`
	if err := d.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get languages: %w", err)
	}
	return ids, nil
}

func (d *Directory) BlacklistOf(ctx context.Context, customerID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT translator_id FROM user_blacklist WHERE user_id = $1`
	if err := d.db.SelectContext(ctx, &ids, query, customerID); err != nil {
		return nil, fmt.Errorf("failed to get blacklist: %w", err)
	}
	return ids, nil
}

func (d *Directory) Customer(ctx context.Context, userID int64) (*domain.Customer, error) {
	query := `
		SELECT id, name, email, mobile, consumer_type, customer_type, towns,
			address, instructions, town, no_nighttime, no_notification
		FROM users
		WHERE id = $1 AND role = 'customer'
	`
	var row customerRow
	if err := d.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &domain.Customer{
		UserID:         row.ID,
		Name:           row.Name,
		Email:          row.Email,
		Mobile:         row.Mobile,
		ConsumerType:   domain.ConsumerType(row.ConsumerType),
		CustomerType:   row.CustomerType,
		Towns:          []string(row.Towns),
		Address:        row.Address,
		Instructions:   row.Instructions,
		Town:           row.Town,
		NoNighttime:    row.NoNighttime,
		NoNotification: row.NoNotification,
	}, nil
}

func (d *Directory) LanguageName(ctx context.Context, languageID int64) (string, error) {
	var name string
	if err := d.db.GetContext(ctx, &name, `SELECT language FROM languages WHERE id = $1`, languageID); err != nil {
		return "", fmt.Errorf("failed to get language %d: %w", languageID, err)
	}
	return name, nil
}
