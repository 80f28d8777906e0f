package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/LovationAdmin/family-budget-api/models"
)

// PostgresStore is the relational backend. The schema lives in
// config/migrations and is applied with the migrate command.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *PostgresStore) Close(context.Context) error    { return s.db.Close() }

// withTx runs fn in a transaction and commits when fn returns nil.
func (s *PostgresStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

const uniqueViolation = "23505"

func mapPQErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return mapPQErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Users

const userColumns = `id, name, email, password_hash, active_family_id, families, totp_secret, totp_enabled, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u            models.User
		activeFamily sql.NullString
		totpSecret   sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &activeFamily,
		pq.Array(&u.Families), &totpSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapPQErr(err)
	}
	u.ActiveFamilyID = activeFamily.String
	u.TOTPSecret = totpSecret.String
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, u.ID, u.Name, u.Email, u.PasswordHash, nullString(u.ActiveFamilyID),
		pq.Array(nonNil(u.Families)), nullString(u.TOTPSecret), u.TOTPEnabled, u.CreatedAt, u.UpdatedAt)
	return mapPQErr(err)
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *PostgresStore) ListUsers(ctx context.Context, ids []string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY name`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *models.User) error {
	return expectOne(s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, active_family_id = $5,
		    families = $6, totp_secret = $7, totp_enabled = $8, updated_at = $9
		WHERE id = $1
	`, u.ID, u.Name, u.Email, u.PasswordHash, nullString(u.ActiveFamilyID),
		pq.Array(nonNil(u.Families)), nullString(u.TOTPSecret), u.TOTPEnabled, u.UpdatedAt))
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	return expectOne(s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id))
}

// Sessions

func (s *PostgresStore) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, refresh_token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sess.ID, sess.UserID, sess.RefreshToken, sess.ExpiresAt, sess.CreatedAt)
	return mapPQErr(err)
}

func (s *PostgresStore) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, refresh_token, expires_at, created_at
		FROM sessions
		WHERE refresh_token = $1
	`, token).Scan(&sess.ID, &sess.UserID, &sess.RefreshToken, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, mapPQErr(err)
	}
	return &sess, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	return expectOne(s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id))
}

func (s *PostgresStore) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, t)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Families

const familyColumns = `id, name, members, roles, budget_cap, created_by, created_at, updated_at`

func scanFamily(row rowScanner) (*models.Family, error) {
	var (
		f         models.Family
		roles     []byte
		budgetCap decimal.NullDecimal
	)
	err := row.Scan(&f.ID, &f.Name, pq.Array(&f.Members), &roles, &budgetCap, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, mapPQErr(err)
	}
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &f.Roles); err != nil {
			return nil, fmt.Errorf("decode family roles: %w", err)
		}
	}
	if budgetCap.Valid {
		f.BudgetCap = &budgetCap.Decimal
	}
	return &f, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func encodeRoles(roles map[string]models.Role) ([]byte, error) {
	if roles == nil {
		roles = map[string]models.Role{}
	}
	raw, err := json.Marshal(roles)
	if err != nil {
		return nil, fmt.Errorf("encode family roles: %w", err)
	}
	return raw, nil
}

func (s *PostgresStore) CreateFamily(ctx context.Context, f *models.Family) error {
	roles, err := encodeRoles(f.Roles)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO families (`+familyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, f.ID, f.Name, pq.Array(nonNil(f.Members)), roles, nullDecimal(f.BudgetCap), f.CreatedBy, f.CreatedAt, f.UpdatedAt)
	return mapPQErr(err)
}

func (s *PostgresStore) GetFamily(ctx context.Context, id string) (*models.Family, error) {
	return scanFamily(s.db.QueryRowContext(ctx, `SELECT `+familyColumns+` FROM families WHERE id = $1`, id))
}

func (s *PostgresStore) ListFamilies(ctx context.Context, ids []string) ([]models.Family, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+familyColumns+` FROM families WHERE id = ANY($1) ORDER BY created_at`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Family{}
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateFamily(ctx context.Context, f *models.Family) error {
	roles, err := encodeRoles(f.Roles)
	if err != nil {
		return err
	}
	return expectOne(s.db.ExecContext(ctx, `
		UPDATE families
		SET name = $2, members = $3, roles = $4, budget_cap = $5, updated_at = $6
		WHERE id = $1
	`, f.ID, f.Name, pq.Array(nonNil(f.Members)), roles, nullDecimal(f.BudgetCap), f.UpdatedAt))
}

// DeleteFamily strips the family from its members and deletes it in one
// transaction; budgets, transactions and categories go with it through
// ON DELETE CASCADE.
func (s *PostgresStore) DeleteFamily(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET families = array_remove(families, $1),
			    active_family_id = CASE WHEN active_family_id = $1 THEN NULL ELSE active_family_id END,
			    updated_at = NOW()
			WHERE $1 = ANY(families)
		`, id); err != nil {
			return fmt.Errorf("remove family from users: %w", err)
		}
		return expectOne(tx.ExecContext(ctx, `DELETE FROM families WHERE id = $1`, id))
	})
}

// Transactions

const transactionColumns = `id, amount, type, category, user_id, family_id, note, timestamp, created_at, updated_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t        models.Transaction
		typ      string
		familyID sql.NullString
	)
	err := row.Scan(&t.ID, &t.Amount, &typ, &t.Category, &t.UserID, &familyID, &t.Note,
		&t.Timestamp, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapPQErr(err)
	}
	t.Type = models.TransactionType(typ)
	t.FamilyID = familyID.String
	return &t, nil
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.Amount, string(t.Type), t.Category, t.UserID, nullString(t.FamilyID), t.Note,
		t.Timestamp, t.CreatedAt, t.UpdatedAt)
	return mapPQErr(err)
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (s *PostgresStore) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	return expectOne(s.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount = $2, type = $3, category = $4, note = $5, timestamp = $6, updated_at = $7
		WHERE id = $1
	`, t.ID, t.Amount, string(t.Type), t.Category, t.Note, t.Timestamp, t.UpdatedAt))
}

func (s *PostgresStore) DeleteTransaction(ctx context.Context, id string) error {
	return expectOne(s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id))
}

// where accumulates numbered predicates for a dynamic query.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (s *PostgresStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	w := &where{}
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.FamilyID != "" {
		w.add("family_id = ?", f.FamilyID)
	} else if f.PersonalOnly {
		w.clauses = append(w.clauses, "family_id IS NULL")
	}
	if f.Type != "" {
		w.add("type = ?", string(f.Type))
	}
	if f.Category != "" {
		w.add("lower(category) = lower(?)", f.Category)
	}
	if f.From != nil {
		w.add("timestamp >= ?", *f.From)
	}
	if f.To != nil {
		w.add("timestamp <= ?", *f.To)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + w.String() + ` ORDER BY timestamp DESC, created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteUserTransactions(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = $1`, userID)
	return err
}

// Budgets

const budgetColumns = `id, label, kind, description, target_amount, start_date, end_date, owner_user_id, family_id, is_custom, created_at, updated_at`

func scanBudget(row rowScanner) (*models.Budget, error) {
	var (
		b          models.Budget
		kind       string
		start, end sql.NullTime
		familyID   sql.NullString
	)
	err := row.Scan(&b.ID, &b.Label, &kind, &b.Description, &b.TargetAmount, &start, &end,
		&b.OwnerUserID, &familyID, &b.IsCustom, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, mapPQErr(err)
	}
	b.Kind = models.PeriodKind(kind)
	b.FamilyID = familyID.String
	if start.Valid {
		b.StartDate = &start.Time
	}
	if end.Valid {
		b.EndDate = &end.Time
	}
	return &b, nil
}

func (s *PostgresStore) CreateBudget(ctx context.Context, b *models.Budget) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, b.ID, b.Label, string(b.Kind), b.Description, b.TargetAmount, b.StartDate, b.EndDate,
		b.OwnerUserID, nullString(b.FamilyID), b.IsCustom, b.CreatedAt, b.UpdatedAt)
	return mapPQErr(err)
}

func (s *PostgresStore) GetBudget(ctx context.Context, id string) (*models.Budget, error) {
	return scanBudget(s.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id))
}

func (s *PostgresStore) UpdateBudget(ctx context.Context, b *models.Budget) error {
	return expectOne(s.db.ExecContext(ctx, `
		UPDATE budgets
		SET label = $2, kind = $3, description = $4, target_amount = $5, start_date = $6,
		    end_date = $7, is_custom = $8, updated_at = $9
		WHERE id = $1
	`, b.ID, b.Label, string(b.Kind), b.Description, b.TargetAmount, b.StartDate, b.EndDate,
		b.IsCustom, b.UpdatedAt))
}

func (s *PostgresStore) DeleteBudget(ctx context.Context, id string) error {
	return expectOne(s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id))
}

func (s *PostgresStore) ListBudgets(ctx context.Context, f BudgetFilter) ([]models.Budget, error) {
	w := &where{}
	if f.OwnerUserID != "" {
		w.add("owner_user_id = ?", f.OwnerUserID)
	}
	if f.FamilyID != "" {
		w.add("family_id = ?", f.FamilyID)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets`+w.String()+` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteUserBudgets(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE owner_user_id = $1`, userID)
	return err
}

// Categories

const categoryColumns = `id, name, main_category, is_default, user_id, family_id, created_at`

func scanCategory(row rowScanner) (*models.Category, error) {
	var (
		c                models.Category
		main             string
		userID, familyID sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &main, &c.IsDefault, &userID, &familyID, &c.CreatedAt); err != nil {
		return nil, mapPQErr(err)
	}
	c.MainCategory = models.MainCategory(main)
	c.UserID = userID.String
	c.FamilyID = familyID.String
	return &c, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, c *models.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Name, string(c.MainCategory), c.IsDefault, nullString(c.UserID), nullString(c.FamilyID), c.CreatedAt)
	return mapPQErr(err)
}

func (s *PostgresStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id string) error {
	return expectOne(s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id))
}

func (s *PostgresStore) ListCategories(ctx context.Context, userID, familyID string) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE is_default
		   OR ($1 <> '' AND user_id = $1)
		   OR ($2 <> '' AND family_id = $2)
		ORDER BY is_default DESC, name
	`, userID, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountDefaultCategories(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE is_default`).Scan(&n)
	return n, err
}

func (s *PostgresStore) DeleteUserCategories(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = $1 AND family_id IS NULL`, userID)
	return err
}

var _ Store = (*PostgresStore)(nil)
