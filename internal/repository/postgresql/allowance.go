package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const allowanceColumns = `id, employee_id, name, amount, currency, active, effective_date, end_date, created_at, updated_at`

type allowanceRepository struct {
	db *database.DB
}

func NewRecurringAllowanceRepository(db *database.DB) payroll.RecurringAllowanceRepository {
	return &allowanceRepository{db: db}
}

func scanAllowances(rows pgx.Rows) ([]payroll.RecurringAllowance, error) {
	defer rows.Close()

	result := make([]payroll.RecurringAllowance, 0)
	for rows.Next() {
		var a payroll.RecurringAllowance
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.Name, &a.Amount, &a.Currency, &a.Active,
			&a.EffectiveDate, &a.EndDate, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recurring allowance: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring allowances: %w", err)
	}
	return result, nil
}

func (r *allowanceRepository) CreateRecurringAllowance(ctx context.Context, allowance payroll.RecurringAllowance) (payroll.RecurringAllowance, error) {
	q := GetQuerier(ctx, r.db)

	if allowance.ID == "" {
		allowance.ID = uuid.Must(uuid.NewV7()).String()
	}

	_, err := q.Exec(ctx, `
		INSERT INTO recurring_allowances (`+allowanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, allowance.ID, allowance.EmployeeID, allowance.Name, allowance.Amount, allowance.Currency, allowance.Active,
		allowance.EffectiveDate, allowance.EndDate, allowance.CreatedAt, allowance.UpdatedAt)
	if err != nil {
		return payroll.RecurringAllowance{}, fmt.Errorf("failed to create recurring allowance: %w", err)
	}
	return allowance, nil
}

func (r *allowanceRepository) GetActiveRecurringAllowances(ctx context.Context, employeeID string, asOf time.Time) ([]payroll.RecurringAllowance, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+allowanceColumns+`
		FROM recurring_allowances
		WHERE employee_id = $1 AND active
			AND effective_date <= $2::date
			AND (end_date IS NULL OR end_date >= $2::date)
		ORDER BY created_at, id
	`, employeeID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query active recurring allowances: %w", err)
	}
	return scanAllowances(rows)
}

func (r *allowanceRepository) ListRecurringAllowances(ctx context.Context, employeeID string) ([]payroll.RecurringAllowance, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+allowanceColumns+`
		FROM recurring_allowances
		WHERE employee_id = $1
		ORDER BY created_at, id
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring allowances: %w", err)
	}
	return scanAllowances(rows)
}

func (r *allowanceRepository) DeactivateRecurringAllowance(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return payroll.ErrRecurringAllowanceNotFound
	}
	q := GetQuerier(ctx, r.db)

	result, err := q.Exec(ctx, `
		UPDATE recurring_allowances SET active = FALSE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate recurring allowance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return payroll.ErrRecurringAllowanceNotFound
	}
	return nil
}
