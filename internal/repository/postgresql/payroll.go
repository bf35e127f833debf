package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const activePeriodConstraint = "uk_payroll_records_active_period"

const recordColumns = `
	id, employee_id, employee_first_name, employee_last_name, period_month, period_year,
	base_salary, currency, status,
	gross_total, total_allowances, total_bonuses, total_deductions, total_others, net_total,
	created_by, submitted_at, approved_by, approved_at, delivered_at,
	confirmed, confirmed_at, confirmation_notes,
	disputed, dispute_reason, disputed_at, disputed_by,
	resolution_notes, resolved_at, resolved_by,
	rejection_notes, rejected_at, rejected_by,
	revision_count, has_pending_revision, dispute_cycles, version, created_at, updated_at`

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

func scanRecord(row pgx.Row) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	var status string
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.EmployeeFirstName, &rec.EmployeeLastName, &rec.PeriodMonth, &rec.PeriodYear,
		&rec.BaseSalary, &rec.Currency, &status,
		&rec.GrossTotal, &rec.TotalAllowances, &rec.TotalBonuses, &rec.TotalDeductions, &rec.TotalOthers, &rec.NetTotal,
		&rec.CreatedBy, &rec.SubmittedAt, &rec.ApprovedBy, &rec.ApprovedAt, &rec.DeliveredAt,
		&rec.Confirmed, &rec.ConfirmedAt, &rec.ConfirmationNotes,
		&rec.Disputed, &rec.DisputeReason, &rec.DisputedAt, &rec.DisputedBy,
		&rec.ResolutionNotes, &rec.ResolvedAt, &rec.ResolvedBy,
		&rec.RejectionNotes, &rec.RejectedAt, &rec.RejectedBy,
		&rec.RevisionCount, &rec.HasPendingRevision, &rec.DisputeCycles, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	rec.Status = payroll.PayrollStatus(status)
	return rec, err
}

// ========== RECORDS ==========

func (r *payrollRepository) CreatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	if record.ID == "" {
		record.ID = uuid.Must(uuid.NewV7()).String()
	}
	if record.Version == 0 {
		record.Version = 1
	}

	query := `
		INSERT INTO payroll_records (
			id, employee_id, employee_first_name, employee_last_name, period_month, period_year,
			base_salary, currency, status,
			gross_total, total_allowances, total_bonuses, total_deductions, total_others, net_total,
			created_by, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING ` + recordColumns

	created, err := scanRecord(q.QueryRow(ctx, query,
		record.ID, record.EmployeeID, record.EmployeeFirstName, record.EmployeeLastName, record.PeriodMonth, record.PeriodYear,
		record.BaseSalary, record.Currency, string(record.Status),
		record.GrossTotal, record.TotalAllowances, record.TotalBonuses, record.TotalDeductions, record.TotalOthers, record.NetTotal,
		record.CreatedBy, record.Version, record.CreatedAt, record.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, activePeriodConstraint) {
			return payroll.PayrollRecord{}, payroll.ErrDuplicatePeriod
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to create payroll record: %w", err)
	}

	items, err := r.insertLineItems(ctx, q, created.ID, record.LineItems, created.CreatedAt)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	created.LineItems = items

	return created, nil
}

func (r *payrollRepository) getRecord(ctx context.Context, id string, forUpdate bool) (payroll.PayrollRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + recordColumns + ` FROM payroll_records WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	itemsByRecord, err := r.loadLineItems(ctx, q, []string{rec.ID})
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	rec.LineItems = itemsByRecord[rec.ID]
	return rec, nil
}

func (r *payrollRepository) GetPayrollRecordByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	return r.getRecord(ctx, id, false)
}

// GetPayrollRecordForUpdate holds a row lock until the surrounding transaction ends.
func (r *payrollRepository) GetPayrollRecordForUpdate(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	return r.getRecord(ctx, id, true)
}

func (r *payrollRepository) HasActiveRecordForPeriod(ctx context.Context, employeeID string, month, year int) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM payroll_records
			WHERE employee_id = $1 AND period_month = $2 AND period_year = $3 AND status <> 'rejected'
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, employeeID, month, year).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check payroll period: %w", err)
	}
	return exists, nil
}

var sortColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"period":        "period_year %[1]s, period_month",
	"net_total":     "net_total",
	"employee_name": "lower(employee_first_name || ' ' || employee_last_name)",
}

func (r *payrollRepository) ListPayrollRecords(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filter.PeriodMonth != nil {
		conditions = append(conditions, fmt.Sprintf("period_month = $%d", argIndex))
		args = append(args, *filter.PeriodMonth)
		argIndex++
	}
	if filter.PeriodYear != nil {
		conditions = append(conditions, fmt.Sprintf("period_year = $%d", argIndex))
		args = append(args, *filter.PeriodYear)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", argIndex))
		args = append(args, *filter.EmployeeID)
		argIndex++
	}
	if len(filter.ExcludeStatuses) > 0 {
		excluded := make([]string, len(filter.ExcludeStatuses))
		for i, s := range filter.ExcludeStatuses {
			excluded[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status <> ALL($%d)", argIndex))
		args = append(args, excluded)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM payroll_records WHERE " + whereClause
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll records: %w", err)
	}

	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	if strings.Contains(column, "%[1]s") {
		column = fmt.Sprintf(column, order)
	}

	query := fmt.Sprintf(`SELECT %s FROM payroll_records WHERE %s ORDER BY %s %s, id %s`,
		recordColumns, whereClause, column, order, order)
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.Limit, (page-1)*filter.Limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll records: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := r.attachLineItems(ctx, q, records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func collectRecords(rows pgx.Rows) ([]payroll.PayrollRecord, error) {
	defer rows.Close()

	records := make([]payroll.PayrollRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll records: %w", err)
	}
	return records, nil
}

// UpdatePayrollRecord writes all mutable columns guarded by the version the
// caller read.
func (r *payrollRepository) UpdatePayrollRecord(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_records SET
			base_salary = $3, status = $4,
			gross_total = $5, total_allowances = $6, total_bonuses = $7,
			total_deductions = $8, total_others = $9, net_total = $10,
			submitted_at = $11, approved_by = $12, approved_at = $13, delivered_at = $14,
			confirmed = $15, confirmed_at = $16, confirmation_notes = $17,
			disputed = $18, dispute_reason = $19, disputed_at = $20, disputed_by = $21,
			resolution_notes = $22, resolved_at = $23, resolved_by = $24,
			rejection_notes = $25, rejected_at = $26, rejected_by = $27,
			revision_count = $28, has_pending_revision = $29, dispute_cycles = $30,
			updated_at = $31, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING ` + recordColumns

	updated, err := scanRecord(q.QueryRow(ctx, query,
		record.ID, record.Version,
		record.BaseSalary, string(record.Status),
		record.GrossTotal, record.TotalAllowances, record.TotalBonuses,
		record.TotalDeductions, record.TotalOthers, record.NetTotal,
		record.SubmittedAt, record.ApprovedBy, record.ApprovedAt, record.DeliveredAt,
		record.Confirmed, record.ConfirmedAt, record.ConfirmationNotes,
		record.Disputed, record.DisputeReason, record.DisputedAt, record.DisputedBy,
		record.ResolutionNotes, record.ResolvedAt, record.ResolvedBy,
		record.RejectionNotes, record.RejectedAt, record.RejectedBy,
		record.RevisionCount, record.HasPendingRevision, record.DisputeCycles,
		record.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either gone or bumped by another writer
			var exists bool
			if qerr := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payroll_records WHERE id = $1)`, record.ID).Scan(&exists); qerr == nil && !exists {
				return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
			}
			return payroll.PayrollRecord{}, payroll.ErrConcurrentModification
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to update payroll record: %w", err)
	}

	updated.LineItems = record.LineItems
	return updated, nil
}

func (r *payrollRepository) ReplaceLineItems(ctx context.Context, recordID string, items []payroll.LineItem) ([]payroll.LineItem, error) {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM payroll_line_items WHERE record_id = $1`, recordID); err != nil {
		return nil, fmt.Errorf("failed to delete line items: %w", err)
	}
	return r.insertLineItems(ctx, q, recordID, items, time.Now().UTC())
}

func (r *payrollRepository) DeletePayrollRecord(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	// Line items and history cascade
	result, err := q.Exec(ctx, `DELETE FROM payroll_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payroll record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return payroll.ErrPayrollRecordNotFound
	}
	return nil
}

// ========== LINE ITEMS ==========

func (r *payrollRepository) insertLineItems(ctx context.Context, q database.Querier, recordID string, items []payroll.LineItem, createdAt time.Time) ([]payroll.LineItem, error) {
	inserted := make([]payroll.LineItem, 0, len(items))
	if len(items) == 0 {
		return inserted, nil
	}

	valueStrings := make([]string, 0, len(items))
	valueArgs := make([]interface{}, 0, len(items)*8)
	for i, it := range items {
		it.ID = uuid.Must(uuid.NewV7()).String()
		it.RecordID = recordID
		it.CreatedAt = createdAt

		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		valueArgs = append(valueArgs, it.ID, recordID, i, string(it.Type), it.Category, it.Description, it.Amount, it.CreatedAt)
		inserted = append(inserted, it)
	}

	query := `INSERT INTO payroll_line_items (id, record_id, position, type, category, description, amount, created_at) VALUES ` +
		strings.Join(valueStrings, ", ")
	if _, err := q.Exec(ctx, query, valueArgs...); err != nil {
		return nil, fmt.Errorf("failed to insert line items: %w", err)
	}
	return inserted, nil
}

func (r *payrollRepository) loadLineItems(ctx context.Context, q database.Querier, recordIDs []string) (map[string][]payroll.LineItem, error) {
	result := make(map[string][]payroll.LineItem, len(recordIDs))
	if len(recordIDs) == 0 {
		return result, nil
	}

	rows, err := q.Query(ctx, `
		SELECT id, record_id, type, category, description, amount, created_at
		FROM payroll_line_items
		WHERE record_id = ANY($1)
		ORDER BY record_id, position
	`, recordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it payroll.LineItem
		var itemType string
		if err := rows.Scan(&it.ID, &it.RecordID, &itemType, &it.Category, &it.Description, &it.Amount, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		it.Type = payroll.LineItemType(itemType)
		result[it.RecordID] = append(result[it.RecordID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate line items: %w", err)
	}

	for _, id := range recordIDs {
		if result[id] == nil {
			result[id] = []payroll.LineItem{}
		}
	}
	return result, nil
}

func (r *payrollRepository) attachLineItems(ctx context.Context, q database.Querier, records []payroll.PayrollRecord) error {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	items, err := r.loadLineItems(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range records {
		records[i].LineItems = items[records[i].ID]
	}
	return nil
}

// ========== HISTORY ==========

func (r *payrollRepository) AppendHistory(ctx context.Context, entry payroll.PayrollHistory) error {
	q := GetQuerier(ctx, r.db)

	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewV7()).String()
	}

	var from, to *string
	if entry.FromStatus != nil {
		s := string(*entry.FromStatus)
		from = &s
	}
	if entry.ToStatus != nil {
		s := string(*entry.ToStatus)
		to = &s
	}

	_, err := q.Exec(ctx, `
		INSERT INTO payroll_history (id, record_id, action, actor_id, actor_role, from_status, to_status, note, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.RecordID, string(entry.Action), entry.ActorID, entry.ActorRole, from, to, entry.Note, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to append payroll history: %w", err)
	}
	return nil
}

func (r *payrollRepository) GetHistory(ctx context.Context, recordID string) ([]payroll.PayrollHistory, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, record_id, action, actor_id, actor_role, from_status, to_status, note, occurred_at
		FROM payroll_history
		WHERE record_id = $1
		ORDER BY occurred_at, id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payroll history: %w", err)
	}
	defer rows.Close()

	entries := make([]payroll.PayrollHistory, 0)
	for rows.Next() {
		var h payroll.PayrollHistory
		var action string
		var from, to *string
		if err := rows.Scan(&h.ID, &h.RecordID, &action, &h.ActorID, &h.ActorRole, &from, &to, &h.Note, &h.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan payroll history: %w", err)
		}
		h.Action = payroll.Operation(action)
		if from != nil {
			s := payroll.PayrollStatus(*from)
			h.FromStatus = &s
		}
		if to != nil {
			s := payroll.PayrollStatus(*to)
			h.ToStatus = &s
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll history: %w", err)
	}
	return entries, nil
}

// ========== AGGREGATIONS ==========

func (r *payrollRepository) GetPayrollSummary(ctx context.Context, month, year int) (payroll.PayrollSummaryResponse, error) {
	q := GetQuerier(ctx, r.db)

	summary := payroll.PayrollSummaryResponse{
		PeriodMonth:      month,
		PeriodYear:       year,
		StatusCounts:     make(map[payroll.PayrollStatus]int),
		TotalsByCurrency: make(map[string]payroll.CurrencySum),
	}
	for _, st := range payroll.AllStatuses() {
		summary.StatusCounts[st] = 0
	}

	rows, err := q.Query(ctx, `
		SELECT status, currency, COUNT(*),
			COALESCE(SUM(gross_total), 0), COALESCE(SUM(net_total), 0),
			COUNT(*) FILTER (WHERE has_pending_revision AND status = 'sent_to_employee')
		FROM payroll_records
		WHERE period_month = $1 AND period_year = $2
		GROUP BY status, currency
	`, month, year)
	if err != nil {
		return payroll.PayrollSummaryResponse{}, fmt.Errorf("failed to query payroll summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status, currency string
			count, pending   int
			gross, net       decimal.Decimal
		)
		if err := rows.Scan(&status, &currency, &count, &gross, &net, &pending); err != nil {
			return payroll.PayrollSummaryResponse{}, fmt.Errorf("failed to scan payroll summary: %w", err)
		}

		st := payroll.PayrollStatus(status)
		summary.TotalRecords += count
		summary.StatusCounts[st] += count
		summary.PendingReconfirmation += pending
		if st == payroll.PayrollStatusDisputed {
			summary.OpenDisputes += count
		}
		if st == payroll.PayrollStatusRejected {
			continue
		}
		sum, ok := summary.TotalsByCurrency[currency]
		if !ok {
			sum = payroll.CurrencySum{GrossTotal: decimal.Zero, NetTotal: decimal.Zero}
		}
		sum.GrossTotal = sum.GrossTotal.Add(gross)
		sum.NetTotal = sum.NetTotal.Add(net)
		summary.TotalsByCurrency[currency] = sum
	}
	if err := rows.Err(); err != nil {
		return payroll.PayrollSummaryResponse{}, fmt.Errorf("failed to iterate payroll summary: %w", err)
	}

	return summary, nil
}

func (r *payrollRepository) ListStaleRecords(ctx context.Context, statuses []payroll.PayrollStatus, updatedBefore time.Time) ([]payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	rows, err := q.Query(ctx, `SELECT `+recordColumns+`
		FROM payroll_records
		WHERE status = ANY($1) AND updated_at < $2
		ORDER BY updated_at
	`, values, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payroll records: %w", err)
	}
	return collectRecords(rows)
}
