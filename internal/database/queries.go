package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tmht/attendance-api/internal/attendance"
	"github.com/tmht/attendance-api/internal/calendar"
)

// =============================================================================
// Member Queries
// =============================================================================

const memberColumns = `
	id, month_table, full_name, gender, phone, age, level, join_date,
	badge_tier, badge_source, created_at, updated_at
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanMember reads one members row. Marks are loaded separately.
func scanMember(row rowScanner) (*attendance.Member, error) {
	var (
		m                    attendance.Member
		tableName            string
		gender, level        string
		age                  sql.NullInt64
		joinDate             string
		tier, source         string
		createdAt, updatedAt sql.NullString
	)

	err := row.Scan(
		&m.ID,
		&tableName,
		&m.FullName,
		&gender,
		&m.Phone,
		&age,
		&level,
		&joinDate,
		&tier,
		&source,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	table, err := calendar.ParseMonthTable(tableName)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", m.ID, err)
	}
	m.Table = table
	m.Gender = attendance.Gender(gender)
	m.Level = attendance.Level(level)
	if age.Valid {
		a := int(age.Int64)
		m.Age = &a
	}
	m.JoinDate = parseTimestamp(sql.NullString{String: joinDate, Valid: true})
	m.Badge = attendance.Badge{
		Tier:   attendance.Tier(tier),
		Source: attendance.BadgeSource(source),
	}
	m.Marks = []attendance.Mark{}
	m.CreatedAt = parseTimestamp(createdAt)
	m.UpdatedAt = parseTimestamp(updatedAt)

	return &m, nil
}

// CreateMember inserts a member into its month table, with any initial marks.
//
// A missing ID is generated (UUIDv4), a zero badge becomes Computed(newcomer)
// and a zero join date becomes today. Returns ErrNotFound if the month table
// doesn't exist and ErrNoMatchingColumn for a mark without a provisioned column.
func (db *DB) CreateMember(ctx context.Context, m *attendance.Member) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Badge == (attendance.Badge{}) {
		m.Badge = attendance.NewcomerBadge()
	}
	if m.JoinDate.IsZero() {
		m.JoinDate = calendar.DateOnly(time.Now())
	}
	m.FullName = strings.TrimSpace(m.FullName)
	if err := m.Validate(); err != nil {
		return err
	}

	marks := m.Marks
	m.Marks = nil
	for _, mark := range marks {
		m.SetMark(mark.Sunday, mark.Status)
	}
	if m.Marks == nil {
		m.Marks = []attendance.Mark{}
	}

	now := time.Now().UTC()
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := requireMonthTable(ctx, tx, m.Table); err != nil {
			return err
		}
		if err := checkMarkColumns(ctx, tx, m.Table, m.Marks); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO members (
				id, month_table, full_name, gender, phone, age, level, join_date,
				badge_tier, badge_source, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			m.ID,
			m.Table.String(),
			m.FullName,
			string(m.Gender),
			m.Phone,
			nullableAge(m.Age),
			string(m.Level),
			calendar.FormatDate(m.JoinDate),
			string(m.Badge.Tier),
			string(m.Badge.Source),
			now.Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: member %s", ErrDuplicate, m.ID)
			}
			return fmt.Errorf("insert member: %w", err)
		}

		return writeMarks(ctx, tx, m.ID, m.Marks)
	})
	if err != nil {
		return err
	}

	m.CreatedAt = now
	m.UpdatedAt = now

	db.logger.Debug("member created",
		slog.String("table", m.Table.String()),
		slog.String("id", m.ID),
	)
	return nil
}

// GetMember retrieves one member with marks.
// Returns ErrNotFound if the member isn't in table.
func (db *DB) GetMember(ctx context.Context, table calendar.MonthTable, id string) (*attendance.Member, error) {
	return getMember(ctx, db, table, id)
}

func getMember(ctx context.Context, q querier, table calendar.MonthTable, id string) (*attendance.Member, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id = ? AND month_table = ?",
		id, table.String(),
	)

	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: member %s in %s", ErrNotFound, id, table)
		}
		return nil, fmt.Errorf("query member: %w", err)
	}

	marks, err := loadMarks(ctx, q,
		"SELECT member_id, sunday, status FROM attendance_marks WHERE member_id = ? ORDER BY sunday ASC",
		m.ID,
	)
	if err != nil {
		return nil, err
	}
	m.Marks = marks[m.ID]
	if m.Marks == nil {
		m.Marks = []attendance.Mark{}
	}

	return m, nil
}

// ListMembers returns every member of table with marks, in insertion order.
// Returns ErrNotFound if the table doesn't exist.
func (db *DB) ListMembers(ctx context.Context, table calendar.MonthTable) ([]attendance.Member, error) {
	if err := requireMonthTable(ctx, db, table); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE month_table = ? ORDER BY created_at ASC, rowid ASC",
		table.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}

	members := []attendance.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	rows.Close()

	marks, err := loadMarks(ctx, db, `
		SELECT am.member_id, am.sunday, am.status
		FROM attendance_marks am
		JOIN members m ON m.id = am.member_id
		WHERE m.month_table = ?
		ORDER BY am.sunday ASC
	`, table.String())
	if err != nil {
		return nil, err
	}

	for i := range members {
		if got := marks[members[i].ID]; got != nil {
			members[i].Marks = got
		}
	}

	return members, nil
}

// DeleteMember removes a member and its marks.
// Returns ErrNotFound if the member isn't in table.
func (db *DB) DeleteMember(ctx context.Context, table calendar.MonthTable, id string) error {
	result, err := db.ExecContext(ctx,
		"DELETE FROM members WHERE id = ? AND month_table = ?",
		id, table.String(),
	)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: member %s in %s", ErrNotFound, id, table)
	}

	return nil
}

// =============================================================================
// Patches
// =============================================================================

// PatchMember applies patch to one member inside a transaction and returns
// the updated member.
//
// Returns ErrNotFound if the member isn't in table, ErrNoMatchingColumn if a
// patched mark has no provisioned column, and the validation error when the
// patched member is invalid. Nothing is written on error.
func (db *DB) PatchMember(ctx context.Context, table calendar.MonthTable, id string, patch attendance.Patch) (*attendance.Member, error) {
	var updated *attendance.Member

	err := db.WithTx(ctx, func(tx *Tx) error {
		m, err := getMember(ctx, tx, table, id)
		if err != nil {
			return err
		}

		if err := checkMarkColumns(ctx, tx, table, patch.Marks); err != nil {
			return err
		}

		patch.Apply(m)
		m.FullName = strings.TrimSpace(m.FullName)
		if err := m.Validate(); err != nil {
			return err
		}
		m.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, `
			UPDATE members SET
				full_name = ?, gender = ?, phone = ?, age = ?, level = ?, join_date = ?,
				badge_tier = ?, badge_source = ?, updated_at = ?
			WHERE id = ? AND month_table = ?
		`,
			m.FullName,
			string(m.Gender),
			m.Phone,
			nullableAge(m.Age),
			string(m.Level),
			calendar.FormatDate(m.JoinDate),
			string(m.Badge.Tier),
			string(m.Badge.Source),
			m.UpdatedAt.Format(time.RFC3339Nano),
			m.ID,
			table.String(),
		)
		if err != nil {
			return fmt.Errorf("update member: %w", err)
		}

		if err := writeMarks(ctx, tx, m.ID, patch.Marks); err != nil {
			return err
		}

		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// PatchMembersBulk applies the same patch to each id, one transaction per
// member, and reports the outcome per id in input order. A failing id never
// affects the others. The returned error is reserved for failures that stop
// the whole batch, such as a cancelled context or a missing table.
func (db *DB) PatchMembersBulk(ctx context.Context, table calendar.MonthTable, ids []string, patch attendance.Patch) ([]PatchResult, error) {
	if err := requireMonthTable(ctx, db, table); err != nil {
		return nil, err
	}

	results := make([]PatchResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		m, err := db.PatchMember(ctx, table, id, patch)
		results = append(results, PatchResult{ID: id, Member: m, Err: err})
		if err != nil {
			db.logger.Warn("bulk patch failed for member",
				slog.String("table", table.String()),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return results, nil
}

// =============================================================================
// Mark Helpers
// =============================================================================

// checkMarkColumns verifies every mark falls on a provisioned column of table.
func checkMarkColumns(ctx context.Context, q querier, table calendar.MonthTable, marks []attendance.Mark) error {
	if len(marks) == 0 {
		return nil
	}

	_, columns, err := listColumns(ctx, q, table)
	if err != nil {
		return err
	}

	for _, mark := range marks {
		if !table.Contains(mark.Sunday) {
			return fmt.Errorf("%w: %s is outside %s", calendar.ErrNoMatchingColumn, calendar.FormatDate(mark.Sunday), table)
		}
		if _, err := calendar.FindColumn(columns, mark.Sunday); err != nil {
			return err
		}
	}
	return nil
}

// writeMarks upserts set marks and deletes unset ones.
func writeMarks(ctx context.Context, q querier, memberID string, marks []attendance.Mark) error {
	now := nowText()
	for _, mark := range marks {
		sunday := calendar.FormatDate(mark.Sunday)

		if !mark.Status.IsSet() {
			_, err := q.ExecContext(ctx,
				"DELETE FROM attendance_marks WHERE member_id = ? AND sunday = ?",
				memberID, sunday,
			)
			if err != nil {
				return fmt.Errorf("clear mark %s: %w", sunday, err)
			}
			continue
		}

		_, err := q.ExecContext(ctx, `
			INSERT INTO attendance_marks (member_id, sunday, status, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (member_id, sunday) DO UPDATE SET
				status = excluded.status,
				updated_at = excluded.updated_at
		`, memberID, sunday, string(mark.Status), now)
		if err != nil {
			return fmt.Errorf("write mark %s: %w", sunday, err)
		}
	}
	return nil
}

// loadMarks runs a (member_id, sunday, status) query and groups set marks by
// member. Stored values other than Present/Absent decode as unset and are
// dropped.
func loadMarks(ctx context.Context, q querier, query string, args ...any) (map[string][]attendance.Mark, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance marks: %w", err)
	}
	defer rows.Close()

	marks := make(map[string][]attendance.Mark)
	for rows.Next() {
		var memberID, sundayStr, status string
		if err := rows.Scan(&memberID, &sundayStr, &status); err != nil {
			return nil, fmt.Errorf("scan attendance mark: %w", err)
		}

		sunday, err := calendar.ParseDateString(sundayStr)
		if err != nil {
			continue
		}
		parsed := attendance.ParseStatus(status)
		if !parsed.IsSet() {
			continue
		}
		marks[memberID] = append(marks[memberID], attendance.Mark{Sunday: sunday, Status: parsed})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance marks: %w", err)
	}

	return marks, nil
}

func nullableAge(age *int) any {
	if age == nil {
		return nil
	}
	return *age
}
