package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number.
var migrationsSQL = map[int]string{
	1: migrationV1MonthTables,
	2: migrationV2Settings,
}

// migrationV1MonthTables creates the month-partitioned member schema.
//
// Key design decisions:
//
// 1. ONE SCHEMA, MANY MONTHS
//   - Each month table ("October_2025") is a row in month_tables
//   - members carry the month table they belong to
//   - Nothing is copied between months automatically
//
// 2. ATTENDANCE COLUMNS ARE ROWS
//   - attendance_columns lists the Sundays provisioned for a month,
//     with the "Attendance 5th" name kept for compatibility
//   - attendance_marks holds one row per member per marked Sunday
//   - A missing mark row means "not yet marked", never "absent"
//
// 3. BADGES
//   - badge_tier + badge_source store the Computed/Manual variant
//
// 4. STATUS IS FREE TEXT
//   - Imported data may hold values other than Present/Absent; they decode
//     as unset rather than failing the whole read
const migrationV1MonthTables = `
CREATE TABLE IF NOT EXISTS month_tables (
    name TEXT PRIMARY KEY,
    month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
    year INTEGER NOT NULL CHECK (year BETWEEN 1000 AND 9999),
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE (month, year)
);

CREATE TABLE IF NOT EXISTS attendance_columns (
    month_table TEXT NOT NULL,
    sunday TEXT NOT NULL,          -- YYYY-MM-DD
    name TEXT NOT NULL,            -- "Attendance 5th"
    PRIMARY KEY (month_table, sunday),
    FOREIGN KEY (month_table) REFERENCES month_tables(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS members (
    id TEXT PRIMARY KEY,
    month_table TEXT NOT NULL,
    full_name TEXT NOT NULL,
    gender TEXT NOT NULL CHECK (gender IN ('male', 'female')),
    phone TEXT NOT NULL DEFAULT '',
    age INTEGER,
    level TEXT NOT NULL DEFAULT '',
    join_date TEXT NOT NULL,       -- YYYY-MM-DD
    badge_tier TEXT NOT NULL DEFAULT 'newcomer' CHECK (badge_tier IN ('newcomer', 'member', 'regular')),
    badge_source TEXT NOT NULL DEFAULT 'computed' CHECK (badge_source IN ('computed', 'manual')),
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),
    FOREIGN KEY (month_table) REFERENCES month_tables(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_members_month_table
    ON members(month_table, created_at);

CREATE TABLE IF NOT EXISTS attendance_marks (
    member_id TEXT NOT NULL,
    sunday TEXT NOT NULL,          -- YYYY-MM-DD
    status TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (member_id, sunday),
    FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_attendance_marks_sunday
    ON attendance_marks(sunday);
`

// migrationV2Settings stores per-owner dashboard settings as a JSON document.
const migrationV2Settings = `
CREATE TABLE IF NOT EXISTS settings (
    owner TEXT PRIMARY KEY,
    data TEXT NOT NULL DEFAULT '{}',
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`
