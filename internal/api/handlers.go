package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tmht/attendance-api/internal/attendance"
	"github.com/tmht/attendance-api/internal/calendar"
	"github.com/tmht/attendance-api/internal/config"
	"github.com/tmht/attendance-api/internal/database"
	"github.com/tmht/attendance-api/internal/logger"
	"github.com/tmht/attendance-api/internal/roster"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	db     *database.DB
	roster *roster.Service
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *database.DB, cfg *config.Config, log *slog.Logger) *Handlers {
	return &Handlers{
		db:     db,
		roster: roster.NewService(db, log),
		cfg:    cfg,
		logger: log,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Health(r.Context()); err != nil {
		h.logger.Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	WriteSuccess(w, map[string]string{
		"status": "healthy",
	})
}

// =============================================================================
// Calendar
// =============================================================================

// sundaysResponse lists the Sundays of a month with their column names.
type sundaysResponse struct {
	Table   string      `json:"table"`
	Sundays []time.Time `json:"sundays"`
	Columns []string    `json:"columns"`
	Default *time.Time  `json:"default,omitempty"`
	Feasts  []string    `json:"feasts"` // "" when the Sunday has no feast name
}

// GetSundays handles GET /api/v1/sundays?month=October&year=2025
// Both parameters default to the current month in the configured time zone.
func (h *Handlers) GetSundays(w http.ResponseWriter, r *http.Request) {
	current := calendar.MonthTableFor(h.cfg.Today())

	monthName := r.URL.Query().Get("month")
	if monthName == "" {
		monthName = current.Month.String()
	}

	year := current.Year
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil {
			WriteBadRequest(w, "year must be a number")
			return
		}
		year = parsed
	}

	sundays, err := calendar.SundaysInMonth(monthName, year)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	resp := sundaysResponse{
		Table:   calendar.MonthTableFor(sundays[0]).String(),
		Sundays: sundays,
		Columns: make([]string, len(sundays)),
		Feasts:  make([]string, len(sundays)),
	}
	for i, sunday := range sundays {
		resp.Columns[i] = calendar.ColumnName(sunday)
		resp.Feasts[i] = calendar.FeastName(sunday)
	}
	if def, err := calendar.DefaultSunday(sundays); err == nil {
		resp.Default = &def
	}

	WriteSuccess(w, resp)
}

// =============================================================================
// Month Tables
// =============================================================================

// ListMonths handles GET /api/v1/months
func (h *Handlers) ListMonths(w http.ResponseWriter, r *http.Request) {
	tables, err := h.db.ListMonthTables(r.Context())
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, tables)
}

// CreateMonth handles POST /api/v1/months
func (h *Handlers) CreateMonth(w http.ResponseWriter, r *http.Request) {
	var req createMonthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	table, err := calendar.NewMonthTable(req.Month, req.Year)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	sundays, err := req.sundays()
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	info, err := h.db.CreateMonthTable(r.Context(), table, sundays)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	WriteCreated(w, info)
}

// GetMonth handles GET /api/v1/months/{table}
func (h *Handlers) GetMonth(w http.ResponseWriter, r *http.Request) {
	info, err := h.db.GetMonthTable(r.Context(), tableFrom(r.Context()))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, info)
}

// DeleteMonth handles DELETE /api/v1/months/{table}
func (h *Handlers) DeleteMonth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.db.DeleteMonthTable(ctx, tableFrom(ctx)); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	logger.Info(ctx, "month table deleted via API")
	w.WriteHeader(http.StatusNoContent)
}

// GetAvailableSundays handles GET /api/v1/months/{table}/sundays
func (h *Handlers) GetAvailableSundays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts, err := h.roster.AvailableSundays(ctx, tableFrom(ctx))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, opts)
}

// =============================================================================
// Members
// =============================================================================

// memberResponse is a member with its attendance rate.
type memberResponse struct {
	attendance.Member
	Rate int `json:"attendance_rate"`
}

func toMemberResponse(m *attendance.Member) memberResponse {
	return memberResponse{Member: *m, Rate: m.Rate()}
}

// ListMembers handles GET /api/v1/months/{table}/members?q=&badge=regular,member
func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tiers, err := parseTiers(r.URL.Query().Get("badge"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	members, err := h.roster.Search(ctx, tableFrom(ctx), r.URL.Query().Get("q"), tiers)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for i := range members {
		resp = append(resp, toMemberResponse(&members[i]))
	}
	WriteSuccess(w, resp)
}

// parseTiers reads a comma-separated badge filter.
func parseTiers(raw string) ([]attendance.Tier, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var tiers []attendance.Tier
	for _, part := range strings.Split(raw, ",") {
		tier, err := attendance.ParseTier(part)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

// CreateMember handles POST /api/v1/months/{table}/members
func (h *Handlers) CreateMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	m, err := req.toMember(tableFrom(ctx))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	if err := h.db.CreateMember(ctx, m); err != nil {
		WriteDomainError(w, r, err)
		return
	}

	logger.Info(ctx, "member created", slog.String("member_id", m.ID))
	WriteCreated(w, toMemberResponse(m))
}

// GetMember handles GET /api/v1/months/{table}/members/{id}
func (h *Handlers) GetMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.db.GetMember(ctx, tableFrom(ctx), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, toMemberResponse(m))
}

// PatchMember handles PATCH /api/v1/months/{table}/members/{id}
func (h *Handlers) PatchMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req patchMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	m, err := h.db.PatchMember(ctx, tableFrom(ctx), chi.URLParam(r, "id"), patch)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, toMemberResponse(m))
}

// DeleteMember handles DELETE /api/v1/months/{table}/members/{id}
func (h *Handlers) DeleteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := h.db.DeleteMember(ctx, tableFrom(ctx), id); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	logger.Info(ctx, "member deleted", slog.String("member_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// SetBadge handles PUT /api/v1/months/{table}/members/{id}/badge
// {"tier": "regular"} pins a manual badge; {"tier": ""} clears it.
func (h *Handlers) SetBadge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req badgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	table, id := tableFrom(ctx), chi.URLParam(r, "id")

	var (
		m   *attendance.Member
		err error
	)
	if req.Tier == "" {
		m, err = h.roster.ClearManualBadge(ctx, table, id)
	} else {
		m, err = h.roster.SetManualBadge(ctx, table, id, attendance.Tier(req.Tier))
	}
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, toMemberResponse(m))
}

// =============================================================================
// Attendance
// =============================================================================

// MarkAttendance handles POST /api/v1/months/{table}/attendance
func (h *Handlers) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req markRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	date, err := calendar.ParseDateString(req.Date)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	m, err := h.roster.MarkAttendance(ctx, tableFrom(ctx), req.MemberID, date, *req.Present)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, toMemberResponse(m))
}

// bulkResult is one id's outcome in a bulk mark.
type bulkResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkMarkAttendance handles POST /api/v1/months/{table}/attendance/bulk
// Responds 200 even when some ids fail; each result says how it went.
func (h *Handlers) BulkMarkAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bulkMarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	date, err := calendar.ParseDateString(req.Date)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	results, err := h.roster.BulkMarkAttendance(ctx, tableFrom(ctx), req.MemberIDs, date, *req.Present)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	resp := struct {
		Column    string       `json:"column"`
		Succeeded int          `json:"succeeded"`
		Failed    int          `json:"failed"`
		Results   []bulkResult `json:"results"`
	}{
		Column:  calendar.ColumnName(date),
		Results: make([]bulkResult, 0, len(results)),
	}
	for _, res := range results {
		item := bulkResult{ID: res.ID, Success: res.OK()}
		if res.OK() {
			resp.Succeeded++
		} else {
			resp.Failed++
			item.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, item)
	}

	WriteSuccess(w, resp)
}

// GetAttendance handles GET /api/v1/months/{table}/attendance?date=YYYY-MM-DD
// Without date it uses the table's default Sunday.
func (h *Handlers) GetAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	table := tableFrom(ctx)

	var date time.Time
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := calendar.ParseDateString(dateStr)
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}
		date = parsed
	} else {
		opts, err := h.roster.AvailableSundays(ctx, table)
		if err != nil {
			WriteDomainError(w, r, err)
			return
		}
		if opts.Default == nil {
			WriteError(w, http.StatusUnprocessableEntity, "month table has no attendance columns", CodeNoMatchingColumn)
			return
		}
		date = *opts.Default
	}

	marks, err := h.roster.AttendanceForDate(ctx, table, date)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	WriteSuccess(w, map[string]any{
		"date":       calendar.FormatDate(date),
		"column":     calendar.ColumnName(date),
		"attendance": marks,
	})
}

// GetSummary handles GET /api/v1/months/{table}/summary
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.roster.Summary(ctx, tableFrom(ctx))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, summary)
}

// RefreshBadges handles POST /api/v1/months/{table}/badges/refresh?dry_run=true
func (h *Handlers) RefreshBadges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			WriteBadRequest(w, "dry_run must be true or false")
			return
		}
		dryRun = parsed
	}

	report, err := h.roster.RefreshBadges(ctx, tableFrom(ctx), dryRun)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, report)
}

// =============================================================================
// Settings
// =============================================================================

// GetSettings handles GET /api/v1/settings
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.db.LoadSettings(r.Context(), h.cfg.SettingsOwner)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, settings)
}

// PutSettings handles PUT /api/v1/settings
func (h *Handlers) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	settings := req.toSettings()
	if err := h.db.SaveSettings(r.Context(), h.cfg.SettingsOwner, settings); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteSuccess(w, settings)
}
