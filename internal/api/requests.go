package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tmht/attendance-api/internal/attendance"
	"github.com/tmht/attendance-api/internal/calendar"
	"github.com/tmht/attendance-api/internal/database"
)

// maxBodyBytes caps request bodies; the largest legitimate one is a bulk
// mark of a few hundred ids.
const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON decodes and validates a JSON request body. Unknown fields are
// rejected so typos don't silently do nothing.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return validate.Struct(v)
}

// writeDecodeError reports a decodeJSON failure.
func writeDecodeError(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		WriteValidationError(w, err)
		return
	}
	WriteBadRequest(w, err.Error())
}

// =============================================================================
// Request Bodies
// =============================================================================

type createMonthRequest struct {
	Month   string   `json:"month" validate:"required"`
	Year    int      `json:"year" validate:"required,min=1000,max=9999"`
	Sundays []string `json:"sundays" validate:"omitempty,max=5,dive,datetime=2006-01-02"`
}

type createMemberRequest struct {
	FullName    string            `json:"full_name" validate:"required,max=200"`
	Gender      string            `json:"gender" validate:"required,oneof=male female"`
	Phone       string            `json:"phone" validate:"omitempty,max=32"`
	Age         *int              `json:"age" validate:"omitempty,min=0,max=150"`
	Level       string            `json:"level" validate:"omitempty,oneof=JHS1 JHS2 JHS3 SHS1 SHS2 SHS3 Completed"`
	JoinDate    string            `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
	ManualBadge string            `json:"manual_badge" validate:"omitempty,oneof=newcomer member regular"`
	Attendance  map[string]string `json:"attendance" validate:"omitempty,dive,keys,datetime=2006-01-02,endkeys,omitempty,oneof=Present Absent"`
}

type patchMemberRequest struct {
	FullName   *string           `json:"full_name" validate:"omitempty,min=1,max=200"`
	Gender     *string           `json:"gender" validate:"omitempty,oneof=male female"`
	Phone      *string           `json:"phone" validate:"omitempty,max=32"`
	Age        *int              `json:"age" validate:"omitempty,min=0,max=150"`
	ClearAge   bool              `json:"clear_age"`
	Level      *string           `json:"level" validate:"omitempty,oneof=JHS1 JHS2 JHS3 SHS1 SHS2 SHS3 Completed"`
	JoinDate   *string           `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
	Attendance map[string]string `json:"attendance" validate:"omitempty,dive,keys,datetime=2006-01-02,endkeys,omitempty,oneof=Present Absent"`
}

type markRequest struct {
	MemberID string `json:"member_id" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Present  *bool  `json:"present" validate:"required"`
}

type bulkMarkRequest struct {
	MemberIDs []string `json:"member_ids" validate:"required,min=1,max=500,dive,required"`
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	Present   *bool    `json:"present" validate:"required"`
}

// badgeRequest sets a manual badge; an empty tier clears it.
type badgeRequest struct {
	Tier string `json:"tier" validate:"omitempty,oneof=newcomer member regular"`
}

type settingsRequest struct {
	BadgeFilter   []string `json:"badge_filter" validate:"omitempty,max=3,dive,oneof=newcomer member regular"`
	StickyMonth   string   `json:"sticky_month" validate:"omitempty,max=20"`
	StickySundays []string `json:"sticky_sundays" validate:"omitempty,max=5,dive,datetime=2006-01-02"`
	Theme         string   `json:"theme" validate:"required,oneof=light dark system"`
	Ministries    []string `json:"ministries" validate:"omitempty,max=50,dive,required,max=100"`
}

// =============================================================================
// Conversions
// =============================================================================

// marks converts an attendance map ("2025-10-12": "Present") to marks. An
// empty status clears that Sunday. Keys were validated as dates already.
func marks(attendanceByDate map[string]string) ([]attendance.Mark, error) {
	var out []attendance.Mark
	for dateStr, status := range attendanceByDate {
		date, err := calendar.ParseDateString(dateStr)
		if err != nil {
			return nil, err
		}
		out = append(out, attendance.Mark{Sunday: date, Status: attendance.Status(status)})
	}
	attendance.SortMarks(out)
	return out, nil
}

func (req *createMemberRequest) toMember(table calendar.MonthTable) (*attendance.Member, error) {
	m := &attendance.Member{
		Table:    table,
		FullName: strings.TrimSpace(req.FullName),
		Gender:   attendance.Gender(req.Gender),
		Phone:    strings.TrimSpace(req.Phone),
		Age:      req.Age,
		Level:    attendance.Level(req.Level),
	}

	if req.JoinDate != "" {
		date, err := calendar.ParseDateString(req.JoinDate)
		if err != nil {
			return nil, err
		}
		m.JoinDate = date
	}
	if req.ManualBadge != "" {
		m.Badge = attendance.Manual(attendance.Tier(req.ManualBadge))
	}

	list, err := marks(req.Attendance)
	if err != nil {
		return nil, err
	}
	m.Marks = list
	return m, nil
}

func (req *patchMemberRequest) toPatch() (attendance.Patch, error) {
	patch := attendance.Patch{
		FullName: req.FullName,
		Phone:    req.Phone,
		Age:      req.Age,
		ClearAge: req.ClearAge,
	}
	if req.Gender != nil {
		g := attendance.Gender(*req.Gender)
		patch.Gender = &g
	}
	if req.Level != nil {
		l := attendance.Level(*req.Level)
		patch.Level = &l
	}
	if req.JoinDate != nil {
		date, err := calendar.ParseDateString(*req.JoinDate)
		if err != nil {
			return patch, err
		}
		patch.JoinDate = &date
	}

	list, err := marks(req.Attendance)
	if err != nil {
		return patch, err
	}
	patch.Marks = list
	return patch, nil
}

func (req *createMonthRequest) sundays() ([]time.Time, error) {
	var out []time.Time
	for _, s := range req.Sundays {
		date, err := calendar.ParseDateString(s)
		if err != nil {
			return nil, err
		}
		out = append(out, date)
	}
	return out, nil
}

func (req *settingsRequest) toSettings() *database.Settings {
	s := &database.Settings{
		BadgeFilter:   make([]attendance.Tier, 0, len(req.BadgeFilter)),
		StickyMonth:   req.StickyMonth,
		StickySundays: req.StickySundays,
		Theme:         req.Theme,
		Ministries:    req.Ministries,
	}
	for _, t := range req.BadgeFilter {
		s.BadgeFilter = append(s.BadgeFilter, attendance.Tier(t))
	}
	return s
}
