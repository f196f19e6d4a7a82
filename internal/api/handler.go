package api

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"tracker-backend/internal/dates"
	"tracker-backend/internal/tracker"
)

// Action names accepted by POST /api/action.
const (
	ActionTrackableCreate = "trackable.create"
	ActionTrackableUpdate = "trackable.update"
	ActionTrackableDelete = "trackable.delete"
	ActionEntrySet        = "entry.set"
	ActionEntryClear      = "entry.clear"
	ActionEntryToggle     = "entry.toggle"
)

type Handler struct {
	svc *tracker.Service
	tz  string
	now func() time.Time
}

// NewHandler serves svc, resolving "today" in the IANA zone tz.
func NewHandler(svc *tracker.Service, tz string) *Handler {
	return &Handler{svc: svc, tz: tz, now: time.Now}
}

func (h *Handler) service() (*tracker.Service, error) {
	if h.svc == nil {
		return nil, NewAppError(CodeServerError, fiber.StatusInternalServerError, "Storage is not configured")
	}
	return h.svc, nil
}

func (h *Handler) today() string {
	return dates.TodayAt(h.now(), h.tz)
}

// Health handles GET /health.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ListTrackables handles GET /api/trackables.
func (h *Handler) ListTrackables(c *fiber.Ctx) error {
	svc, err := h.service()
	if err != nil {
		return err
	}
	list, err := svc.ListTrackables(c.UserContext())
	if err != nil {
		return fromTrackerError(err)
	}
	return respond(c, fiber.StatusOK, list)
}

// TodayStats handles GET /api/stats/today[?date=YYYY-MM-DD].
func (h *Handler) TodayStats(c *fiber.Ctx) error {
	svc, err := h.service()
	if err != nil {
		return err
	}
	date := c.Query("date")
	if date == "" {
		date = h.today()
	}
	stats, err := svc.TodayStats(c.UserContext(), date)
	if err != nil {
		return fromTrackerError(err)
	}
	return respond(c, fiber.StatusOK, stats)
}

// RangeStats handles GET /api/stats?days=N|all.
func (h *Handler) RangeStats(c *fiber.Ctx) error {
	svc, err := h.service()
	if err != nil {
		return err
	}
	end := h.today()
	raw := c.Query("days")

	var stats *tracker.RangeStats
	if raw == "all" {
		stats, err = svc.RangeStatsAll(c.UserContext(), end)
	} else {
		days, convErr := strconv.Atoi(raw)
		if convErr != nil {
			days = tracker.DefaultRangeDays
		}
		stats, err = svc.RangeStats(c.UserContext(), days, end)
	}
	if err != nil {
		return fromTrackerError(err)
	}
	return respond(c, fiber.StatusOK, stats)
}

// Action handles POST /api/action, dispatching on the "action" field.
func (h *Handler) Action(c *fiber.Ctx) error {
	svc, err := h.service()
	if err != nil {
		return err
	}

	body := c.Body()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return InvalidPayloadError("Request body must be a JSON object")
	}
	var action string
	if raw, ok := fields["action"]; !ok || json.Unmarshal(raw, &action) != nil {
		return NewAppError(CodeInvalidAction, fiber.StatusBadRequest, "Missing or invalid action")
	}

	ctx := c.UserContext()
	var (
		status = fiber.StatusOK
		data   any
	)
	switch action {
	case ActionTrackableCreate:
		status = fiber.StatusCreated
		data, err = h.createTrackable(ctx, svc, body)
	case ActionTrackableUpdate:
		data, err = h.updateTrackable(ctx, svc, body)
	case ActionTrackableDelete:
		data, err = h.deleteTrackable(ctx, svc, body)
	case ActionEntrySet, ActionEntryClear, ActionEntryToggle:
		data, err = h.entryAction(ctx, svc, action, body)
	default:
		return NewAppError(CodeInvalidAction, fiber.StatusBadRequest, "Unsupported action: "+action)
	}
	if err != nil {
		return fromTrackerError(err)
	}
	return respond(c, status, data)
}

func (h *Handler) createTrackable(ctx context.Context, svc *tracker.Service, body []byte) (any, error) {
	var in tracker.NewTrackable
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, InvalidValueError("Invalid trackable fields")
	}
	return svc.CreateTrackable(ctx, in)
}

type updateRequest struct {
	ID string `json:"id"`
	tracker.TrackablePatch
}

func (h *Handler) updateTrackable(ctx context.Context, svc *tracker.Service, body []byte) (any, error) {
	var req updateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, InvalidValueError("Invalid trackable fields")
	}
	if req.ID == "" {
		return nil, InvalidValueError("missing id")
	}
	if vt := req.ValueType; vt.Set && !vt.Null && vt.Value != "" && !tracker.IsSupportedValueType(vt.Value) {
		return nil, InvalidValueError("unsupported value_type")
	}
	return svc.UpdateTrackable(ctx, req.ID, req.TrackablePatch)
}

func (h *Handler) deleteTrackable(ctx context.Context, svc *tracker.Service, body []byte) (any, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, InvalidValueError("Invalid id")
	}
	if req.ID == "" {
		return nil, InvalidValueError("missing id")
	}
	deleted, err := svc.SoftDeleteTrackable(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, tracker.ErrNotFound
	}
	return fiber.Map{"deleted": true}, nil
}

type entryRequest struct {
	TrackableID  string          `json:"trackable_id"`
	TrackableKey string          `json:"trackable_key"`
	Date         string          `json:"date"`
	Value        json.RawMessage `json:"value"`
}

type entryResponse struct {
	TrackableID string        `json:"trackable_id"`
	Date        string        `json:"date"`
	Value       tracker.Value `json:"value"`
	IsDefault   bool          `json:"is_default"`
}

func (h *Handler) entryAction(ctx context.Context, svc *tracker.Service, action string, body []byte) (any, error) {
	var req entryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, InvalidValueError("Invalid entry fields")
	}
	if req.TrackableID == "" && req.TrackableKey == "" {
		return nil, InvalidValueError("missing trackable_id or trackable_key")
	}
	if req.Date == "" {
		return nil, InvalidValueError("missing date")
	}
	if !dates.IsValid(req.Date) {
		return nil, tracker.ErrInvalidDate
	}

	t, err := h.resolveTrackable(ctx, svc, req)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionEntryClear:
		if err := svc.ClearEntry(ctx, t.ID, req.Date); err != nil {
			return nil, err
		}
		return fiber.Map{"trackable_id": t.ID, "date": req.Date, "cleared": true}, nil
	case ActionEntryToggle:
		res, err := svc.ToggleEntry(ctx, t, req.Date)
		if err != nil {
			return nil, err
		}
		return entryResponse{TrackableID: t.ID, Date: req.Date, Value: res.Value, IsDefault: res.IsDefault}, nil
	default:
		var raw any
		if len(req.Value) > 0 {
			if err := json.Unmarshal(req.Value, &raw); err != nil {
				return nil, InvalidValueError("Invalid value")
			}
		}
		res, err := svc.SetEntry(ctx, t, req.Date, raw)
		if err != nil {
			return nil, err
		}
		return entryResponse{TrackableID: t.ID, Date: req.Date, Value: res.Value, IsDefault: res.IsDefault}, nil
	}
}

// resolveTrackable looks the trackable up by id, or by key when no id is given.
func (h *Handler) resolveTrackable(ctx context.Context, svc *tracker.Service, req entryRequest) (*tracker.Trackable, error) {
	if req.TrackableID != "" {
		return svc.GetTrackableByID(ctx, req.TrackableID)
	}
	return svc.GetTrackableByKey(ctx, req.TrackableKey)
}
