package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"travel_inventory/internal/adapters/observability"
	"travel_inventory/internal/app"
	"travel_inventory/internal/domain"
)

const (
	maxSearchIDs   = 200
	streamKeepLive = 25 * time.Second
)

type Handlers struct {
	Bookings *app.BookingService
	Calendar *app.CalendarService
	Filter   *app.ListingFilter
	// Stream is optional; without it the SSE route answers 503.
	Stream domain.ChangeSubscriber
}

type errorBody struct {
	Message string `json:"message"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/rooms/{id}/availability/stream", h.streamAvailability)

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(requestTimeout))

		r.Post("/bookings", h.createBooking)
		r.Get("/bookings/{id}", h.getBooking)

		r.Get("/rooms/{id}/quote", h.quote)
		r.Get("/rooms/{id}/availability", h.availability)
		r.Get("/listings/search", h.searchListings)

		r.Post("/services/{id}/inventory/bulk", h.bulkUpdate)
		r.Post("/services/{id}/inventory/sparse", h.sparseUpdate)
		r.Post("/services/{id}/inventory/block", h.toggleBlock)
		r.Delete("/services/{id}/inventory", h.resetInventory)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write cacheable body")
	}
}

// writeDomainError maps service errors to the guest-facing messages; only storage failures are 500s.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		conflict *domain.ConflictError
		invalid  *domain.ValidationError
	)
	switch {
	case errors.Is(err, domain.ErrConsentRequired):
		writeError(w, http.StatusBadRequest, "Consent is required")
	case errors.Is(err, domain.ErrPricingUnavailable):
		writeError(w, http.StatusBadRequest, "Pricing not set for the selected dates")
	case errors.As(err, &conflict):
		writeError(w, http.StatusBadRequest, "Conflict: "+conflict.Detail())
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusBadRequest, "Conflict: the selected dates are no longer available")
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		log.Error().Err(err).Str("route", routeOf(r)).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func bookingOutcome(err error) string {
	var invalid *domain.ValidationError
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, domain.ErrConsentRequired):
		return "consent_required"
	case errors.Is(err, domain.ErrPricingUnavailable):
		return "pricing_unavailable"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrCapacityExceeded):
		return "conflict"
	case errors.As(err, &invalid):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, name+" must be a positive number")
		return 0, false
	}
	return id, true
}

// optDate parses an optional date; an empty string yields nil.
func optDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, domain.Invalid(field, "must be a YYYY-MM-DD date")
	}
	return &t, nil
}

func reqDate(field, s string) (time.Time, error) {
	t, err := optDate(field, s)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, domain.Invalid(field, "required")
	}
	return *t, nil
}

func queryRange(r *http.Request, inKey, outKey string) (domain.DateRange, error) {
	in, err := reqDate(inKey, r.URL.Query().Get(inKey))
	if err != nil {
		return domain.DateRange{}, err
	}
	out, err := reqDate(outKey, r.URL.Query().Get(outKey))
	if err != nil {
		return domain.DateRange{}, err
	}
	if out.Before(in) {
		return domain.DateRange{}, domain.Invalid(outKey, "must not be before %s", inKey)
	}
	return domain.NewDateRange(in, out), nil
}

// ---------------------------------------------------------------------------
// bookings
// ---------------------------------------------------------------------------

type bookingBody struct {
	Customer       domain.Customer `json:"customer"`
	ServiceID      *int64          `json:"service_id"`
	RoomID         *int64          `json:"room_id"`
	BookingDetails struct {
		CheckIn  string `json:"checkIn"`
		CheckOut string `json:"checkOut"`
		Notes    string `json:"notes"`
	} `json:"booking_details"`
	Consent bool `json:"consent"`
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var body bookingBody
	if !decodeBody(w, r, &body) {
		return
	}
	// consent is reported before malformed dates
	in, inErr := optDate("checkIn", body.BookingDetails.CheckIn)
	out, outErr := optDate("checkOut", body.BookingDetails.CheckOut)
	if body.Consent {
		if err := firstErr(inErr, outErr); err != nil {
			observability.ObserveBooking("invalid")
			writeDomainError(w, r, err)
			return
		}
	}

	if body.RoomID == nil {
		b, err := h.Bookings.CreateInquiry(r.Context(), app.CreateInquiryRequest{
			Customer:  body.Customer,
			ServiceID: body.ServiceID,
			CheckIn:   in,
			CheckOut:  out,
			Consent:   body.Consent,
			Notes:     body.BookingDetails.Notes,
		})
		if err != nil {
			observability.ObserveBooking(bookingOutcome(err))
			writeDomainError(w, r, err)
			return
		}
		observability.ObserveBooking("inquiry")
		writeJSON(w, http.StatusCreated, b)
		return
	}

	req := app.CreateBookingRequest{
		Customer:  body.Customer,
		ServiceID: body.ServiceID,
		RoomID:    *body.RoomID,
		Consent:   body.Consent,
		Notes:     body.BookingDetails.Notes,
	}
	if in != nil {
		req.CheckIn = *in
	}
	if out != nil {
		req.CheckOut = *out
	}
	b, err := h.Bookings.CreateBooking(r.Context(), req)
	observability.ObserveBooking(bookingOutcome(err))
	if err != nil {
		log.Info().Err(err).Int64("room_id", req.RoomID).Msg("booking rejected")
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ---------------------------------------------------------------------------
// availability
// ---------------------------------------------------------------------------

func (h *Handlers) quote(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rg, err := queryRange(r, "checkIn", "checkOut")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	q, err := h.Bookings.Quote(r.Context(), roomID, rg)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handlers) availability(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	from, err := reqDate("from", r.URL.Query().Get("from"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	to, err := reqDate("to", r.URL.Query().Get("to"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	rows, err := h.Calendar.Calendar(r.Context(), roomID, from, to)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.DailyRecord{}
	}
	writeCacheable(w, r, map[string]any{"room_id": roomID, "days": rows})
}

func (h *Handlers) searchListings(w http.ResponseWriter, r *http.Request) {
	raw := strings.Split(r.URL.Query().Get("ids"), ",")
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "ids must be a comma separated list of numbers")
			return
		}
		ids = append(ids, id)
	}
	if len(ids) > maxSearchIDs {
		writeError(w, http.StatusBadRequest, "at most "+strconv.Itoa(maxSearchIDs)+" ids per search")
		return
	}

	var rg *domain.DateRange
	if r.URL.Query().Get("checkIn") != "" || r.URL.Query().Get("checkOut") != "" {
		v, err := queryRange(r, "checkIn", "checkOut")
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		rg = &v
	}
	out, err := h.Filter.Filter(r.Context(), ids, rg)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": out})
}

// streamAvailability relays availability hints for one room as server-sent events.
func (h *Handlers) streamAvailability(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if h.Stream == nil {
		writeError(w, http.StatusServiceUnavailable, "Availability stream is not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}
	ch, err := h.Stream.SubscribeAvailability(r.Context(), roomID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ping := time.NewTicker(streamKeepLive)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case c, open := <-ch:
			if !open {
				return
			}
			b, err := json.Marshal(c)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: availability\ndata: " + string(b) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// ---------------------------------------------------------------------------
// calendar editing
// ---------------------------------------------------------------------------

type bulkBody struct {
	RoomID           int64            `json:"room_id"`
	StartDate        string           `json:"startDate"`
	EndDate          string           `json:"endDate"`
	Price            *decimal.Decimal `json:"price"`
	Multiplier       *decimal.Decimal `json:"multiplier"`
	IsBlocked        bool             `json:"is_blocked"`
	ApplyToDays      []int            `json:"applyToDays"`
	PreserveBookings bool             `json:"preserveBookings"`
}

func (h *Handlers) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body bulkBody
	if !decodeBody(w, r, &body) {
		return
	}
	start, err := reqDate("startDate", body.StartDate)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	end, err := reqDate("endDate", body.EndDate)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	res, err := h.Calendar.ApplyPricingRule(r.Context(), app.PricingRule{
		ServiceID:        serviceID,
		RoomID:           body.RoomID,
		Start:            start,
		End:              end,
		Price:            body.Price,
		Multiplier:       body.Multiplier,
		IsBlocked:        body.IsBlocked,
		Days:             body.ApplyToDays,
		PreserveBookings: body.PreserveBookings,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.ObserveOverwrites(res.Overwritten)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"count":       res.Count,
		"price":       res.Price,
		"overwritten": res.Overwritten,
	})
}

type sparseBody struct {
	RoomID  int64 `json:"room_id"`
	Updates []struct {
		Date      string           `json:"date"`
		Price     *decimal.Decimal `json:"price"`
		IsBlocked bool             `json:"is_blocked"`
	} `json:"updates"`
}

func (h *Handlers) sparseUpdate(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body sparseBody
	if !decodeBody(w, r, &body) {
		return
	}
	ups := make([]app.SparseUpdate, 0, len(body.Updates))
	for i, u := range body.Updates {
		d, err := reqDate("updates["+strconv.Itoa(i)+"].date", u.Date)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		ups = append(ups, app.SparseUpdate{Date: d, Price: u.Price, IsBlocked: u.IsBlocked})
	}
	n, err := h.Calendar.ApplySparseUpdates(r.Context(), serviceID, body.RoomID, ups)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": n})
}

type blockBody struct {
	RoomID    int64  `json:"room_id"`
	Date      string `json:"date"`
	IsBlocked bool   `json:"is_blocked"`
}

func (h *Handlers) toggleBlock(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body blockBody
	if !decodeBody(w, r, &body) {
		return
	}
	d, err := reqDate("date", body.Date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	rec, err := h.Calendar.ToggleBlock(r.Context(), serviceID, body.RoomID, d, body.IsBlocked)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "day": rec})
}

func (h *Handlers) resetInventory(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	roomID, err := strconv.ParseInt(r.URL.Query().Get("room_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "room_id must be a number")
		return
	}
	start, err := reqDate("startDate", r.URL.Query().Get("startDate"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	end, err := reqDate("endDate", r.URL.Query().Get("endDate"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	n, err := h.Calendar.ResetCalendar(r.Context(), serviceID, roomID, start, end)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": n})
}
