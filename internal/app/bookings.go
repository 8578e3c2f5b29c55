package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"travel_inventory/internal/domain"
)

type CreateBookingRequest struct {
	Customer  domain.Customer
	ServiceID *int64
	RoomID    int64
	CheckIn   time.Time
	CheckOut  time.Time
	Consent   bool
	Notes     string
}

type CreateInquiryRequest struct {
	Customer  domain.Customer
	ServiceID *int64
	CheckIn   *time.Time
	CheckOut  *time.Time
	Consent   bool
	Notes     string
}

type BookingService struct {
	ledger   domain.Ledger
	bookings domain.BookingRepository
	catalog  domain.Catalog
	matcher  *Matcher
	events   domain.BookingEvents
	audit    domain.Auditor
	tracer   trace.Tracer
	now      func() time.Time
}

func NewBookingService(l domain.Ledger, b domain.BookingRepository, c domain.Catalog, m *Matcher,
	ev domain.BookingEvents, a domain.Auditor) *BookingService {
	return &BookingService{
		ledger:   l,
		bookings: b,
		catalog:  c,
		matcher:  m,
		events:   ev,
		audit:    a,
		tracer:   otel.Tracer("travel_inventory/bookings"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Quote exposes the matcher for detail pages; the booking path re-checks at commit.
func (s *BookingService) Quote(ctx context.Context, roomID int64, r domain.DateRange) (Quote, error) {
	if r.CheckOut.Before(r.CheckIn) {
		return Quote{}, domain.Invalid("checkOut", "must not be before checkIn")
	}
	return s.matcher.Match(ctx, roomID, r)
}

func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create", trace.WithAttributes(attribute.Int64("room_id", req.RoomID)))
	defer span.End()

	if !req.Consent {
		return domain.Booking{}, domain.ErrConsentRequired
	}
	if err := validateStay(req); err != nil {
		return domain.Booking{}, err
	}
	r := domain.NewDateRange(req.CheckIn, req.CheckOut)

	room, err := s.catalog.GetRoom(ctx, req.RoomID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("room %d: %w", req.RoomID, err)
	}
	if req.ServiceID != nil && *req.ServiceID != room.ListingID {
		return domain.Booking{}, domain.Invalid("room_id", "room %d does not belong to service %d", room.ID, *req.ServiceID)
	}

	q, err := s.matcher.Match(ctx, room.ID, r)
	if err != nil {
		return domain.Booking{}, s.fail(span, err)
	}
	if len(q.Records) == 0 {
		return domain.Booking{}, domain.ErrPricingUnavailable
	}
	if !q.Bookable {
		return domain.Booking{}, q.Conflict()
	}

	in, out := r.CheckIn, r.CheckOut
	listingID := room.ListingID
	b := domain.Booking{
		ID:         uuid.NewString(),
		Kind:       domain.KindBooking,
		Customer:   normalizeCustomer(req.Customer),
		ServiceID:  &listingID,
		RoomID:     &room.ID,
		CheckIn:    &in,
		CheckOut:   &out,
		TotalPrice: *q.TotalPrice,
		Status:     domain.StatusPending,
		Consent:    true,
		Notes:      req.Notes,
		CreatedAt:  s.now(),
	}

	// the storage layer repeats the availability check atomically; losing a race there is a conflict
	stored, _, err := s.ledger.CommitBooking(ctx, b, r.Nights())
	if errors.Is(err, domain.ErrCapacityExceeded) {
		span.AddEvent("capacity race lost")
		return domain.Booking{}, &domain.ConflictError{Dates: formatDates(r.Nights()), Reason: ReasonSoldOut}
	}
	if err != nil {
		return domain.Booking{}, s.fail(span, fmt.Errorf("commit booking: %w", err))
	}
	span.SetAttributes(attribute.String("booking_id", stored.ID), attribute.String("total_price", stored.TotalPrice.String()))

	s.emit(ctx, stored)
	s.record(ctx, domain.AuditEntry{Action: "booking.created", RoomID: room.ID, Detail: map[string]any{
		"booking_id": stored.ID, "range": r.String(), "total_price": stored.TotalPrice.String(),
	}})
	return stored, nil
}

// CreateInquiry stores a custom package request. It never touches the ledger and is quoted by hand later.
func (s *BookingService) CreateInquiry(ctx context.Context, req CreateInquiryRequest) (domain.Booking, error) {
	if !req.Consent {
		return domain.Booking{}, domain.ErrConsentRequired
	}
	if err := validateCustomer(req.Customer); err != nil {
		return domain.Booking{}, err
	}
	if req.CheckIn != nil && req.CheckOut != nil && req.CheckOut.Before(*req.CheckIn) {
		return domain.Booking{}, domain.Invalid("checkOut", "must not be before checkIn")
	}
	b := domain.Booking{
		ID:         uuid.NewString(),
		Kind:       domain.KindInquiry,
		Customer:   normalizeCustomer(req.Customer),
		ServiceID:  req.ServiceID,
		CheckIn:    dayPtr(req.CheckIn),
		CheckOut:   dayPtr(req.CheckOut),
		TotalPrice: decimal.Zero,
		Status:     domain.StatusPending,
		Consent:    true,
		Notes:      req.Notes,
		CreatedAt:  s.now(),
	}
	stored, err := s.bookings.InsertInquiry(ctx, b)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("insert inquiry: %w", err)
	}
	s.emit(ctx, stored)
	return stored, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

// emit is best effort: the booking is already committed.
func (s *BookingService) emit(ctx context.Context, b domain.Booking) {
	if s.events == nil {
		return
	}
	if err := s.events.BookingCreated(ctx, b); err != nil {
		log.Warn().Err(err).Str("booking_id", b.ID).Msg("booking_created event not delivered")
	}
}

func (s *BookingService) record(ctx context.Context, e domain.AuditEntry) {
	if s.audit == nil {
		return
	}
	e.Occurred = s.now()
	if err := s.audit.Record(ctx, e); err != nil {
		log.Warn().Err(err).Str("action", e.Action).Msg("audit write failed")
	}
}

func (s *BookingService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func validateStay(req CreateBookingRequest) error {
	if err := validateCustomer(req.Customer); err != nil {
		return err
	}
	if req.RoomID <= 0 {
		return domain.Invalid("room_id", "required")
	}
	if req.CheckIn.IsZero() || req.CheckOut.IsZero() {
		return domain.Invalid("booking_details", "checkIn and checkOut are required")
	}
	if domain.Day(req.CheckOut).Before(domain.Day(req.CheckIn)) {
		return domain.Invalid("checkOut", "must not be before checkIn")
	}
	return nil
}

func validateCustomer(c domain.Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Invalid("customer.name", "required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(c.Email)); err != nil {
		return domain.Invalid("customer.email", "not a valid email address")
	}
	return nil
}

func normalizeCustomer(c domain.Customer) domain.Customer {
	return domain.Customer{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Phone: strings.TrimSpace(c.Phone),
	}
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.Day(*t)
	return &d
}

func formatDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format(domain.DateLayout)
	}
	return out
}
