package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

var ErrDuplicateReference = errors.New("booking reference already exists")

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (reference, user_id, showtime_id, total_amount, status, payment_status, payment_ref)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(
			ctx,
			query,
			booking.Reference,
			booking.UserID,
			booking.ShowtimeID,
			booking.TotalAmount,
			booking.Status,
			booking.PaymentStatus,
			booking.PaymentRef).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrDuplicateReference
			}

			return err
		}

		rows := make([][]any, 0, len(booking.Seats))
		for _, seat := range booking.Seats {
			rows = append(rows, []any{
				booking.ID,
				booking.ShowtimeID,
				seat.SeatID,
				seat.Row,
				seat.Col,
				seat.Type,
				seat.Price,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "showtime_id", "seat_id", "seat_row", "seat_col", "seat_type", "price"},
			pgx.CopyFromRows(rows),
		)

		return err
	})
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}

func (p *PostgresBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	query := `
		SELECT
			b.id,
			b.reference,
			b.user_id,
			b.showtime_id,
			sh.start_time,
			b.total_amount,
			b.status,
			b.payment_status,
			b.payment_ref,
			b.created_at,
			b.updated_at
		FROM bookings b
		JOIN showtimes sh ON b.showtime_id = sh.id
		WHERE b.reference = $1
	`

	var booking domain.Booking

	err := p.db.QueryRow(ctx, query, reference).Scan(
		&booking.ID,
		&booking.Reference,
		&booking.UserID,
		&booking.ShowtimeID,
		&booking.ShowtimeStart,
		&booking.TotalAmount,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.PaymentRef,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	seats, err := p.retrieveBookingSeats(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Seats = seats

	return &booking, nil
}

func (p *PostgresBookingRepository) retrieveBookingSeats(ctx context.Context, bookingID int) ([]domain.BookingSeat, error) {
	query := `
		SELECT seat_id, seat_row, seat_col, seat_type, price
		FROM booking_seats
		WHERE booking_id = $1
		ORDER BY seat_row, seat_col
	`

	rows, err := p.db.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.BookingSeat, 0)

	for rows.Next() {
		var seat domain.BookingSeat

		err = rows.Scan(&seat.SeatID, &seat.Row, &seat.Col, &seat.Type, &seat.Price)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

// UpdateStatus moves a booking from one status to another. The current
// status is part of the predicate, so two racing transitions cannot both
// succeed; the loser gets domain.ErrBookingNotCancellable.
func (p *PostgresBookingRepository) UpdateStatus(
	ctx context.Context,
	reference string,
	from, to domain.BookingStatus,
	paymentStatus domain.PaymentStatus) error {

	query := `
		UPDATE bookings
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE reference = $3 AND status = $4
	`

	result, err := p.db.Exec(ctx, query, to, paymentStatus, reference, from)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrBookingNotCancellable
	}

	return nil
}

// GetBookedSeatIDs returns the seats of every booking that still occupies
// them: confirmed and completed bookings count, cancelled ones do not.
func (p *PostgresBookingRepository) GetBookedSeatIDs(ctx context.Context, showtimeID int) ([]int, error) {
	query := `
		SELECT bs.seat_id
		FROM booking_seats bs
		JOIN bookings b ON bs.booking_id = b.id
		WHERE bs.showtime_id = $1 AND b.status IN ('confirmed', 'completed')
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seatIDs := make([]int, 0)

	for rows.Next() {
		var seatID int

		if err = rows.Scan(&seatID); err != nil {
			return nil, err
		}

		seatIDs = append(seatIDs, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seatIDs, nil
}

func (p *PostgresBookingRepository) GetSummariesByUserID(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			b.reference,
			m.title,
			t.name,
			h.name,
			sh.start_time,
			b.total_amount,
			b.status,
			b.created_at
		FROM bookings b
		JOIN showtimes sh ON b.showtime_id = sh.id
		JOIN movies m ON sh.movie_id = m.id
		JOIN halls h ON sh.hall_id = h.id
		JOIN theaters t ON h.theater_id = t.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var summary domain.BookingSummary

		err = rows.Scan(
			&totalRecords,
			&summary.Reference,
			&summary.MovieTitle,
			&summary.TheaterName,
			&summary.HallName,
			&summary.ShowtimeStart,
			&summary.TotalAmount,
			&summary.Status,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return summaries, metadata, nil
}
