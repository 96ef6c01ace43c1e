package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository is the sole durable writer for order state (spec §5),
// generalized from the teacher's single-table booking_repo_pg.go to the
// full orders/order_items/travelers/fulfillment/ledger aggregate, with
// the row-version optimistic lock spec §4.6/§5 require.
type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a brand-new order (PROPOSED) with its items and
// travelers in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `
		INSERT INTO orders (order_id, principal_id, airline_id, origin_offer_id, status, total, contact_email, contact_phone, expires_at, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1, now(), now())
		RETURNING created_at, updated_at, version`,
		order.OrderID, order.PrincipalID, order.AirlineID, order.OriginOfferID, order.Status, order.Total,
		order.Contact.Email, order.Contact.Phone, order.ExpiresAt,
	).Scan(&order.CreatedAt, &order.UpdatedAt, &order.Version); err != nil {
		return err
	}

	for i := range order.Items {
		it := &order.Items[i]
		metaRaw, _ := json.Marshal(it.Metadata)
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_items (item_id, order_id, product_id, product_type, unit_price, quantity, status, flight_id, seat_number, metadata, reservation_tickets)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING item_id`,
			it.ItemID, order.OrderID, it.ProductID, it.ProductType, it.UnitPrice, it.Quantity, it.Status,
			it.FlightID, it.SeatNumber, metaRaw, it.ReservationTickets,
		).Scan(&it.ItemID); err != nil {
			return err
		}
	}

	for i := range order.Travelers {
		t := &order.Travelers[i]
		if _, err := tx.Exec(ctx, `
			INSERT INTO travelers (traveler_id, order_id, index, ptc, first_name, last_name, dob, gender, did)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			t.TravelerID, order.OrderID, t.Index, t.PTC, t.FirstName, t.LastName, t.DOB, t.Gender, t.DID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete hard-deletes an order and its items/travelers. Only safe to
// call on an order that was never observed outside HoldManager.AcceptOffer
// itself — it backs that operation's compensation when the offer's
// AcceptCAS fails after the order row was already written, so the
// just-created PROPOSED row doesn't linger referencing an offer_id this
// caller never actually won.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM travelers WHERE order_id=$1`, orderID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE order_id=$1`, orderID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		SELECT order_id, principal_id, airline_id, origin_offer_id, status, total, contact_email, contact_phone,
		       expires_at, payment_ref, version, created_at, updated_at
		FROM orders WHERE order_id=$1`, orderID)

	var o domain.Order
	if err := row.Scan(&o.OrderID, &o.PrincipalID, &o.AirlineID, &o.OriginOfferID, &o.Status, &o.Total,
		&o.Contact.Email, &o.Contact.Phone, &o.ExpiresAt, &o.PaymentRef, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "order not found")
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	fulfillment, err := r.loadFulfillment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Fulfillment = fulfillment

	travelers, err := r.loadTravelers(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Travelers = travelers

	return &o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT item_id, order_id, product_id, product_type, unit_price, quantity, status, flight_id, seat_number, metadata, reservation_tickets
		FROM order_items WHERE order_id=$1 ORDER BY item_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		var metaRaw []byte
		if err := rows.Scan(&it.ItemID, &it.OrderID, &it.ProductID, &it.ProductType, &it.UnitPrice, &it.Quantity,
			&it.Status, &it.FlightID, &it.SeatNumber, &metaRaw, &it.ReservationTickets); err != nil {
			return nil, err
		}
		if len(metaRaw) > 0 {
			_ = json.Unmarshal(metaRaw, &it.Metadata)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *OrderRepository) loadFulfillment(ctx context.Context, orderID string) ([]domain.Fulfillment, error) {
	rows, err := r.db.Query(ctx, `SELECT fulfillment_id, order_id, item_id, type, barcode, consumed_at FROM fulfillment WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Fulfillment
	for rows.Next() {
		var f domain.Fulfillment
		if err := rows.Scan(&f.FulfillmentID, &f.OrderID, &f.ItemID, &f.Type, &f.Barcode, &f.ConsumedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *OrderRepository) loadTravelers(ctx context.Context, orderID string) ([]domain.Traveler, error) {
	rows, err := r.db.Query(ctx, `SELECT traveler_id, order_id, index, ptc, first_name, last_name, dob, gender, did FROM travelers WHERE order_id=$1 ORDER BY index`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Traveler
	for rows.Next() {
		var t domain.Traveler
		if err := rows.Scan(&t.TravelerID, &t.OrderID, &t.Index, &t.PTC, &t.FirstName, &t.LastName, &t.DOB, &t.Gender, &t.DID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CASUpdateStatus is the per-order optimistic lock every state transition
// in spec §4.6 goes through: UPDATE ... WHERE order_id=$1 AND
// version=$2. A mismatched version yields apperr.ErrStaleVersion so
// callers can retry or surface InvalidTransition (spec §5).
func (r *OrderRepository) CASUpdateStatus(ctx context.Context, orderID string, expectedVersion int64, newStatus domain.OrderStatus, expiresAt *time.Time, paymentRef string) (*domain.Order, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE orders SET status=$1, expires_at=$2, payment_ref=COALESCE(NULLIF($3,''), payment_ref), version=version+1, updated_at=now()
		WHERE order_id=$4 AND version=$5`,
		newStatus, expiresAt, paymentRef, orderID, expectedVersion)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "update order status", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, apperr.ErrStaleVersion
	}
	return r.GetByID(ctx, orderID)
}

// ExpirePendingBefore selects and transitions a bounded batch of
// PROPOSED orders whose hold has lapsed. It never touches
// PAYMENT_PENDING orders (the load-bearing invariant of spec §4.7).
func (r *OrderRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE orders SET status=$1, version=version+1, updated_at=now()
		WHERE order_id IN (
			SELECT order_id FROM orders
			WHERE status=$2 AND expires_at <= $3
			ORDER BY expires_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING order_id`,
		domain.OrderStatusExpired, domain.OrderStatusProposed, deadline, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppendItem adds a new order item (modification path, spec §4.6). It
// does not touch the order's total; callers update it via SetTotal.
func (r *OrderRepository) AppendItem(ctx context.Context, orderID string, item domain.OrderItem) error {
	metaRaw, _ := json.Marshal(item.Metadata)
	_, err := r.db.Exec(ctx, `
		INSERT INTO order_items (item_id, order_id, product_id, product_type, unit_price, quantity, status, flight_id, seat_number, metadata, reservation_tickets)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		item.ItemID, orderID, item.ProductID, item.ProductType, item.UnitPrice, item.Quantity, item.Status,
		item.FlightID, item.SeatNumber, metaRaw, item.ReservationTickets)
	return err
}

func (r *OrderRepository) RefundItem(ctx context.Context, orderID, itemID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE order_items SET status=$1 WHERE order_id=$2 AND item_id=$3 AND status=$4`,
		domain.OrderItemStatusRefunded, orderID, itemID, domain.OrderItemStatusActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperr.New(apperr.KindInvalidTransition, "item is not active")
	}
	return nil
}

func (r *OrderRepository) SetTotal(ctx context.Context, orderID string, total domain.Money) error {
	_, err := r.db.Exec(ctx, `UPDATE orders SET total=$1, updated_at=now() WHERE order_id=$2`, total, orderID)
	return err
}

func (r *OrderRepository) InsertFulfillments(ctx context.Context, fulfillments []domain.Fulfillment) error {
	for _, f := range fulfillments {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO fulfillment (fulfillment_id, order_id, item_id, type, barcode, consumed_at)
			VALUES ($1,$2,$3,$4,$5,$6)`, f.FulfillmentID, f.OrderID, f.ItemID, f.Type, f.Barcode, f.ConsumedAt); err != nil {
			return err
		}
	}
	return nil
}

// MarkConsumed records a barcode scan, gated by I4/P7 (consumed count
// per item must never exceed item quantity) at the OrderEngine layer.
func (r *OrderRepository) MarkConsumed(ctx context.Context, fulfillmentID string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fulfillment SET consumed_at=$1 WHERE fulfillment_id=$2 AND consumed_at IS NULL`, at, fulfillmentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperr.New(apperr.KindInvalidTransition, "fulfillment already consumed")
	}
	return nil
}
