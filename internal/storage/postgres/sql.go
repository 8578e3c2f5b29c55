package postgres

// Prices travel as text so NUMERIC never goes through float64.

const getInventorySQL = `
SELECT room_id, date, price::text, is_blocked, available_units
FROM daily_inventory
WHERE room_id = $1 AND date >= $2 AND date < $3
ORDER BY date
`

const upsertInventorySQL = `
INSERT INTO daily_inventory (room_id, date, price, is_blocked, available_units)
VALUES ($1, $2, $3::numeric, $4, $5)
ON CONFLICT (room_id, date) DO UPDATE SET
  price           = EXCLUDED.price,
  is_blocked      = EXCLUDED.is_blocked,
  available_units = EXCLUDED.available_units,
  updated_at      = now()
`

// Postgres evaluates every SET expression against the old row.
const decrementSQL = `
UPDATE daily_inventory
SET available_units = available_units - $1,
    is_blocked      = is_blocked OR available_units - $1 <= 0,
    updated_at      = now()
WHERE room_id = $2 AND date = $3 AND available_units >= $1
RETURNING available_units
`

const existsSQL = `SELECT EXISTS (SELECT 1 FROM daily_inventory WHERE room_id = $1 AND date = $2)`

const lockNightsSQL = `
SELECT room_id, date, price::text, is_blocked, available_units
FROM daily_inventory
WHERE room_id = $1 AND date >= $2 AND date <= $3
ORDER BY date
FOR UPDATE
`

const takeNightSQL = `
UPDATE daily_inventory
SET available_units = available_units - 1,
    is_blocked      = available_units - 1 <= 0,
    updated_at      = now()
WHERE room_id = $1 AND date = $2 AND NOT is_blocked AND available_units >= 1
RETURNING available_units, is_blocked
`

const lockNightSQL = `
SELECT room_id, date, price::text, is_blocked, available_units
FROM daily_inventory
WHERE room_id = $1 AND date = $2
FOR UPDATE
`

const setBlockedSQL = `
UPDATE daily_inventory
SET is_blocked = $1, available_units = $2, updated_at = now()
WHERE room_id = $3 AND date = $4
`

// A concurrent writer that created the row first keeps its units; only the flag is taken.
const insertBlockedSQL = `
INSERT INTO daily_inventory (room_id, date, price, is_blocked, available_units)
VALUES ($1, $2, $3::numeric, $4, $5)
ON CONFLICT (room_id, date) DO UPDATE SET
  is_blocked = EXCLUDED.is_blocked,
  updated_at = now()
RETURNING room_id, date, price::text, is_blocked, available_units
`

const heldUnitsSQL = `
SELECT COUNT(*) FROM bookings
WHERE room_id = $1
  AND status <> 'cancelled'
  AND check_in <= $2
  AND GREATEST(check_out, check_in + 1) > $2
`

const resetInventorySQL = `DELETE FROM daily_inventory WHERE room_id = $1 AND date >= $2 AND date < $3`

const insertBookingSQL = `
INSERT INTO bookings
  (id, kind, customer_name, customer_email, customer_phone, service_id, room_id,
   check_in, check_out, total_price, status, consent, notes, created_at)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $12, $13, $14)
`

const bookingColumns = `
  id::text, kind, customer_name, customer_email, customer_phone, service_id, room_id,
  check_in, check_out, total_price::text, status, consent, notes, created_at
`

const getBookingSQL = `SELECT` + bookingColumns + `FROM bookings WHERE id = $1`

const activeBookingsSQL = `SELECT` + bookingColumns + `FROM bookings
WHERE room_id = $1
  AND status <> 'cancelled'
  AND check_in < $2
  AND GREATEST(check_out, check_in + 1) > $3
ORDER BY created_at
`

const upsertListingSQL = `
INSERT INTO listings (id, name, currency)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
  name       = EXCLUDED.name,
  currency   = EXCLUDED.currency,
  updated_at = now()
`

const upsertRoomSQL = `
INSERT INTO rooms (id, listing_id, name, total_units, base_price)
VALUES ($1, $2, $3, $4, $5::numeric)
ON CONFLICT (id) DO UPDATE SET
  listing_id  = EXCLUDED.listing_id,
  name        = EXCLUDED.name,
  total_units = EXCLUDED.total_units,
  base_price  = EXCLUDED.base_price,
  updated_at  = now()
`

const getListingSQL = `SELECT id, name, currency FROM listings WHERE id = $1`

const getRoomSQL = `SELECT id, listing_id, name, total_units, base_price::text FROM rooms WHERE id = $1`

const listRoomsSQL = `
SELECT id, listing_id, name, total_units, base_price::text
FROM rooms
WHERE listing_id = $1
ORDER BY id
`
