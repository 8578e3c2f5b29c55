package mysql

// -----------------------------------------------------------------------------
// LEDGER
// -----------------------------------------------------------------------------

const getInventorySQL = `
SELECT room_id, date, price, is_blocked, available_units
FROM daily_inventory
WHERE room_id = ? AND date >= ? AND date < ?
ORDER BY date
`

const upsertInventoryPrefix = "INSERT INTO daily_inventory\n  (room_id, date, price, is_blocked, available_units)\nVALUES "

const upsertInventoryOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  price           = VALUES(price),\n" +
	"  is_blocked      = VALUES(is_blocked),\n" +
	"  available_units = VALUES(available_units)\n"

// MySQL applies SET assignments left to right, so is_blocked sees the decremented value.
const decrementSQL = `
UPDATE daily_inventory
SET available_units = available_units - ?,
    is_blocked      = is_blocked OR available_units = 0
WHERE room_id = ? AND date = ? AND available_units >= ?
`

const unitsSQL = `
SELECT available_units FROM daily_inventory WHERE room_id = ? AND date = ?
`

// Rows are locked in primary key order, i.e. ascending date, so concurrent commits cannot deadlock each other.
const lockNightsSQL = `
SELECT room_id, date, price, is_blocked, available_units
FROM daily_inventory
WHERE room_id = ? AND date >= ? AND date <= ?
ORDER BY date
FOR UPDATE
`

const takeNightSQL = `
UPDATE daily_inventory
SET available_units = available_units - 1,
    is_blocked      = is_blocked OR available_units = 0
WHERE room_id = ? AND date = ? AND is_blocked = 0 AND available_units >= 1
`

const lockNightSQL = `
SELECT room_id, date, price, is_blocked, available_units
FROM daily_inventory
WHERE room_id = ? AND date = ?
FOR UPDATE
`

const setBlockedSQL = `UPDATE daily_inventory SET is_blocked = ?, available_units = ? WHERE room_id = ? AND date = ?`

// A concurrent writer that created the row first keeps its units; only the flag is taken.
const insertBlockedSQL = upsertInventoryPrefix + "(?,?,?,?,?)" + `
ON DUPLICATE KEY UPDATE is_blocked = VALUES(is_blocked)
`

const heldUnitsSQL = `
SELECT COUNT(*) FROM bookings
WHERE room_id = ?
  AND status <> 'cancelled'
  AND check_in <= ?
  AND GREATEST(check_out, DATE_ADD(check_in, INTERVAL 1 DAY)) > ?
`

const resetInventorySQL = `
DELETE FROM daily_inventory WHERE room_id = ? AND date >= ? AND date < ?
`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const insertBookingSQL = `
INSERT INTO bookings
  (id, kind, customer_name, customer_email, customer_phone, service_id, room_id,
   check_in, check_out, total_price, status, consent, notes, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const bookingColumns = `
  id, kind, customer_name, customer_email, customer_phone, service_id, room_id,
  check_in, check_out, total_price, status, consent, notes, created_at
`

const getBookingSQL = `SELECT` + bookingColumns + `FROM bookings WHERE id = ?`

// A day-use booking (check_in = check_out) holds its check-in night.
const activeBookingsSQL = `SELECT` + bookingColumns + `FROM bookings
WHERE room_id = ?
  AND status <> 'cancelled'
  AND check_in < ?
  AND GREATEST(check_out, DATE_ADD(check_in, INTERVAL 1 DAY)) > ?
ORDER BY created_at
`

// -----------------------------------------------------------------------------
// CATALOG
// -----------------------------------------------------------------------------

const upsertListingSQL = `
INSERT INTO listings (id, name, currency)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  name       = VALUES(name),
  currency   = VALUES(currency),
  updated_at = CURRENT_TIMESTAMP
`

const upsertRoomSQL = `
INSERT INTO rooms (id, listing_id, name, total_units, base_price)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  listing_id  = VALUES(listing_id),
  name        = VALUES(name),
  total_units = VALUES(total_units),
  base_price  = VALUES(base_price),
  updated_at  = CURRENT_TIMESTAMP
`

const getListingSQL = `SELECT id, name, currency FROM listings WHERE id = ?`

const getRoomSQL = `SELECT id, listing_id, name, total_units, base_price FROM rooms WHERE id = ?`

const listRoomsSQL = `
SELECT id, listing_id, name, total_units, base_price
FROM rooms
WHERE listing_id = ?
ORDER BY id
`
