package memory

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/yndnr/meshkv/internal/core/domain"
)

// Tx is the view of the keyspace handed to Store.Exec callbacks.
//
// All methods take the target database index and fail with
// domain.ErrOutOfRange when it is not in 0..Databases()-1.
type Tx struct {
	s     *Store
	nowMs int64
}

// Now returns the Unix-millisecond timestamp captured when the lock was taken.
func (tx *Tx) Now() int64 {
	return tx.nowMs
}

// Databases returns the fixed database count.
func (tx *Tx) Databases() int {
	return len(tx.s.dbs)
}

func (tx *Tx) db(idx int) (map[string]*domain.Entry, error) {
	if idx < 0 || idx >= len(tx.s.dbs) {
		return nil, domain.ErrOutOfRange
	}
	return tx.s.dbs[idx], nil
}

// lookup returns the live entry for key, purging it if it has expired.
func (tx *Tx) lookup(db map[string]*domain.Entry, key string) *domain.Entry {
	e, ok := db[key]
	if !ok {
		return nil
	}
	if e.IsExpired(tx.nowMs) {
		delete(db, key)
		tx.s.expiredLazy.Add(1)
		return nil
	}
	return e
}

// Entry returns the live entry for key, or nil when it is absent. The
// entry must not be retained or modified.
func (tx *Tx) Entry(dbIdx int, key string) (*domain.Entry, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return nil, err
	}
	return tx.lookup(db, key), nil
}

// Get returns a copy of the value stored at key.
func (tx *Tx) Get(dbIdx int, key string) (domain.Value, bool, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return domain.Value{}, false, err
	}
	e := tx.lookup(db, key)
	if e == nil {
		return domain.Value{}, false, nil
	}
	return e.Value.Clone(), true, nil
}

// GetString returns the string stored at key, or ErrWrongType for a list.
func (tx *Tx) GetString(dbIdx int, key string) ([]byte, bool, error) {
	v, ok, err := tx.Get(dbIdx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	b, err := v.Bytes()
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set stores v at key. A ttl <= 0 stores the key without a deadline and
// cancels any previous one.
func (tx *Tx) Set(dbIdx int, key string, v domain.Value, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = tx.nowMs + ttl.Milliseconds()
	}
	return tx.SetDeadline(dbIdx, key, v, expiresAt)
}

// SetDeadline stores v at key with an absolute deadline in Unix
// milliseconds; 0 means no deadline. A deadline already in the past yields
// an entry that reads treat as absent.
func (tx *Tx) SetDeadline(dbIdx int, key string, v domain.Value, expiresAt int64) error {
	db, err := tx.db(dbIdx)
	if err != nil {
		return err
	}
	db[key] = &domain.Entry{Value: v, ExpiresAt: expiresAt}
	return nil
}

// SetKeepTTL replaces the value at key and keeps its current deadline.
func (tx *Tx) SetKeepTTL(dbIdx int, key string, v domain.Value) error {
	db, err := tx.db(dbIdx)
	if err != nil {
		return err
	}
	if e := tx.lookup(db, key); e != nil {
		e.Value = v
		return nil
	}
	db[key] = &domain.Entry{Value: v}
	return nil
}

// Delete removes key and reports whether a live entry was removed.
func (tx *Tx) Delete(dbIdx int, key string) (bool, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return false, err
	}
	if tx.lookup(db, key) == nil {
		return false, nil
	}
	delete(db, key)
	return true, nil
}

// Exists reports whether key holds a live entry.
func (tx *Tx) Exists(dbIdx int, key string) (bool, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return false, err
	}
	return tx.lookup(db, key) != nil, nil
}

// Type returns the shape of the value at key, or 0 when absent.
func (tx *Tx) Type(dbIdx int, key string) (domain.Kind, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return 0, err
	}
	e := tx.lookup(db, key)
	if e == nil {
		return 0, nil
	}
	return e.Value.Kind(), nil
}

// ExpireAt sets an absolute deadline on an existing key. A deadline at or
// before now deletes the key. It reports whether the key existed.
func (tx *Tx) ExpireAt(dbIdx int, key string, atMs int64) (bool, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return false, err
	}
	e := tx.lookup(db, key)
	if e == nil {
		return false, nil
	}
	if atMs <= tx.nowMs {
		delete(db, key)
		return true, nil
	}
	e.ExpiresAt = atMs
	return true, nil
}

// Persist clears the deadline of key. It reports whether a deadline was removed.
func (tx *Tx) Persist(dbIdx int, key string) (bool, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return false, err
	}
	e := tx.lookup(db, key)
	if e == nil || !e.HasTTL() {
		return false, nil
	}
	e.ExpiresAt = 0
	return true, nil
}

// TTL returns the remaining time to live in milliseconds: -2 when the key
// does not exist, -1 when it has no deadline.
func (tx *Tx) TTL(dbIdx int, key string) (int64, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return 0, err
	}
	e := tx.lookup(db, key)
	if e == nil {
		return -2, nil
	}
	if !e.HasTTL() {
		return -1, nil
	}
	return e.ExpiresAt - tx.nowMs, nil
}

// Append appends b to the string at key, creating it when absent, and
// returns the new length. The deadline is kept.
func (tx *Tx) Append(dbIdx int, key string, b []byte) (int, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return 0, err
	}
	e := tx.lookup(db, key)
	if e == nil {
		db[key] = &domain.Entry{Value: domain.StringValue(append([]byte{}, b...))}
		return len(b), nil
	}
	cur, err := e.Value.Bytes()
	if err != nil {
		return 0, err
	}
	next := append(cur, b...)
	e.Value = domain.StringValue(next)
	return len(next), nil
}

// IncrBy adds delta to the decimal integer stored at key. An absent key
// starts at 0. The result is stored as a decimal string and the deadline
// is kept.
func (tx *Tx) IncrBy(dbIdx int, key string, delta int64) (int64, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return 0, err
	}

	var cur int64
	e := tx.lookup(db, key)
	if e != nil {
		b, err := e.Value.Bytes()
		if err != nil {
			return 0, err
		}
		cur, err = strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return 0, domain.ErrMalformedArgument
		}
	}

	if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
		return 0, domain.ErrMalformedArgument.WithDetails("increment or decrement would overflow")
	}
	cur += delta

	v := domain.StringValue([]byte(strconv.FormatInt(cur, 10)))
	if e != nil {
		e.Value = v
	} else {
		db[key] = &domain.Entry{Value: v}
	}
	return cur, nil
}

// LPush prepends values one by one (so the last argument ends up first)
// and returns the new list length.
func (tx *Tx) LPush(dbIdx int, key string, values ...[]byte) (int, error) {
	return tx.push(dbIdx, key, values, true)
}

// RPush appends values and returns the new list length.
func (tx *Tx) RPush(dbIdx int, key string, values ...[]byte) (int, error) {
	return tx.push(dbIdx, key, values, false)
}

func (tx *Tx) push(dbIdx int, key string, values [][]byte, head bool) (int, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return 0, err
	}

	var list [][]byte
	e := tx.lookup(db, key)
	if e != nil {
		list, err = e.Value.List()
		if err != nil {
			return 0, err
		}
	}

	if head {
		prefix := make([][]byte, 0, len(values)+len(list))
		for i := len(values) - 1; i >= 0; i-- {
			prefix = append(prefix, append([]byte{}, values[i]...))
		}
		list = append(prefix, list...)
	} else {
		for _, v := range values {
			list = append(list, append([]byte{}, v...))
		}
	}

	if e != nil {
		e.Value = domain.ListValue(list)
	} else {
		db[key] = &domain.Entry{Value: domain.ListValue(list)}
	}
	return len(list), nil
}

// LLen returns the list length, 0 when absent.
func (tx *Tx) LLen(dbIdx int, key string) (int, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return 0, err
	}
	e := tx.lookup(db, key)
	if e == nil {
		return 0, nil
	}
	list, err := e.Value.List()
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// LRange returns copies of the elements between start and stop inclusive.
// Negative indexes count from the tail.
func (tx *Tx) LRange(dbIdx int, key string, start, stop int64) ([][]byte, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return nil, err
	}
	e := tx.lookup(db, key)
	if e == nil {
		return [][]byte{}, nil
	}
	list, err := e.Value.List()
	if err != nil {
		return nil, err
	}

	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return [][]byte{}, nil
	}

	out := make([][]byte, 0, stop-start+1)
	for _, it := range list[start : stop+1] {
		out = append(out, append([]byte{}, it...))
	}
	return out, nil
}

// Rename moves the entry at from to to within one database, overwriting
// to and carrying over the deadline of from.
func (tx *Tx) Rename(dbIdx int, from, to string) error {
	db, err := tx.db(dbIdx)
	if err != nil {
		return err
	}
	e := tx.lookup(db, from)
	if e == nil {
		return domain.ErrNotFound
	}
	if from == to {
		return nil
	}
	db[to] = e
	delete(db, from)
	return nil
}

// Move transfers key from one database to another. It fails when the key
// is absent in the source or already present in the destination.
func (tx *Tx) Move(fromDB, toDB int, key string) error {
	src, err := tx.db(fromDB)
	if err != nil {
		return err
	}
	dst, err := tx.db(toDB)
	if err != nil {
		return err
	}
	e := tx.lookup(src, key)
	if e == nil {
		return domain.ErrNotFound
	}
	if tx.lookup(dst, key) != nil {
		return domain.ErrKeyExists
	}
	dst[key] = e
	delete(src, key)
	return nil
}

// Keys returns the live keys matching a glob pattern, sorted.
func (tx *Tx) Keys(dbIdx int, pattern string) ([]string, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0)
	for k, e := range db {
		if e.IsExpired(tx.nowMs) {
			delete(db, k)
			tx.s.expiredLazy.Add(1)
			continue
		}
		if MatchGlob(pattern, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Size returns the number of live keys in a database.
func (tx *Tx) Size(dbIdx int) (int, error) {
	db, err := tx.db(dbIdx)
	if err != nil {
		return 0, err
	}
	tx.s.expiredLazy.Add(uint64(purgeExpired(db, tx.nowMs)))
	return len(db), nil
}

// Flush clears one database.
func (tx *Tx) Flush(dbIdx int) error {
	if _, err := tx.db(dbIdx); err != nil {
		return err
	}
	tx.s.dbs[dbIdx] = make(map[string]*domain.Entry)
	return nil
}

// FlushAll clears every database.
func (tx *Tx) FlushAll() {
	for i := range tx.s.dbs {
		tx.s.dbs[i] = make(map[string]*domain.Entry)
	}
}

// Range calls fn for every live entry in database order. The entry must not
// be retained or modified. fn returns false to stop.
func (tx *Tx) Range(fn func(db int, key string, e *domain.Entry) bool) {
	for i, db := range tx.s.dbs {
		for k, e := range db {
			if e.IsExpired(tx.nowMs) {
				continue
			}
			if !fn(i, k, e) {
				return
			}
		}
	}
}
