package store

import (
	"context"
	"time"
)

// IncrementRateEvent bumps the counter for (key, route, window) and returns
// the new value.
func (s *Store) IncrementRateEvent(ctx context.Context, key, route string, windowStart time.Time) (int, error) {
	upsert := `INSERT INTO rate_limit_events(rate_key,route,window_start,count) VALUES(?,?,?,1)
		 ON CONFLICT(rate_key, route, window_start) DO UPDATE SET count = rate_limit_events.count + 1`
	if s.driver == "mysql" {
		upsert = `INSERT INTO rate_limit_events(rate_key,route,window_start,count) VALUES(?,?,?,1)
		 ON DUPLICATE KEY UPDATE count = count + 1`
	}
	if _, err := s.exec(ctx, upsert, key, route, windowStart); err != nil {
		return 0, err
	}
	return s.count(ctx, `SELECT count FROM rate_limit_events WHERE rate_key=? AND route=? AND window_start=?`, key, route, windowStart)
}

func (s *Store) DeleteRateEvents(ctx context.Context, key, route string) error {
	_, err := s.exec(ctx, `DELETE FROM rate_limit_events WHERE rate_key=? AND route=?`, key, route)
	return err
}

func (s *Store) CleanupRateEventsBefore(ctx context.Context, before time.Time) error {
	_, err := s.exec(ctx, `DELETE FROM rate_limit_events WHERE window_start < ?`, before)
	return err
}
