package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore is an in-memory stand-in for the MongoDB event stores. Its
// sub-stores have the same method sets as the real ones, so engines and
// handlers can be tested without a database.
//
// Fail injects an error for one operation, e.g. Fail("logins.count", err).
// Operations: {logins,events,access}.{insert,find,count,group},
// logins.trend, users.get, users.count.
type MemStore struct {
	mu    sync.Mutex
	fails map[string]error

	Logins *MemLoginLogs
	Events *MemSecurityEvents
	Access *MemAccessLogs
	Users  *MemIdentities
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	m := &MemStore{fails: map[string]error{}}
	m.Logins = &MemLoginLogs{m: m}
	m.Events = &MemSecurityEvents{m: m}
	m.Access = &MemAccessLogs{m: m}
	m.Users = &MemIdentities{m: m}
	return m
}

// Fail makes op return err until cleared with Fail(op, nil).
func (m *MemStore) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fails, op)
		return
	}
	m.fails[op] = err
}

// FailAll makes every read and write fail with err.
func (m *MemStore) FailAll(err error) {
	for _, coll := range []string{"logins", "events", "access"} {
		for _, op := range []string{"insert", "find", "count", "group"} {
			m.Fail(coll+"."+op, err)
		}
	}
	m.Fail("logins.trend", err)
	m.Fail("users.get", err)
	m.Fail("users.count", err)
}

// caller must hold mu
func (m *MemStore) failure(op string) error {
	return m.fails[op]
}

func stamp(id *primitive.ObjectID, ts *time.Time) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	if ts.IsZero() {
		*ts = time.Now().UTC()
	}
}

func newestFirst[T any](items []T, key func(T) (time.Time, primitive.ObjectID)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi.Hex() > idj.Hex()
	})
}

func limitTo[T any](items []T, limit int64) []T {
	if limit > 0 && int64(len(items)) > limit {
		return items[:limit]
	}
	return items
}

func sortGroups(groups []models.Group) []models.Group {
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

func compactSorted(values map[string]struct{}) []string {
	out := make([]string, 0, len(values))
	for v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

/* -------------------------------------------------------------------------- */
/* login_logs                                                                 */
/* -------------------------------------------------------------------------- */

// MemLoginLogs mirrors the login attempts store.
type MemLoginLogs struct {
	m       *MemStore
	records []models.LoginAttempt
}

// Insert appends rec.
func (s *MemLoginLogs) Insert(_ context.Context, rec models.LoginAttempt) (primitive.ObjectID, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("logins.insert"); err != nil {
		return primitive.NilObjectID, err
	}
	stamp(&rec.ID, &rec.Timestamp)
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// All returns a copy of every stored attempt in insertion order.
func (s *MemLoginLogs) All() []models.LoginAttempt {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return append([]models.LoginAttempt(nil), s.records...)
}

func (s *MemLoginLogs) match(f models.LoginFilter) []models.LoginAttempt {
	var out []models.LoginAttempt
	for _, r := range s.records {
		if f.Email != "" && r.Email != f.Email {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Reason != "" && r.Reason != f.Reason {
			continue
		}
		if f.RequireIP && r.IPAddress == "" {
			continue
		}
		if !f.Range.Contains(r.Timestamp) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Find returns matches newest first.
func (s *MemLoginLogs) Find(_ context.Context, f models.LoginFilter, limit int64) ([]models.LoginAttempt, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("logins.find"); err != nil {
		return nil, err
	}
	out := s.match(f)
	newestFirst(out, func(r models.LoginAttempt) (time.Time, primitive.ObjectID) { return r.Timestamp, r.ID })
	return append([]models.LoginAttempt{}, limitTo(out, limit)...), nil
}

// Count returns the number of matches.
func (s *MemLoginLogs) Count(_ context.Context, f models.LoginFilter) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("logins.count"); err != nil {
		return 0, err
	}
	return int64(len(s.match(f))), nil
}

func loginField(r models.LoginAttempt, field string) string {
	switch field {
	case "email":
		return r.Email
	case "ip_address":
		return r.IPAddress
	case "status":
		return r.Status
	case "reason":
		return r.Reason
	case "source":
		return r.Source
	case "user_agent":
		return r.UserAgent
	}
	panic(fmt.Sprintf("memstore: unsupported login field %q", field))
}

// GroupBy mirrors the aggregation pipeline of the real store.
func (s *MemLoginLogs) GroupBy(_ context.Context, f models.LoginFilter, field, distinctField string, minCount int64) ([]models.Group, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("logins.group"); err != nil {
		return nil, err
	}

	counts := map[string]int64{}
	distinct := map[string]map[string]struct{}{}
	for _, r := range s.match(f) {
		key := loginField(r, field)
		counts[key]++
		if distinct[key] == nil {
			distinct[key] = map[string]struct{}{}
		}
		distinct[key][loginField(r, distinctField)] = struct{}{}
	}

	var groups []models.Group
	for key, n := range counts {
		if n < minCount {
			continue
		}
		groups = append(groups, models.Group{Key: key, Count: n, Distinct: compactSorted(distinct[key])})
	}
	return sortGroups(groups), nil
}

// CountByDayStatus buckets attempts since the given time by UTC day and status.
func (s *MemLoginLogs) CountByDayStatus(_ context.Context, since time.Time) ([]models.DayStatusCount, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("logins.trend"); err != nil {
		return nil, err
	}

	type key struct{ day, status string }
	counts := map[key]int64{}
	for _, r := range s.records {
		if r.Timestamp.Before(since) {
			continue
		}
		counts[key{r.Timestamp.UTC().Format("2006-01-02"), r.Status}]++
	}
	out := make([]models.DayStatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.DayStatusCount{Day: k.day, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

/* -------------------------------------------------------------------------- */
/* security_events                                                            */
/* -------------------------------------------------------------------------- */

// MemSecurityEvents mirrors the security events store.
type MemSecurityEvents struct {
	m       *MemStore
	records []models.SecurityEvent
}

// Insert appends ev.
func (s *MemSecurityEvents) Insert(_ context.Context, ev models.SecurityEvent) (primitive.ObjectID, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("events.insert"); err != nil {
		return primitive.NilObjectID, err
	}
	stamp(&ev.ID, &ev.Timestamp)
	s.records = append(s.records, ev)
	return ev.ID, nil
}

// All returns a copy of every stored event in insertion order.
func (s *MemSecurityEvents) All() []models.SecurityEvent {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return append([]models.SecurityEvent(nil), s.records...)
}

// OfType returns stored events with the given type in insertion order.
func (s *MemSecurityEvents) OfType(eventType string) []models.SecurityEvent {
	var out []models.SecurityEvent
	for _, ev := range s.All() {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (s *MemSecurityEvents) match(f models.EventFilter) []models.SecurityEvent {
	var out []models.SecurityEvent
	for _, ev := range s.records {
		if len(f.Severities) > 0 && !contains(f.Severities, ev.Severity) {
			continue
		}
		if f.EventType != "" && ev.EventType != f.EventType {
			continue
		}
		if f.DetailEmail != "" && ev.Details.String("email") != f.DetailEmail {
			continue
		}
		if !f.Range.Contains(ev.Timestamp) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Find returns matches newest first.
func (s *MemSecurityEvents) Find(_ context.Context, f models.EventFilter, limit int64) ([]models.SecurityEvent, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("events.find"); err != nil {
		return nil, err
	}
	out := s.match(f)
	newestFirst(out, func(ev models.SecurityEvent) (time.Time, primitive.ObjectID) { return ev.Timestamp, ev.ID })
	return append([]models.SecurityEvent{}, limitTo(out, limit)...), nil
}

// Count returns the number of matches.
func (s *MemSecurityEvents) Count(_ context.Context, f models.EventFilter) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("events.count"); err != nil {
		return 0, err
	}
	return int64(len(s.match(f))), nil
}

// GroupBy counts matches per event_type or severity.
func (s *MemSecurityEvents) GroupBy(_ context.Context, f models.EventFilter, field string) ([]models.Group, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("events.group"); err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, ev := range s.match(f) {
		switch field {
		case "event_type":
			counts[ev.EventType]++
		case "severity":
			counts[ev.Severity]++
		default:
			panic(fmt.Sprintf("memstore: unsupported event field %q", field))
		}
	}
	groups := make([]models.Group, 0, len(counts))
	for k, n := range counts {
		groups = append(groups, models.Group{Key: k, Count: n})
	}
	return sortGroups(groups), nil
}

/* -------------------------------------------------------------------------- */
/* access_logs                                                                */
/* -------------------------------------------------------------------------- */

// MemAccessLogs mirrors the access log store.
type MemAccessLogs struct {
	m       *MemStore
	records []models.AccessLog
}

// Insert appends rec.
func (s *MemAccessLogs) Insert(_ context.Context, rec models.AccessLog) (primitive.ObjectID, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("access.insert"); err != nil {
		return primitive.NilObjectID, err
	}
	stamp(&rec.ID, &rec.Timestamp)
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// All returns a copy of every stored record in insertion order.
func (s *MemAccessLogs) All() []models.AccessLog {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return append([]models.AccessLog(nil), s.records...)
}

func (s *MemAccessLogs) match(f models.AccessFilter) []models.AccessLog {
	var out []models.AccessLog
	for _, r := range s.records {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.Endpoint != "" && r.Endpoint != f.Endpoint {
			continue
		}
		if f.Method != "" && r.Method != f.Method {
			continue
		}
		if !f.Range.Contains(r.Timestamp) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Find returns matches newest first.
func (s *MemAccessLogs) Find(_ context.Context, f models.AccessFilter, limit int64) ([]models.AccessLog, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("access.find"); err != nil {
		return nil, err
	}
	out := s.match(f)
	newestFirst(out, func(r models.AccessLog) (time.Time, primitive.ObjectID) { return r.Timestamp, r.ID })
	return append([]models.AccessLog{}, limitTo(out, limit)...), nil
}

// Count returns the number of matches.
func (s *MemAccessLogs) Count(_ context.Context, f models.AccessFilter) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("access.count"); err != nil {
		return 0, err
	}
	return int64(len(s.match(f))), nil
}

/* -------------------------------------------------------------------------- */
/* users                                                                      */
/* -------------------------------------------------------------------------- */

// MemIdentities mirrors the read-only identity store.
type MemIdentities struct {
	m       *MemStore
	records []models.Identity
}

// Add registers an identity and returns it with its id filled in.
func (s *MemIdentities) Add(email string, createdAt time.Time) models.Identity {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	id := models.Identity{ID: primitive.NewObjectID(), Email: strings.ToLower(strings.TrimSpace(email)), CreatedAt: createdAt}
	s.records = append(s.records, id)
	return id
}

// GetByEmail finds an identity by normalized email.
func (s *MemIdentities) GetByEmail(_ context.Context, email string) (models.Identity, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("users.get"); err != nil {
		return models.Identity{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, id := range s.records {
		if id.Email == email {
			return id, nil
		}
	}
	return models.Identity{}, fmt.Errorf("identity %q: %w", email, secerr.ErrNotFound)
}

// Count returns all identities, or those created at or after since.
func (s *MemIdentities) Count(_ context.Context, since *time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.failure("users.count"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range s.records {
		if since == nil || !id.CreatedAt.Before(*since) {
			n++
		}
	}
	return n, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Clock returns a func that always reports t, for injecting "now".
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
