package guard

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

const (
	// SessionCookieMaxAge pins every auth cookie the store writes to a six
	// month lifetime, caller-supplied values notwithstanding.
	SessionCookieMaxAge = 15552000
	// SessionCookiePath scopes auth cookies to the whole site.
	SessionCookiePath = "/"
	// SessionCookieSameSite keeps cookies across top-level navigation.
	SessionCookieSameSite = "Lax"
)

// CookieRecord describes one auth cookie as the store writes it.
type CookieRecord struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	MaxAge   int    `json:"max_age"`
	Path     string `json:"path"`
	HTTPOnly bool   `json:"http_only"`
	Secure   bool   `json:"secure"`
	SameSite string `json:"same_site"`
}

// CookieJar is the request-scoped cookie session store. It owns the response
// cookie jar for its request: reads come from the incoming Cookie header
// overlaid with staged writes, and the staged batch commits to the outgoing
// response exactly once. Writes staged after Commit are counted as deferred
// and dropped; an external refresh pass re-applies them next cycle.
type CookieJar struct {
	ctx       router.Context
	cfg       Config
	logger    Logger
	sink      ActivitySink
	clock     func() time.Time
	pending   map[string]CookieRecord
	order     []string
	committed bool
	deferred  int
}

// CookieJarOption customizes jar construction.
type CookieJarOption func(*CookieJar)

// WithJarLogger overrides the jar's logger.
func WithJarLogger(l Logger) CookieJarOption {
	return func(j *CookieJar) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithJarActivitySink sets the sink receiving deferred-write events.
func WithJarActivitySink(s ActivitySink) CookieJarOption {
	return func(j *CookieJar) {
		j.sink = normalizeActivitySink(s)
	}
}

// WithJarClock injects a custom clock (useful for tests).
func WithJarClock(clock func() time.Time) CookieJarOption {
	return func(j *CookieJar) {
		if clock != nil {
			j.clock = clock
		}
	}
}

// NewCookieJar builds the store for one request/response cycle.
func NewCookieJar(ctx router.Context, cfg Config, opts ...CookieJarOption) *CookieJar {
	j := &CookieJar{
		ctx:     ctx,
		cfg:     cfg,
		logger:  defLogger{},
		sink:    noopActivitySink{},
		clock:   time.Now,
		pending: map[string]CookieRecord{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}

	return j
}

// GetAll returns the jar snapshot: request cookies overlaid with staged
// writes, so a token rotated earlier in the cycle is already visible to
// readers. Request-side records carry name and value only.
func (j *CookieJar) GetAll() []CookieRecord {
	records := []CookieRecord{}
	index := map[string]int{}

	for _, c := range j.requestCookies() {
		index[c.Name] = len(records)
		records = append(records, CookieRecord{Name: c.Name, Value: c.Value})
	}

	for _, name := range j.order {
		rec := j.pending[name]
		if i, ok := index[name]; ok {
			records[i] = rec
			continue
		}
		index[name] = len(records)
		records = append(records, rec)
	}

	return records
}

// SetAll stages writes, forcing the fixed policy onto every record. Staging
// is idempotent: the same input twice leaves one entry per name carrying the
// final attributes. After Commit the write is swallowed and counted instead.
func (j *CookieJar) SetAll(records ...CookieRecord) {
	for _, rec := range records {
		if rec.Name == "" {
			continue
		}
		j.stage(j.normalize(rec))
	}
}

// Clear stages an expiring record for each name (logout path). Removal is
// the one write exempt from the six month lifetime.
func (j *CookieJar) Clear(names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		j.stage(CookieRecord{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     SessionCookiePath,
			SameSite: SessionCookieSameSite,
			Secure:   j.cfg.GetSecureCookies(),
		})
	}
}

// SessionTokens extracts the raw token pair from the jar snapshot.
func (j *CookieJar) SessionTokens() TokenPair {
	tokens := TokenPair{}
	for _, rec := range j.GetAll() {
		switch rec.Name {
		case j.cfg.GetAccessCookieName():
			tokens.AccessToken = rec.Value
		case j.cfg.GetRefreshCookieName():
			tokens.RefreshToken = rec.Value
		}
	}
	return tokens
}

// Commit applies the staged batch to the outgoing response. Only the first
// call writes; the response jar is immutable afterwards.
func (j *CookieJar) Commit() {
	if j.committed {
		return
	}
	j.committed = true

	for _, name := range j.order {
		rec := j.pending[name]

		expires := j.clock().Add(time.Duration(rec.MaxAge) * time.Second)
		if rec.MaxAge < 0 {
			expires = j.clock().Add(-time.Hour * (24 * 365))
		}

		j.ctx.Cookie(&router.Cookie{
			Name:     rec.Name,
			Value:    rec.Value,
			Path:     rec.Path,
			Expires:  expires,
			HTTPOnly: rec.HTTPOnly,
			Secure:   rec.Secure,
			SameSite: rec.SameSite,
		})
	}
}

// Committed reports whether the response batch has been applied.
func (j *CookieJar) Committed() bool {
	return j.committed
}

// DeferredWrites reports how many writes arrived after Commit and were
// dropped. Non-zero values mean the next request cycle must re-apply them.
func (j *CookieJar) DeferredWrites() int {
	return j.deferred
}

func (j *CookieJar) stage(rec CookieRecord) {
	if j.committed {
		j.deferWrite(rec)
		return
	}
	if _, ok := j.pending[rec.Name]; !ok {
		j.order = append(j.order, rec.Name)
	}
	j.pending[rec.Name] = rec
}

// normalize forces the write policy: six month lifetime, site-wide path, lax
// same-site, secure per deployment. HTTPOnly stays false so a client-side
// reader can observe session state; see the package doc for the trade-off.
func (j *CookieJar) normalize(rec CookieRecord) CookieRecord {
	rec.MaxAge = SessionCookieMaxAge
	rec.Path = SessionCookiePath
	rec.SameSite = SessionCookieSameSite
	rec.HTTPOnly = false
	rec.Secure = j.cfg.GetSecureCookies()
	return rec
}

func (j *CookieJar) deferWrite(rec CookieRecord) {
	j.deferred++
	j.logger.Warn("cookie write after response commit deferred: %s (total %d)", rec.Name, j.deferred)

	event := ActivityEvent{
		EventType:  ActivityEventCookieWriteDeferred,
		OccurredAt: j.clock(),
		Metadata: map[string]any{
			"cookie":         rec.Name,
			"deferred_total": j.deferred,
			"reason":         ErrCookieWriteDeferred.TextCode,
		},
	}
	if err := j.sink.Record(j.ctx.Context(), event); err != nil {
		j.logger.Warn("cookie jar activity sink error: %v", err)
	}
}

// requestCookies parses the raw Cookie header; net/http owns the grammar.
func (j *CookieJar) requestCookies() []*http.Cookie {
	raw := j.ctx.GetString("Cookie", "")
	if raw == "" {
		return nil
	}
	req := http.Request{Header: http.Header{"Cookie": []string{raw}}}
	return req.Cookies()
}
