package terminology

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gofhir/labcodeset/cache"
	"github.com/gofhir/labcodeset/pkg/issue"
)

const sourceLookup = "lookup"

// LookupCache memoizes remote lookups for the lifetime of one run.
//
// Every distinct Key reaches the Client at most once per operation, including
// keys whose display lookup fell back to the caller-supplied value. Entries
// are never evicted. A LookupCache is safe for concurrent use: misses on the
// same key are collapsed into one flight.
type LookupCache struct {
	client   Client
	store    Store
	issues   *issue.Collector
	recorder Recorder
	log      zerolog.Logger

	displays *cache.Cache[Key, string]
	props    *cache.Cache[Key, []Property]
	flights  singleflight.Group

	remoteCalls atomic.Int64
}

// CacheOption configures a LookupCache.
type CacheOption func(*LookupCache)

// WithStore adds a persistent store consulted before the remote server.
func WithStore(s Store) CacheOption {
	return func(c *LookupCache) {
		c.store = s
	}
}

// WithIssues sets the collector receiving lookup diagnostics.
func WithIssues(col *issue.Collector) CacheOption {
	return func(c *LookupCache) {
		c.issues = col
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) CacheOption {
	return func(c *LookupCache) {
		c.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) CacheOption {
	return func(c *LookupCache) {
		c.log = log
	}
}

// NewLookupCache creates an empty cache in front of client.
func NewLookupCache(client Client, opts ...CacheOption) *LookupCache {
	c := &LookupCache{
		client:   client,
		recorder: nopRecorder{},
		log:      zerolog.Nop(),
		displays: cache.New[Key, string](256),
		props:    cache.New[Key, []Property](1024),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.issues == nil {
		c.issues = issue.NewCollector(c.log)
	}
	return c
}

// ResolveDisplay returns the display of code in system/version.
//
// On a miss it issues one remote lookup. When the server does not know the
// code, or answers without a display, fallback is cached and returned and a
// warning is recorded. Any other error is returned and nothing is cached.
func (c *LookupCache) ResolveDisplay(ctx context.Context, code, system, version, fallback string) (string, error) {
	key := Key{Code: code, System: system, Version: version}
	if v, ok := c.displays.Get(key); ok {
		c.recorder.RecordLookup(OpDisplay, OutcomeHit)
		return v, nil
	}

	v, err, _ := c.flights.Do("d|"+key.String(), func() (any, error) {
		if v, ok := c.displays.Peek(key); ok {
			return v, nil
		}

		if display, ok := c.storedDisplay(ctx, key); ok {
			c.displays.Set(key, display)
			c.recorder.RecordLookup(OpDisplay, OutcomeStore)
			return display, nil
		}

		display, err := c.remoteDisplay(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound) || (err == nil && display == ""):
			c.displays.Set(key, fallback)
			c.recorder.RecordLookup(OpDisplay, OutcomeFallback)
			c.issues.Report(issue.DiagLookupDisplayFallback, sourceLookup, map[string]any{
				"code": code, "system": system, "version": version, "fallback": fallback,
			}, code)
			return fallback, nil
		case err != nil:
			c.recorder.RecordLookup(OpDisplay, OutcomeError)
			return "", fmt.Errorf("display lookup of %s failed: %w", key, err)
		}

		c.displays.Set(key, display)
		c.recorder.RecordLookup(OpDisplay, OutcomeRemote)
		c.putDisplay(ctx, key, display)
		return display, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ResolveAllProperties returns every property of code in system/version, in
// the order the server returned them.
//
// On a miss it issues one remote lookup requesting all properties. There is
// no fallback: any error is returned and nothing is cached. The returned
// slice is a copy.
func (c *LookupCache) ResolveAllProperties(ctx context.Context, code, system, version string) ([]Property, error) {
	key := Key{Code: code, System: system, Version: version}
	if v, ok := c.props.Get(key); ok {
		c.recorder.RecordLookup(OpProperties, OutcomeHit)
		return slices.Clone(v), nil
	}

	v, err, _ := c.flights.Do("p|"+key.String(), func() (any, error) {
		if v, ok := c.props.Peek(key); ok {
			return v, nil
		}

		if props, ok := c.storedProperties(ctx, key); ok {
			c.props.Set(key, props)
			c.recorder.RecordLookup(OpProperties, OutcomeStore)
			return props, nil
		}

		props, err := c.remoteProperties(ctx, key)
		if err != nil {
			c.recorder.RecordLookup(OpProperties, OutcomeError)
			return nil, fmt.Errorf("property lookup of %s failed: %w", key, err)
		}
		if len(props) == 0 {
			c.issues.Report(issue.DiagLookupNoProperties, sourceLookup, map[string]any{
				"code": code, "system": system, "version": version,
			}, code)
		}

		c.props.Set(key, props)
		c.recorder.RecordLookup(OpProperties, OutcomeRemote)
		c.putProperties(ctx, key, props)
		return props, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]Property)), nil
}

// RemoteCalls returns the number of calls made to the Client so far.
func (c *LookupCache) RemoteCalls() int64 {
	return c.remoteCalls.Load()
}

// Stats returns statistics for the display and property memo tables.
func (c *LookupCache) Stats() (display, properties cache.Stats) {
	return c.displays.Stats(), c.props.Stats()
}

func (c *LookupCache) remoteDisplay(ctx context.Context, key Key) (string, error) {
	c.remoteCalls.Add(1)
	start := time.Now()
	display, err := c.client.LookupDisplay(ctx, key.Code, key.System, key.Version)
	c.recorder.RecordRemoteCall(OpDisplay, time.Since(start), err)
	c.log.Debug().Str("key", key.String()).Dur("took", time.Since(start)).Err(err).Msg("display lookup")
	return display, err
}

func (c *LookupCache) remoteProperties(ctx context.Context, key Key) ([]Property, error) {
	c.remoteCalls.Add(1)
	start := time.Now()
	props, err := c.client.LookupProperties(ctx, key.Code, key.System, key.Version)
	c.recorder.RecordRemoteCall(OpProperties, time.Since(start), err)
	c.log.Debug().Str("key", key.String()).Int("properties", len(props)).Dur("took", time.Since(start)).Err(err).Msg("property lookup")
	return props, err
}

func (c *LookupCache) storedDisplay(ctx context.Context, key Key) (string, bool) {
	if c.store == nil {
		return "", false
	}
	v, ok, err := c.store.GetDisplay(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("lookup store read failed")
		return "", false
	}
	return v, ok
}

func (c *LookupCache) putDisplay(ctx context.Context, key Key, display string) {
	if c.store == nil {
		return
	}
	if err := c.store.PutDisplay(ctx, key, display); err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("lookup store write failed")
	}
}

func (c *LookupCache) storedProperties(ctx context.Context, key Key) ([]Property, bool) {
	if c.store == nil {
		return nil, false
	}
	v, ok, err := c.store.GetProperties(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("lookup store read failed")
		return nil, false
	}
	return v, ok
}

func (c *LookupCache) putProperties(ctx context.Context, key Key, props []Property) {
	if c.store == nil {
		return
	}
	if err := c.store.PutProperties(ctx, key, props); err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("lookup store write failed")
	}
}
