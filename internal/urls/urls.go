// Package urls turns storage keys into URLs a browser or operator can open.
//
// The access mode decides the strategy: public buckets get stable object URLs
// (direct or viewer style) and private buckets get short-lived signed URLs.
// Signing failures are returned to the caller as services.ErrSigningFailed;
// a private bucket never falls back to a public-shaped URL.
package urls

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"contentstudio/internal/objectkey"
	"contentstudio/internal/services"
)

// Style selects the public URL flavour.
type Style string

const (
	// StyleDirect yields storage.googleapis.com object URLs.
	StyleDirect Style = "direct"
	// StyleConsole yields storage.cloud.google.com viewer URLs that require
	// the caller's own session.
	StyleConsole Style = "console"
)

const (
	defaultDirectBase  = "https://storage.googleapis.com"
	defaultViewerBase  = "https://storage.cloud.google.com"
	consoleDetailsBase = "https://console.cloud.google.com/storage/browser/_details"

	// DefaultMinutes is the signed URL lifetime when a caller passes zero.
	DefaultMinutes = 60
)

// Signer issues time-limited read URLs. objectstore.Store satisfies it.
type Signer interface {
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Mode is the bucket access configuration.
type Mode struct {
	PublicRead bool
	Style      Style
}

// Options configures a Materializer.
type Options struct {
	Bucket    string
	ProjectID string
	Mode      Mode
	// DirectBase and ViewerBase override the public URL roots. Both default
	// to the Google Cloud Storage hosts for Bucket.
	DirectBase string
	ViewerBase string
	// SignedMinutes is the lifetime used when a caller passes zero.
	// HeroMinutes and RedirectMinutes are the signed lifetimes for image
	// previews and object redirects.
	SignedMinutes   int
	HeroMinutes     int
	RedirectMinutes int
	// CacheSize bounds the signed URL memo; zero disables it.
	CacheSize int
	Now       func() time.Time
}

type signedEntry struct {
	url      string
	reuseTil time.Time
}

// Materializer builds URLs for resolved keys.
type Materializer struct {
	resolver        objectkey.Resolver
	signer          Signer
	bucket          string
	project         string
	mode            Mode
	directBase      string
	viewerBase      string
	signedMinutes   int
	heroMinutes     int
	redirectMinutes int
	memo            *lru.Cache[string, signedEntry]
	now             func() time.Time
}

// New returns a materializer that prefixes keys with resolver and delegates
// signing to signer.
func New(resolver objectkey.Resolver, signer Signer, opts Options) *Materializer {
	m := &Materializer{
		resolver:        resolver,
		signer:          signer,
		bucket:          strings.TrimSpace(opts.Bucket),
		project:         strings.TrimSpace(opts.ProjectID),
		mode:            opts.Mode,
		directBase:      strings.TrimRight(opts.DirectBase, "/"),
		viewerBase:      strings.TrimRight(opts.ViewerBase, "/"),
		signedMinutes:   opts.SignedMinutes,
		heroMinutes:     opts.HeroMinutes,
		redirectMinutes: opts.RedirectMinutes,
		now:             opts.Now,
	}
	if m.mode.Style != StyleConsole {
		m.mode.Style = StyleDirect
	}
	if m.directBase == "" {
		m.directBase = defaultDirectBase + "/" + m.bucket
	}
	if m.viewerBase == "" {
		m.viewerBase = defaultViewerBase + "/" + m.bucket
	}
	if m.signedMinutes <= 0 {
		m.signedMinutes = DefaultMinutes
	}
	if m.heroMinutes <= 0 {
		m.heroMinutes = 15
	}
	if m.redirectMinutes <= 0 {
		m.redirectMinutes = 10
	}
	if m.now == nil {
		m.now = time.Now
	}
	if opts.CacheSize > 0 {
		if cache, err := lru.New[string, signedEntry](opts.CacheSize); err == nil {
			m.memo = cache
		}
	}
	return m
}

// Mode returns the configured access mode.
func (m *Materializer) Mode() Mode {
	return m.mode
}

// Key returns the prefixed storage key for key.
func (m *Materializer) Key(key string) string {
	return m.resolver.WithPrefix(key)
}

// Direct returns the stable public object URL for key.
func (m *Materializer) Direct(key string) string {
	return m.directBase + "/" + EncodePath(m.Key(key))
}

// Viewer returns the session-authenticated viewer URL for key.
func (m *Materializer) Viewer(key string) string {
	return m.viewerBase + "/" + EncodePath(m.Key(key))
}

// Public returns the public URL for key in the configured style.
func (m *Materializer) Public(key string) string {
	if m.mode.Style == StyleConsole {
		return m.Viewer(key)
	}
	return m.Direct(key)
}

// ConsoleDetails returns the operator-facing Cloud Console page for key. It
// is derivable in every access mode and is never a browser-facing image URL.
func (m *Materializer) ConsoleDetails(key string) string {
	return fmt.Sprintf("%s/%s/%s?project=%s",
		consoleDetailsBase, m.bucket, EncodePath(m.Key(key)), encodeComponent(m.project))
}

// GsURI returns the gs:// URI of key.
func (m *Materializer) GsURI(key string) string {
	return "gs://" + m.bucket + "/" + m.Key(key)
}

// Read returns a dereferenceable URL for key: the public URL when the bucket
// is public, otherwise a URL signed for minutes (SignedMinutes when zero).
func (m *Materializer) Read(ctx context.Context, key string, minutes int) (string, error) {
	if m.mode.PublicRead {
		return m.Public(key), nil
	}
	return m.Signed(ctx, key, minutes)
}

// Hero returns the preview URL used as an image's heroUrl. Public buckets in
// console style get the viewer URL; everything else goes through Read with
// the hero lifetime.
func (m *Materializer) Hero(ctx context.Context, key string) (string, error) {
	if m.mode.PublicRead && m.mode.Style == StyleConsole {
		return m.Viewer(key), nil
	}
	return m.Read(ctx, key, m.heroMinutes)
}

// Redirect returns the target of an object redirect, signed for the short
// redirect lifetime on private buckets.
func (m *Materializer) Redirect(ctx context.Context, key string) (string, error) {
	if m.mode.PublicRead && m.mode.Style == StyleConsole {
		return m.Viewer(key), nil
	}
	return m.Read(ctx, key, m.redirectMinutes)
}

// Signed issues a signed URL regardless of the access mode.
func (m *Materializer) Signed(ctx context.Context, key string, minutes int) (string, error) {
	if minutes <= 0 {
		minutes = m.signedMinutes
	}
	if m.signer == nil {
		return "", services.Wrap(services.ErrSigningFailed, "urls", "sign", "no signer configured", nil)
	}
	resolved := m.Key(key)
	memoKey := fmt.Sprintf("%s|%d", resolved, minutes)
	now := m.now()
	if m.memo != nil {
		if entry, ok := m.memo.Get(memoKey); ok && now.Before(entry.reuseTil) {
			return entry.url, nil
		}
	}
	expiry := time.Duration(minutes) * time.Minute
	signed, err := m.signer.SignedURL(ctx, resolved, expiry)
	if err != nil {
		return "", services.Wrap(services.ErrSigningFailed, "urls", "sign", resolved, err)
	}
	if m.memo != nil {
		// Reuse for half the lifetime so handed-out links keep a useful window.
		m.memo.Add(memoKey, signedEntry{url: signed, reuseTil: now.Add(expiry / 2)})
	}
	return signed, nil
}

// EncodePath percent-encodes each segment of key independently, leaving the
// slash separators intact.
func EncodePath(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = encodeComponent(seg)
	}
	return strings.Join(segments, "/")
}

// encodeComponent matches the browser encodeURIComponent set.
func encodeComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []struct{ enc, raw string }{
		{"%21", "!"}, {"%27", "'"}, {"%28", "("}, {"%29", ")"}, {"%2A", "*"},
	} {
		escaped = strings.ReplaceAll(escaped, keep.enc, keep.raw)
	}
	return escaped
}
