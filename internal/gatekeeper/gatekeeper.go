// Package gatekeeper is the deterministic, LLM-free admission filter in
// front of the pipeline: extension and MIME whitelists, skip patterns, and
// broker inference from the inbox folder structure.
package gatekeeper

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

// Rejection reasons. Suffixed reasons carry the offending extension or MIME
// after the colon.
const (
	ReasonOK                   = "ok"
	ReasonFileNotFound         = "file_not_found"
	ReasonNotAFile             = "not_a_file"
	ReasonSkippedPattern       = "skipped_pattern"
	ReasonUnsupportedExtension = "unsupported_extension"
	ReasonInvalidMIME          = "invalid_mime"
)

// Config carries the admission policy. Zero values fall back to the
// defaults of the production inbox layout.
type Config struct {
	// SkipPatterns are filename substrings/prefixes for temp files and OS
	// artifacts. A leading pattern character '~' matches as a prefix.
	SkipPatterns []string

	// AllowedExtensions is the lower-cased extension whitelist (with dot).
	AllowedExtensions []string

	// AllowedMIMEPrefixes is the content-sniff whitelist. Empty disables
	// MIME checking.
	AllowedMIMEPrefixes []string

	// DiscardRoot, when set, receives rejected files under a
	// reason-coded subfolder.
	DiscardRoot string
}

// DefaultConfig returns the standard admission policy.
func DefaultConfig() Config {
	return Config{
		SkipPatterns:      []string{"~", ".DS_Store", "Thumbs.db", "desktop.ini"},
		AllowedExtensions: []string{".csv", ".pdf", ".xls", ".xlsx"},
		AllowedMIMEPrefixes: []string{
			"text/csv",
			"text/plain",
			"application/pdf",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats",
			"application/zip",
			"application/octet-stream",
		},
	}
}

// Result is the admission decision for one file.
type Result struct {
	Accepted bool
	Reason   string
	Broker   string
}

// Stats counts admission outcomes.
type Stats struct {
	Processed int
	Accepted  int
	Rejected  int
	ByReason  map[string]int
}

// Gatekeeper applies the admission policy. Stateless across calls except
// for the statistics counters.
type Gatekeeper struct {
	cfg Config
	log logging.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Gatekeeper. A nil logger falls back to the package default.
func New(cfg Config, log logging.Logger) *Gatekeeper {
	if log == nil {
		log = logging.GetLogger()
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = DefaultConfig().AllowedExtensions
	}
	if len(cfg.SkipPatterns) == 0 {
		cfg.SkipPatterns = DefaultConfig().SkipPatterns
	}
	return &Gatekeeper{
		cfg:   cfg,
		log:   log,
		stats: Stats{ByReason: map[string]int{}},
	}
}

// ProcessFile runs the ordered admission checks, short-circuiting on the
// first failure. Rejections are categorized outcomes, never errors.
func (g *Gatekeeper) ProcessFile(path string) Result {
	res := g.check(path)
	g.count(res)

	if !res.Accepted {
		g.log.Debug("file rejected",
			logging.Field{Key: logging.FieldFile, Value: path},
			logging.Field{Key: logging.FieldReason, Value: res.Reason})
		g.discard(path, res.Reason)
	}
	return res
}

func (g *Gatekeeper) check(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Reason: ReasonFileNotFound}
	}
	if !info.Mode().IsRegular() {
		return Result{Reason: ReasonNotAFile}
	}

	name := filepath.Base(path)
	for _, pat := range g.cfg.SkipPatterns {
		if pat == "~" {
			if strings.HasPrefix(name, "~") {
				return Result{Reason: ReasonSkippedPattern}
			}
			continue
		}
		if strings.EqualFold(name, pat) {
			return Result{Reason: ReasonSkippedPattern}
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !contains(g.cfg.AllowedExtensions, ext) {
		return Result{Reason: ReasonUnsupportedExtension + ":" + ext}
	}

	if mime, ok := g.sniff(path); ok && !g.mimeAllowed(mime) {
		return Result{Reason: ReasonInvalidMIME + ":" + mime}
	}

	return Result{Accepted: true, Reason: ReasonOK, Broker: BrokerFromPath(path)}
}

// sniff content-detects the file's MIME type. Degrades to "pass" (ok=false)
// when detection is unavailable: a missing optional capability never rejects.
func (g *Gatekeeper) sniff(path string) (string, bool) {
	if len(g.cfg.AllowedMIMEPrefixes) == 0 {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil || n == 0 {
		return "", false
	}
	return http.DetectContentType(buf[:n]), true
}

func (g *Gatekeeper) mimeAllowed(mime string) bool {
	for _, prefix := range g.cfg.AllowedMIMEPrefixes {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}

// discard moves a rejected file under DiscardRoot/{reason-root}/, keeping
// the filename. Best effort only.
func (g *Gatekeeper) discard(path, reason string) {
	if g.cfg.DiscardRoot == "" {
		return
	}
	root := reason
	if i := strings.IndexByte(root, ':'); i >= 0 {
		root = root[:i]
	}
	if root == ReasonFileNotFound {
		return
	}
	dir := filepath.Join(g.cfg.DiscardRoot, root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		g.log.WithError(err).Warn("cannot create discard directory",
			logging.Field{Key: logging.FieldFile, Value: dir})
		return
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		g.log.WithError(err).Warn("cannot move rejected file",
			logging.Field{Key: logging.FieldFile, Value: path})
	}
}

func (g *Gatekeeper) count(res Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.Processed++
	if res.Accepted {
		g.stats.Accepted++
	} else {
		g.stats.Rejected++
		g.stats.ByReason[res.Reason]++
	}
}

// Stats returns a snapshot of the admission counters.
func (g *Gatekeeper) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := Stats{
		Processed: g.stats.Processed,
		Accepted:  g.stats.Accepted,
		Rejected:  g.stats.Rejected,
		ByReason:  make(map[string]int, len(g.stats.ByReason)),
	}
	for k, v := range g.stats.ByReason {
		out.ByReason[k] = v
	}
	return out
}

// BrokerFromPath infers the broker from the first path segment after a
// literal "inbox" component, normalized upper-case with spaces as
// underscores. Falls back to the immediate parent directory name.
func BrokerFromPath(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		if strings.EqualFold(seg, "inbox") && i+2 < len(segments) {
			return normalizeBroker(segments[i+1])
		}
	}
	parent := filepath.Base(filepath.Dir(path))
	if parent == "." || parent == "/" || parent == "" {
		return ""
	}
	return normalizeBroker(parent)
}

func normalizeBroker(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
