package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

type redactPattern struct {
	re   *regexp.Regexp
	repl string
}

// Redactor masks credentials in log output
type Redactor struct {
	patterns []redactPattern
}

// NewRedactor creates a redactor with the default patterns
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			// token query parameter of the realtime URL; keep the key
			{regexp.MustCompile(`([?&]token=)[^&\s"]+`), "${1}" + redacted},

			{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._~+/=-]+`), "Bearer " + redacted},

			// JWTs
			{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), redacted},

			{regexp.MustCompile(`("token"\s*:\s*")[^"]+`), "${1}" + redacted},
			{regexp.MustCompile(`password["\s:=]+[^\s"]+`), redacted},
			{regexp.MustCompile(`secret["\s:=]+[^\s"]+`), redacted},
		},
	}
}

// AddPattern adds a custom pattern whose matches are replaced entirely
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, redactPattern{re: re, repl: redacted})
	return nil
}

// Redact masks sensitive values in s
func (r *Redactor) Redact(s string) string {
	for _, p := range r.patterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

// Wrap returns a writer that redacts before writing to w
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success since callers wrote p, not the redacted form.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
