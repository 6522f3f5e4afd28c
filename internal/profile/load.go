// Package profile loads the résumé document the assistant is allowed to
// answer from. A Profile is read once at startup and never mutated after.
package profile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ledongthuc/pdf"

	"github.com/lionelhu/foliochat/internal/datafile"
)

// Load reads the profile document at path (JSON or YAML). When resumePDF is
// non-empty, the plain text of that PDF is attached under "resume_text".
func Load(path, resumePDF string) (*Profile, error) {
	var p Profile
	if err := datafile.Read(path, &p); err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if err := validator.New().Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	if resumePDF != "" {
		text, err := ReadResumeText(resumePDF)
		if err != nil {
			return nil, err
		}
		p.set("resume_text", text)
	}
	return &p, nil
}

// ReadResumeText extracts the plain text of a PDF résumé with runs of
// whitespace collapsed to single spaces.
func ReadResumeText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening resume %s: %w", path, err)
	}
	defer f.Close()

	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting resume text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rd); err != nil {
		return "", fmt.Errorf("reading resume text: %w", err)
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}
