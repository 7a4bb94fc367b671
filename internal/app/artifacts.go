package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/okian/invoy/internal/adapters/render"
	"github.com/okian/invoy/internal/adapters/repository"
	"github.com/okian/invoy/internal/domain/model"
)

const artifactPrefix = "invoice/"

// Artifact file extensions.
const (
	ExtHTML = ".html"
	ExtPDF  = ".pdf"
	ExtJSON = ".json"
)

// ArtifactPath is the public download path of an artifact.
func ArtifactPath(invoiceID, ext string) string {
	return "/invoices/" + invoiceID + ext
}

func artifactKey(name string) string { return artifactPrefix + name }

// validArtifactName accepts "<id>.html|.pdf|.json" without path segments.
func validArtifactName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	switch path.Ext(name) {
	case ExtHTML, ExtPDF, ExtJSON:
		return len(name) > len(path.Ext(name))
	}
	return false
}

// Artifact returns a persisted artifact by file name, e.g. "AI-Acme.pdf".
func (s *Service) Artifact(ctx context.Context, name string) ([]byte, error) {
	if !validArtifactName(name) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	b, err := s.store.Load(ctx, artifactKey(name))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return b, err
}

// persist stores the rendered forms and the invoice record. It returns
// the stored file names.
func (s *Service) persist(ctx context.Context, inv *model.Invoice, doc render.Document) ([]string, error) {
	files := []string{inv.ID + ExtHTML}
	if err := s.store.Save(ctx, artifactKey(files[0]), doc.HTML); err != nil {
		return nil, fmt.Errorf("persist %s: %w", files[0], err)
	}
	if len(doc.PDF) > 0 {
		name := inv.ID + ExtPDF
		if err := s.store.Save(ctx, artifactKey(name), doc.PDF); err != nil {
			return nil, fmt.Errorf("persist %s: %w", name, err)
		}
		files = append(files, name)
	}
	if err := s.saveRecord(ctx, inv); err != nil {
		return nil, err
	}
	return append(files, inv.ID+ExtJSON), nil
}

func (s *Service) saveRecord(ctx context.Context, inv *model.Invoice) error {
	raw, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invoice %s: %w", inv.ID, err)
	}
	if err := s.store.Save(ctx, artifactKey(inv.ID+ExtJSON), raw); err != nil {
		return fmt.Errorf("persist %s: %w", inv.ID+ExtJSON, err)
	}
	return nil
}

// loadRecord restores a persisted invoice with the current profile and
// branding, which are not part of the record.
func (s *Service) loadRecord(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	raw, err := s.Artifact(ctx, invoiceID+ExtJSON)
	if err != nil {
		return nil, err
	}
	var inv model.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decode invoice %s: %w", invoiceID, err)
	}
	inv.Consultant = s.profile
	inv.Branding = s.branding
	return &inv, nil
}
