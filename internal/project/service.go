// Package project owns the design lifecycle: creation from tool
// parameters, listing, rename/delete, and versioned document snapshots.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/store"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/typeid"
)

var (
	ErrNotFound  = errors.New("design not found")
	ErrForbidden = errors.New("forbidden")
)

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

type Design struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	Tool      string `json:"tool"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Create builds a fresh parametric document, stores the design row and
// seeds snapshot version 1 in one go.
func (s *Service) Create(ctx context.Context, ownerID string, params document.Params) (*Design, error) {
	doc := document.Build(params)

	created, err := s.store.CreateDesign(ctx, store.Design{
		ID:      doc.ID,
		OwnerID: ownerID,
		Name:    doc.Name,
		Tool:    string(doc.Tool),
	})
	if err != nil {
		return nil, fmt.Errorf("create design: %w", err)
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	if _, err := s.store.CreateSnapshot(ctx, typeid.NewSnapshotID(), created.ID, docJSON); err != nil {
		return nil, fmt.Errorf("seed snapshot: %w", err)
	}

	return toDesign(created), nil
}

func (s *Service) Get(ctx context.Context, designID, userID string) (*Design, error) {
	d, err := s.ownedDesign(ctx, designID, userID)
	if err != nil {
		return nil, err
	}
	return toDesign(d), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Design, error) {
	ds, err := s.store.ListDesignsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	out := make([]Design, len(ds))
	for i, d := range ds {
		out[i] = *toDesign(d)
	}
	return out, nil
}

func (s *Service) Rename(ctx context.Context, designID, userID, name string) error {
	if _, err := s.ownedDesign(ctx, designID, userID); err != nil {
		return err
	}
	if err := s.store.RenameDesign(ctx, designID, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("rename design: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, designID, userID string) error {
	if _, err := s.ownedDesign(ctx, designID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteDesign(ctx, designID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete design: %w", err)
	}
	return nil
}

// Rebuild regenerates system elements from changed parameters, preserving
// user-placed elements, and stores the result as a new snapshot version.
func (s *Service) Rebuild(ctx context.Context, designID, userID string, params document.Params) (json.RawMessage, error) {
	if _, err := s.ownedDesign(ctx, designID, userID); err != nil {
		return nil, err
	}

	snap, err := s.store.GetLatestSnapshot(ctx, designID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var doc document.Document
	if err := json.Unmarshal(snap.Document, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	rebuilt := document.Rebuild(&doc, params)
	docJSON, err := json.Marshal(rebuilt)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	if _, err := s.store.CreateSnapshot(ctx, typeid.NewSnapshotID(), designID, docJSON); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	return docJSON, nil
}

func (s *Service) GetLatestSnapshot(ctx context.Context, designID, userID string) (json.RawMessage, error) {
	if _, err := s.ownedDesign(ctx, designID, userID); err != nil {
		return nil, err
	}
	snap, err := s.store.GetLatestSnapshot(ctx, designID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap.Document, nil
}

// SaveSnapshot stores a client-supplied document as the next version.
// The payload must decode as a document to be accepted.
func (s *Service) SaveSnapshot(ctx context.Context, designID, userID string, docJSON json.RawMessage) error {
	if _, err := s.ownedDesign(ctx, designID, userID); err != nil {
		return err
	}
	var doc document.Document
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if _, err := s.store.CreateSnapshot(ctx, typeid.NewSnapshotID(), designID, docJSON); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// LoadDocumentJSON fetches the latest snapshot without an ownership
// check; the session hub authorizes before opening a room.
func (s *Service) LoadDocumentJSON(ctx context.Context, designID string) (string, error) {
	snap, err := s.store.GetLatestSnapshot(ctx, designID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get snapshot: %w", err)
	}
	return string(snap.Document), nil
}

// SaveDocumentJSON appends a snapshot version from the session hub.
func (s *Service) SaveDocumentJSON(ctx context.Context, designID, docJSON string) error {
	if _, err := s.store.CreateSnapshot(ctx, typeid.NewSnapshotID(), designID, []byte(docJSON)); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// IsOwner reports whether a user owns a design.
func (s *Service) IsOwner(ctx context.Context, designID, userID string) (bool, error) {
	d, err := s.store.GetDesign(ctx, designID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("get design: %w", err)
	}
	return d.OwnerID == userID, nil
}

func (s *Service) ownedDesign(ctx context.Context, designID, userID string) (store.Design, error) {
	d, err := s.store.GetDesign(ctx, designID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Design{}, ErrNotFound
		}
		return store.Design{}, fmt.Errorf("get design: %w", err)
	}
	if d.OwnerID != userID {
		return store.Design{}, ErrForbidden
	}
	return d, nil
}

func toDesign(d store.Design) *Design {
	return &Design{
		ID:        d.ID,
		Name:      d.Name,
		OwnerID:   d.OwnerID,
		Tool:      d.Tool,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
