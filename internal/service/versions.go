package service

import (
	"context"
	"errors"
	"fmt"
	"go-cms-app/internal/data"
)

// FieldChange describes one field that differs between two versions.
type FieldChange struct {
	Field    string      `json:"field"`
	OldValue interface{} `json:"oldValue"`
	NewValue interface{} `json:"newValue"`
}

// VersionComparison is the result of CompareVersions.
type VersionComparison struct {
	Version1 *data.PageVersion `json:"version1"`
	Version2 *data.PageVersion `json:"version2"`
	Changes  []FieldChange     `json:"changes"`
}

// comparedFields lists the fields CompareVersions inspects, in output order.
var comparedFields = []struct {
	name  string
	value func(*data.PageVersion) interface{}
}{
	{"title", func(v *data.PageVersion) interface{} { return v.Title }},
	{"description", func(v *data.PageVersion) interface{} { return v.Description }},
	{"category", func(v *data.PageVersion) interface{} { return v.Category }},
	{"metaTitle", func(v *data.PageVersion) interface{} { return v.MetaTitle }},
	{"metaDescription", func(v *data.PageVersion) interface{} { return v.MetaDescription }},
	{"featuredImage", func(v *data.PageVersion) interface{} { return v.FeaturedImage }},
	{"isPublished", func(v *data.PageVersion) interface{} { return v.IsPublished }},
}

// GetPageVersions returns the history of a page, newest first.
func (s *PageService) GetPageVersions(ctx context.Context, pageID string) ([]*data.PageVersion, error) {
	versions, err := s.store.ListVersionsByPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list page versions: %w", err)
	}
	if versions == nil {
		versions = []*data.PageVersion{}
	}
	return versions, nil
}

// GetLatestVersion returns the highest numbered version of a page, or nil if it has none.
func (s *PageService) GetLatestVersion(ctx context.Context, pageID string) (*data.PageVersion, error) {
	v, err := s.store.FindLatestVersion(ctx, pageID)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest version: %w", err)
	}
	return v, nil
}

// GetPageVersionByID returns a single version, or nil if it does not exist.
func (s *PageService) GetPageVersionByID(ctx context.Context, versionID string) (*data.PageVersion, error) {
	v, err := s.store.FindVersionByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page version: %w", err)
	}
	return v, nil
}

// RestoreVersion copies the content of an older version back onto the page.
// The restore is itself recorded as a new version; history is never rewritten.
func (s *PageService) RestoreVersion(ctx context.Context, pageID, versionID string, actor Actor) (*data.Page, error) {
	unlock := s.locks.Lock(pageID)
	defer unlock()

	version, err := s.store.FindVersionByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, &NotFoundError{Resource: "page version", ID: versionID}
		}
		return nil, fmt.Errorf("failed to load version: %w", err)
	}
	if version.PageID != pageID {
		return nil, &NotFoundError{Resource: "page version", ID: versionID}
	}

	metadata := version.Metadata.Clone()
	if metadata == nil {
		metadata = data.Metadata{}
	}
	upd := PageUpdate{
		Title:           &version.Title,
		Description:     &version.Description,
		Category:        &version.Category,
		MetaTitle:       &version.MetaTitle,
		MetaDescription: &version.MetaDescription,
		FeaturedImage:   &version.FeaturedImage,
		Metadata:        metadata,
		IsPublished:     &version.IsPublished,
	}
	extra := data.Metadata{
		"restoredVersionId":     version.ID,
		"restoredVersionNumber": version.VersionNumber,
	}
	page, err := s.applyUpdate(ctx, pageID, upd, actor, "restore", extra)
	if err != nil {
		return nil, err
	}

	s.log.With(map[string]interface{}{
		"page_id":        pageID,
		"version_number": version.VersionNumber,
	}).Info("Page version restored")
	return page, nil
}

// CompareVersions lists the fields that differ between two versions,
// reading old values from the first and new values from the second.
func (s *PageService) CompareVersions(ctx context.Context, versionID1, versionID2 string) (*VersionComparison, error) {
	v1, err := s.store.FindVersionByID(ctx, versionID1)
	if err != nil {
		return nil, versionLookupError(err, versionID1)
	}
	v2, err := s.store.FindVersionByID(ctx, versionID2)
	if err != nil {
		return nil, versionLookupError(err, versionID2)
	}

	changes := []FieldChange{}
	for _, f := range comparedFields {
		oldValue, newValue := f.value(v1), f.value(v2)
		if oldValue != newValue {
			changes = append(changes, FieldChange{Field: f.name, OldValue: oldValue, NewValue: newValue})
		}
	}
	return &VersionComparison{Version1: v1, Version2: v2, Changes: changes}, nil
}

func versionLookupError(err error, id string) error {
	if errors.Is(err, data.ErrNotFound) {
		return &NotFoundError{Resource: "page version", ID: id}
	}
	return fmt.Errorf("failed to load version: %w", err)
}
