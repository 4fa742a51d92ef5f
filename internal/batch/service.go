package batch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"contentstudio/internal/logging"
	"contentstudio/internal/objectkey"
	"contentstudio/internal/objectstore"
	"contentstudio/internal/services"
	"contentstudio/internal/urls"
)

const component = "batch"

// Options configures a Service.
type Options struct {
	Logger *slog.Logger
	// PublicUploads requests a public ACL on manually uploaded images.
	PublicUploads bool
	Now           func() time.Time
}

// Service resolves and edits batch documents in an object store.
type Service struct {
	store         objectstore.Store
	keys          objectkey.Resolver
	urls          *urls.Materializer
	logger        *slog.Logger
	publicUploads bool
	now           func() time.Time
}

// NewService wires a batch service.
func NewService(store objectstore.Store, keys objectkey.Resolver, materializer *urls.Materializer, opts Options) *Service {
	s := &Service{
		store:         store,
		keys:          keys,
		urls:          materializer,
		logger:        logging.NewComponentLogger(opts.Logger, component),
		publicUploads: opts.PublicUploads,
		now:           opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Keys returns the key resolver used by the service.
func (s *Service) Keys() objectkey.Resolver {
	return s.keys
}

func (s *Service) log(ctx context.Context, batchID string) *slog.Logger {
	return logging.WithContext(services.WithBatchID(ctx, batchID), s.logger)
}

func validateID(batchID string) (string, error) {
	id := strings.TrimSpace(batchID)
	if id == "" {
		return "", services.Wrap(services.ErrValidation, component, "validate", "batchId required", nil)
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return "", services.Wrap(services.ErrValidation, component, "validate", "invalid batchId "+id, nil)
	}
	return id, nil
}

// ResolveKey finds the storage key of a batch document. The canonical
// batch.json is checked directly; otherwise the folder listing is matched
// against the candidate table.
func (s *Service) ResolveKey(ctx context.Context, batchID string) (string, error) {
	id, err := validateID(batchID)
	if err != nil {
		return "", err
	}
	canonical := s.keys.BatchDocument(id)
	exists, err := s.store.Exists(ctx, canonical)
	if err != nil {
		s.log(ctx, id).Debug("canonical document check failed; falling back to listing",
			logging.String(logging.FieldObjectKey, canonical),
			logging.Error(err),
		)
	}
	if exists {
		return canonical, nil
	}

	infos, err := s.store.List(ctx, s.keys.BatchFolder(id))
	if err != nil {
		return "", err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	key, ok := pickDocument(keys)
	if !ok {
		return "", services.Wrap(services.ErrNotFound, component, "resolve", "batch "+id+" not found", nil)
	}
	return key, nil
}

// Resolve loads and normalizes a batch document, hydrating images from the
// manifest when needed and completing image URLs for the access mode.
func (s *Service) Resolve(ctx context.Context, batchID string) (*Document, error) {
	key, err := s.ResolveKey(ctx, batchID)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(batchID)
	data, err := s.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedDocument, component, "resolve", key, err)
	}
	if doc.BatchID == "" {
		doc.BatchID = id
	}
	doc.Key = key

	if len(doc.Images) == 0 {
		s.hydrateFromManifest(ctx, id, doc)
	}
	s.completeImageURLs(ctx, id, doc.Images)
	doc.ViewerURL = s.urls.Public(key)
	return doc, nil
}

// hydrateFromManifest fills doc.Images from _manifest.json. Missing or
// unreadable manifests leave the document untouched.
func (s *Service) hydrateFromManifest(ctx context.Context, batchID string, doc *Document) {
	key := s.keys.Manifest(batchID)
	data, err := s.store.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			s.log(ctx, batchID).Debug("manifest read failed", logging.String(logging.FieldObjectKey, key), logging.Error(err))
		}
		return
	}
	images, err := decodeManifest(data)
	if err != nil {
		s.log(ctx, batchID).Warn("manifest is not valid JSON",
			logging.String(logging.FieldObjectKey, key),
			logging.Error(err),
			logging.String(logging.FieldEventType, "manifest_malformed"),
			logging.String(logging.FieldErrorHint, "regenerate the batch or fix "+key),
		)
		return
	}
	if len(images) > 0 {
		doc.Images = images
	}
}

// completeImageURLs sets heroUrl and consoleUrl on images that lack an
// absolute heroUrl. A failure affects only that image.
func (s *Service) completeImageURLs(ctx context.Context, batchID string, images []ImageAsset) {
	for i := range images {
		img := &images[i]
		img.FileName = strings.TrimLeft(img.FileName, "/")
		if img.FileName == "" || isAbsoluteURL(img.HeroURL) {
			continue
		}
		key := s.keys.BatchObject(batchID, img.FileName)
		img.ConsoleURL = s.urls.ConsoleDetails(key)
		hero, err := s.urls.Hero(ctx, key)
		if err != nil {
			img.HeroURL = ""
			logging.WarnWithContext(s.log(ctx, batchID), "image url unavailable", "image_url_failed",
				logging.String(logging.FieldObjectKey, key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check storage credentials can sign URLs"),
				logging.String(logging.FieldImpact, "image preview missing for this batch"),
			)
			continue
		}
		img.HeroURL = hero
	}
}

func isAbsoluteURL(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ViewerURL returns the public-style link to a batch's resolved document.
func (s *Service) ViewerURL(ctx context.Context, batchID string) (string, error) {
	key, err := s.ResolveKey(ctx, batchID)
	if err != nil {
		return "", err
	}
	return s.urls.Public(key), nil
}

// ObjectURL returns the redirect target for a file inside a batch folder.
func (s *Service) ObjectURL(ctx context.Context, batchID, file string) (string, error) {
	id, err := validateID(batchID)
	if err != nil {
		return "", err
	}
	file = strings.TrimLeft(strings.TrimSpace(file), "/")
	if file == "" {
		return "", services.Wrap(services.ErrValidation, component, "object url", "file required", nil)
	}
	return s.urls.Redirect(ctx, s.keys.BatchObject(id, file))
}

// ListFiles lists a batch folder with per-file read URLs.
func (s *Service) ListFiles(ctx context.Context, batchID string) (*Listing, error) {
	id, err := validateID(batchID)
	if err != nil {
		return nil, err
	}
	prefix := s.keys.BatchFolder(id)
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	listing := &Listing{Prefix: prefix, Files: []FileInfo{}, Images: []FileInfo{}, JSONs: []FileInfo{}}
	for _, info := range infos {
		file := FileInfo{
			Name:        info.Key,
			Size:        info.Size,
			Updated:     info.Updated,
			ContentType: info.ContentType,
			ConsoleURL:  s.urls.ConsoleDetails(info.Key),
		}
		if url, err := s.urls.Read(ctx, info.Key, 0); err == nil {
			file.URL = url
		} else {
			s.log(ctx, id).Debug("file url unavailable", logging.String(logging.FieldObjectKey, info.Key), logging.Error(err))
		}
		listing.Files = append(listing.Files, file)
		switch {
		case objectkey.IsImage(info.Key):
			listing.Images = append(listing.Images, file)
		case objectkey.IsJSON(info.Key):
			listing.JSONs = append(listing.JSONs, file)
		}
	}
	return listing, nil
}
