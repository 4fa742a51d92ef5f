package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"contentstudio/internal/logging"
	"contentstudio/internal/objectkey"
	"contentstudio/internal/objectstore"
	"contentstudio/internal/services"
)

// MaxUploadBytes caps a manually uploaded image.
const MaxUploadBytes = 10 << 20

const manualUploadSource = "manual-upload"

// SaveContentSets replaces the content sets of a batch's canonical document.
// Unknown fields survive the rewrite, the legacy "trios" key is dropped and
// updatedAt is stamped. Concurrent editors overwrite each other; the last
// write wins.
func (s *Service) SaveContentSets(ctx context.Context, batchID string, sets []ContentSet) (time.Time, error) {
	id, err := validateID(batchID)
	if err != nil {
		return time.Time{}, err
	}
	if len(sets) == 0 {
		return time.Time{}, services.Wrap(services.ErrValidation, component, "save sets", "sets must not be empty", nil)
	}
	key := s.keys.BatchDocument(id)
	fields, err := s.readFields(ctx, key)
	if err != nil {
		return time.Time{}, err
	}

	encoded, err := json.Marshal(sets)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode sets: %w", err)
	}
	fields["sets"] = encoded
	delete(fields, "trios")
	now := s.now().UTC()
	if err := s.writeFields(ctx, key, fields, now); err != nil {
		return time.Time{}, err
	}
	s.log(ctx, id).Info("content sets saved", logging.Int("sets", len(sets)))
	return now, nil
}

// AttachImage uploads a manual image into the batch folder and appends it to
// the canonical document when that document carries an images list.
func (s *Service) AttachImage(ctx context.Context, batchID string, upload Upload) (*AttachResult, error) {
	id, err := validateID(batchID)
	if err != nil {
		return nil, err
	}
	if len(upload.Data) == 0 {
		return nil, services.Wrap(services.ErrValidation, component, "attach image", "image file required", nil)
	}
	if len(upload.Data) > MaxUploadBytes {
		return nil, services.Wrap(services.ErrValidation, component, "attach image",
			fmt.Sprintf("image exceeds %d bytes", MaxUploadBytes), nil)
	}

	now := s.now().UTC()
	name := UploadName(upload.Name, now)
	key := s.keys.BatchObject(id, name)
	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" {
		contentType = objectkey.ContentTypeByExt(name)
	}
	if err := s.store.Write(ctx, key, upload.Data, objectstore.WriteOptions{
		ContentType:  contentType,
		CacheControl: objectstore.DefaultCacheControl,
	}); err != nil {
		return nil, err
	}

	result := &AttachResult{BatchID: id}
	if s.publicUploads {
		if err := s.store.MakePublic(ctx, key); err != nil {
			logging.WarnWithContext(s.log(ctx, id), "could not make uploaded image public", "make_public_failed",
				logging.String(logging.FieldObjectKey, key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the bucket allows object ACLs or disable storage.public_read"),
				logging.String(logging.FieldImpact, "image is served through signed URLs"),
			)
		} else {
			result.Public = true
		}
	}

	stored := ImageAsset{
		FileName:   name,
		ConsoleURL: s.urls.ConsoleDetails(key),
		Meta: ImageMeta{
			Source:      manualUploadSource,
			ContentType: contentType,
			SizeBytes:   int64(len(upload.Data)),
			UploadedAt:  now.Format(time.RFC3339Nano),
		},
	}
	image := stored
	if result.Public {
		// Cache-busted stable URL; safe to persist.
		stored.HeroURL = s.urls.Direct(key) + "?v=" + url.QueryEscape(id)
		image.HeroURL = stored.HeroURL
	} else {
		// Signed URLs expire, so the document keeps only the file name and
		// Resolve signs a fresh one on every read.
		hero, err := s.urls.Hero(ctx, key)
		if err != nil {
			logging.WarnWithContext(s.log(ctx, id), "uploaded image url unavailable", "image_url_failed",
				logging.String(logging.FieldObjectKey, key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check storage credentials can sign URLs"),
			)
		}
		image.HeroURL = hero
	}
	result.Image = image

	updated, err := s.appendImage(ctx, id, stored, now)
	if err != nil {
		return nil, err
	}
	result.DocumentUpdated = updated
	s.log(ctx, id).Info("manual image attached",
		logging.String(logging.FieldObjectKey, key),
		logging.Int("size_bytes", len(upload.Data)),
		logging.Bool("document_updated", updated),
	)
	return result, nil
}

func (s *Service) appendImage(ctx context.Context, batchID string, image ImageAsset, now time.Time) (bool, error) {
	key := s.keys.BatchDocument(batchID)
	fields, err := s.readFields(ctx, key)
	if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrMalformedDocument) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	images, ok := rawArray(fields["images"])
	if !ok {
		return false, nil
	}
	encoded, err := json.Marshal(image)
	if err != nil {
		return false, fmt.Errorf("encode image: %w", err)
	}
	images = append(images, encoded)
	list, err := json.Marshal(images)
	if err != nil {
		return false, fmt.Errorf("encode images: %w", err)
	}
	fields["images"] = list
	if err := s.writeFields(ctx, key, fields, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) readFields(ctx context.Context, key string) (map[string]json.RawMessage, error) {
	data, err := s.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, services.Wrap(services.ErrMalformedDocument, component, "read document", key, err)
	}
	return fields, nil
}

func (s *Service) writeFields(ctx context.Context, key string, fields map[string]json.RawMessage, now time.Time) error {
	stamp, err := json.Marshal(now.Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	fields["updatedAt"] = stamp
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return s.store.Write(ctx, key, data, objectstore.WriteOptions{ContentType: "application/json"})
}

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// UploadName builds the stored name of a manual upload:
// manual_<unixMillis>_<base><ext>. Accents are folded, other characters
// outside [a-z0-9_-] collapse to dashes, and missing parts default to
// "manual" and ".jpg".
func UploadName(original string, now time.Time) string {
	original = strings.TrimSpace(path.Base(strings.ReplaceAll(original, "\\", "/")))
	if original == "." || original == "/" {
		original = ""
	}
	ext := strings.ToLower(path.Ext(original))
	if ext == "" || ext == "." {
		ext = ".jpg"
	}
	base := strings.TrimSuffix(original, path.Ext(original))
	base = unsafeNameChars.ReplaceAllString(strings.ToLower(foldAccents(base)), "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "manual"
	}
	return fmt.Sprintf("manual_%d_%s%s", now.UnixMilli(), base, ext)
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
