package board

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/shared/storage/object"
	"applicant-tracker/internal/shared/telemetry"
	"applicant-tracker/internal/shared/util"
)

// Upload is a file handed in by a caller.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// StoredFile is the result of an attachment upload.
type StoredFile struct {
	Bucket     string `json:"bucket"`
	ObjectPath string `json:"object_path"`
	URL        string `json:"url"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
}

// UploadFile stores a file under <owner prefix>/<applicantId>/<millis>-<name> in the private
// attachments bucket and returns a signed link.
func (b *Board) UploadFile(ctx context.Context, applicantID string, file Upload) (StoredFile, error) {
	if b.ownerID == "" {
		return StoredFile{}, ErrNoOwner
	}
	if b.objects == nil {
		return StoredFile{}, fmt.Errorf("upload file: object store not configured")
	}
	name, err := util.SanitizeFileName(file.FileName)
	if err != nil {
		return StoredFile{}, fmt.Errorf("%w: %v", applicants.ErrInvalidInput, err)
	}
	key := util.OwnerPrefix(b.ownerID) + "/" + applicantID + "/" + b.stamp() + "-" + name
	obj, err := b.objects.Put(ctx, object.BucketAttachments, key, file.Body, file.ContentType)
	if err != nil {
		return StoredFile{}, fmt.Errorf("upload file: %w", err)
	}
	url, err := b.objects.SignedURL(ctx, object.BucketAttachments, obj.Key, b.signedURLTTL)
	if err != nil {
		return StoredFile{}, fmt.Errorf("sign file url: %w", err)
	}
	return StoredFile{
		Bucket:     object.BucketAttachments,
		ObjectPath: obj.Key,
		URL:        url,
		FileName:   name,
		MimeType:   obj.ContentType,
	}, nil
}

// UploadAvatar stores an image under <owner prefix>/avatars/<millis>-<name> in the public avatars
// bucket and returns its permanent URL.
func (b *Board) UploadAvatar(ctx context.Context, file Upload) (string, error) {
	if b.ownerID == "" {
		return "", ErrNoOwner
	}
	if b.objects == nil {
		return "", fmt.Errorf("upload avatar: object store not configured")
	}
	name, err := util.SanitizeFileName(file.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", applicants.ErrInvalidInput, err)
	}
	key := util.OwnerPrefix(b.ownerID) + "/avatars/" + b.stamp() + "-" + name
	obj, err := b.objects.Put(ctx, object.BucketAvatars, key, file.Body, file.ContentType)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	return b.objects.PublicURL(object.BucketAvatars, obj.Key), nil
}

// AttachFile uploads a file for an existing applicant and returns an unsaved attachment
// for the caller to add to the record before Update.
func (b *Board) AttachFile(ctx context.Context, applicantID string, file Upload) (applicants.Attachment, error) {
	if _, ok := b.snapshot(applicantID); !ok {
		return applicants.Attachment{}, fmt.Errorf("attach file to %s: %w", applicantID, ErrNotFound)
	}
	stored, err := b.UploadFile(ctx, applicantID, file)
	if err != nil {
		return applicants.Attachment{}, err
	}
	now := b.now()
	return applicants.Attachment{
		ID:          applicants.NewUnsaved(applicants.KindAttachment, now),
		ApplicantID: applicantID,
		FileName:    stored.FileName,
		URL:         stored.URL,
		MimeType:    stored.MimeType,
		Bucket:      stored.Bucket,
		ObjectPath:  stored.ObjectPath,
		CreatedBy:   b.ownerID,
		CreatedAt:   now,
	}, nil
}

// pinStorage fixes the bucket and object path of each attachment in an edited record.
// Rows the server already holds keep the server's values; new rows must point into this
// owner's area of the attachments bucket. Attachments without a stored object are links only.
func (b *Board) pinStorage(prior, current []applicants.Attachment) ([]applicants.Attachment, error) {
	known := make(map[applicants.ChildID]applicants.Attachment, len(prior))
	for _, att := range prior {
		if att.ID.IsPersisted() {
			known[att.ID] = att
		}
	}
	out := make([]applicants.Attachment, len(current))
	for i, att := range current {
		if was, ok := known[att.ID]; ok {
			att.Bucket, att.ObjectPath = was.Bucket, was.ObjectPath
			out[i] = att
			continue
		}
		if att.ObjectPath == "" && att.Bucket != "" {
			att.ObjectPath = object.ObjectPathFromURL(att.URL, att.Bucket)
		}
		switch {
		case att.ObjectPath == "":
			att.Bucket = ""
		case att.Bucket == "":
			att.Bucket = object.BucketAttachments
		}
		if att.ObjectPath != "" && !b.ownsObject(att.Bucket, att.ObjectPath) {
			return nil, fmt.Errorf("%w: attachment %q is not stored for this owner", applicants.ErrInvalidInput, att.FileName)
		}
		out[i] = att
	}
	return out, nil
}

// ownsObject reports whether key is an attachment object uploaded by this board's owner.
func (b *Board) ownsObject(bucket, key string) bool {
	if bucket != object.BucketAttachments {
		return false
	}
	clean, err := object.CleanKey(key)
	return err == nil && clean == key && strings.HasPrefix(key, util.OwnerPrefix(b.ownerID)+"/")
}

// deleteObjects removes the stored files of atts. Objects outside the owner's attachment area
// are skipped. Failures are logged only.
func (b *Board) deleteObjects(ctx context.Context, op, applicantID string, atts []applicants.Attachment) {
	if b.objects == nil {
		return
	}
	var keys, skipped []string
	for _, att := range atts {
		if att.ObjectPath == "" {
			continue
		}
		bucket := att.Bucket
		if bucket == "" {
			bucket = object.BucketAttachments
		}
		if !b.ownsObject(bucket, att.ObjectPath) {
			skipped = append(skipped, bucket+"/"+att.ObjectPath)
			continue
		}
		keys = append(keys, att.ObjectPath)
	}
	if len(skipped) > 0 {
		telemetry.Warn("board."+op+".objects_skipped", map[string]any{
			"owner_id":     b.ownerID,
			"applicant_id": applicantID,
			"paths":        skipped,
		})
	}
	if len(keys) == 0 {
		return
	}
	if err := b.objects.Delete(ctx, object.BucketAttachments, keys); err != nil {
		telemetry.Warn("board."+op+".objects_delete_failed", map[string]any{
			"owner_id":     b.ownerID,
			"applicant_id": applicantID,
			"paths":        keys,
			"error":        err.Error(),
		})
	}
}

func (b *Board) stamp() string {
	return strconv.FormatInt(b.now().UnixMilli(), 10)
}

// SignedURLTTL is the lifetime of attachment links issued by the board.
func (b *Board) SignedURLTTL() time.Duration {
	return b.signedURLTTL
}
