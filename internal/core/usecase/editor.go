package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

const defaultMaxUploadBytes int64 = 10 << 20

var allowedPhotoTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

type EditorOptions struct {
	MaxUploadBytes int64
	Recorder       ports.EditRecorder
}

type EditorUseCase struct {
	repo      ports.AuditRepository
	catalog   *catalog.Catalog
	comments  *CommentBuffer
	uploader  ports.Uploader
	maxUpload int64
	recorder  ports.EditRecorder
}

func NewEditorUseCase(
	repo ports.AuditRepository,
	c *catalog.Catalog,
	comments *CommentBuffer,
	uploader ports.Uploader,
	options EditorOptions,
) *EditorUseCase {
	maxUpload := options.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	recorder := options.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &EditorUseCase{
		repo:      repo,
		catalog:   c,
		comments:  comments,
		uploader:  uploader,
		maxUpload: maxUpload,
		recorder:  recorder,
	}
}

// ToggleEvaluation resolves the selection against the stored answer and
// writes the result: picking the active value clears it.
func (uc *EditorUseCase) ToggleEvaluation(
	ctx context.Context,
	id string,
	category domain.CategoryKey,
	key string,
	selected domain.Evaluation,
) (domain.Evaluation, error) {
	if selected == domain.EvalUnset || !selected.Valid() {
		return domain.EvalUnset, domain.Invalid("toggle evaluation", "unknown evaluation %q", selected)
	}
	if err := uc.checkTarget("toggle evaluation", category, key); err != nil {
		return domain.EvalUnset, err
	}

	audit, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return domain.EvalUnset, err
	}
	resolved := audit.Section(category).Get(key).Eval.Toggle(selected)

	if err := uc.writeField(ctx, id, category, key, domain.FieldEval, string(resolved)); err != nil {
		return domain.EvalUnset, err
	}
	return resolved, nil
}

// SetComment buffers the text; it reaches the store once typing pauses or
// the audit is flushed.
func (uc *EditorUseCase) SetComment(ctx context.Context, id string, category domain.CategoryKey, key, text string) error {
	if err := uc.checkTarget("set comment", category, key); err != nil {
		return err
	}
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if uc.comments == nil {
		return uc.writeField(ctx, id, category, key, domain.FieldComment, text)
	}
	uc.recorder.RecordFieldWrite(string(domain.FieldComment))
	return uc.comments.Set(ctx, id, category, key, text)
}

func (uc *EditorUseCase) SetPhoto(ctx context.Context, id string, category domain.CategoryKey, key, url string) error {
	if err := uc.checkTarget("set photo", category, key); err != nil {
		return err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return domain.Invalid("set photo", "photo url is required")
	}
	return uc.writeField(ctx, id, category, key, domain.FieldPhoto, url)
}

func (uc *EditorUseCase) ClearPhoto(ctx context.Context, id string, category domain.CategoryKey, key string) error {
	if err := uc.checkTarget("clear photo", category, key); err != nil {
		return err
	}
	return uc.writeField(ctx, id, category, key, domain.FieldPhoto, "")
}

// UploadPhoto stores the image and records its URL on the criterion. The
// target is checked before any byte is sent; a failed upload leaves the
// stored photo untouched.
func (uc *EditorUseCase) UploadPhoto(
	ctx context.Context,
	id string,
	category domain.CategoryKey,
	key string,
	photo ports.PhotoUpload,
) (string, error) {
	if err := uc.checkTarget("upload photo", category, key); err != nil {
		return "", err
	}
	if photo.Body == nil {
		return "", domain.Invalid("upload photo", "empty body")
	}
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return "", err
	}
	if uc.uploader == nil {
		return "", domain.WrapError(domain.ErrUpload, "upload photo", fmt.Errorf("no uploader configured"))
	}

	data, err := io.ReadAll(io.LimitReader(photo.Body, uc.maxUpload+1))
	if err != nil {
		return "", domain.WrapError(domain.ErrUpload, "read photo", err)
	}
	if len(data) == 0 {
		return "", domain.Invalid("upload photo", "empty body")
	}
	if int64(len(data)) > uc.maxUpload {
		return "", domain.Invalid("upload photo", "photo exceeds %d bytes", uc.maxUpload)
	}

	contentType := photoContentType(photo.ContentType, data)
	if _, ok := allowedPhotoTypes[contentType]; !ok {
		return "", domain.Invalid("upload photo", "unsupported content type %q", contentType)
	}

	url, err := uc.uploader.Upload(ctx, ports.PhotoUpload{
		Filename:    photo.Filename,
		ContentType: contentType,
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrUpload) {
			return "", err
		}
		return "", domain.WrapError(domain.ErrUpload, "upload photo", err)
	}

	if err := uc.writeField(ctx, id, category, key, domain.FieldPhoto, url); err != nil {
		return "", err
	}
	return url, nil
}

// SetGoldenRule stores a checklist value as is.
func (uc *EditorUseCase) SetGoldenRule(ctx context.Context, id, key string, value bool) error {
	if !uc.catalog.HasGoldenRule(key) {
		return domain.Invalid("set golden rule", "unknown golden rule %q", key)
	}
	if err := uc.repo.SetGoldenRule(ctx, id, key, value); err != nil {
		return err
	}
	uc.recorder.RecordFieldWrite("golden_rule")
	return nil
}

func (uc *EditorUseCase) FlushComments(ctx context.Context, id string) error {
	if uc.comments == nil {
		return nil
	}
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return uc.comments.Flush(ctx, id)
}

func (uc *EditorUseCase) checkTarget(operation string, category domain.CategoryKey, key string) error {
	if _, ok := uc.catalog.Category(category); !ok {
		return domain.Invalid(operation, "unknown category %q", category)
	}
	if !uc.catalog.HasCriterion(category, key) {
		return domain.Invalid(operation, "unknown criterion %q in %s", key, category)
	}
	return nil
}

func (uc *EditorUseCase) writeField(
	ctx context.Context,
	id string,
	category domain.CategoryKey,
	key string,
	field domain.CriterionField,
	value string,
) error {
	if err := uc.repo.UpdateCriterionField(ctx, id, category, key, field, value); err != nil {
		return err
	}
	uc.recorder.RecordFieldWrite(string(field))
	return nil
}

func photoContentType(declared string, data []byte) string {
	if declared != "" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil && parsed != "application/octet-stream" {
			return strings.ToLower(parsed)
		}
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return sniffed
}
