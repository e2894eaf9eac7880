package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/findash/bank-import-service/internal/domain"
	"github.com/findash/bank-import-service/internal/service"
	"github.com/findash/bank-import-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// maxUploadBytes bounds statement uploads; PDF extraction cost grows with
// file size and the request deadline is the only other limit.
const maxUploadBytes = 10 << 20

type ImportHandler struct {
	service service.ImportService
	logger  *logger.Logger
}

func NewImportHandler(service service.ImportService, log *logger.Logger) *ImportHandler {
	return &ImportHandler{
		service: service,
		logger:  log,
	}
}

func (h *ImportHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := companyIDFrom(c)
	if err != nil {
		return err
	}
	userID := optionalUserIDFrom(c)

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "file is required",
		})
	}
	if file.Size > maxUploadBytes {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "file is too large",
		})
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error(ctx, "Failed to open uploaded file",
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to read file",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		h.logger.Error(ctx, "Failed to read uploaded file",
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to read file",
		})
	}

	result, err := h.service.Upload(ctx, companyID, userID, data, file.Filename)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *ImportHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := companyIDFrom(c)
	if err != nil {
		return err
	}

	sessions, err := h.service.List(ctx, companyID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"imports": sessions,
	})
}

func (h *ImportHandler) GetByID(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := companyIDFrom(c)
	if err != nil {
		return err
	}
	importID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.service.Get(ctx, companyID, importID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := companyIDFrom(c)
	if err != nil {
		return err
	}
	importID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := pathUUID(c, "itemId")
	if err != nil {
		return err
	}

	var update service.ItemUpdate
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	item, err := h.service.UpdateItem(ctx, companyID, importID, itemID, update)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, item)
}

func (h *ImportHandler) UpdateItemsBatch(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := companyIDFrom(c)
	if err != nil {
		return err
	}
	importID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var update service.BatchItemUpdate
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	items, err := h.service.UpdateItemsBatch(ctx, companyID, importID, update)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": items,
	})
}

func (h *ImportHandler) Confirm(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := companyIDFrom(c)
	if err != nil {
		return err
	}
	importID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Confirm(ctx, companyID, importID); err != nil {
		return h.writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ImportHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	companyID, err := companyIDFrom(c)
	if err != nil {
		return err
	}
	importID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Cancel(ctx, companyID, importID); err != nil {
		return h.writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// writeError maps domain errors onto HTTP statuses. Cross-tenant access
// surfaces as 404, never 403, so existence is not leaked.
func (h *ImportHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrImportNotFound),
		errors.Is(err, domain.ErrImportItemNotFound),
		errors.Is(err, domain.ErrCategoryNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
	case domain.IsBusinessRule(err):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
		})
	default:
		h.logger.Error(c.Request().Context(), "Unhandled error",
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

// companyIDFrom reads the tenant id every operation is scoped by. Explicit
// header, explicit parameter; no ambient tenant state anywhere downstream.
func companyIDFrom(c echo.Context) (uuid.UUID, error) {
	raw := c.Request().Header.Get("X-Company-ID")
	if raw == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "X-Company-ID header is required")
	}

	companyID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "X-Company-ID header must be a valid UUID")
	}

	return companyID, nil
}

func optionalUserIDFrom(c echo.Context) uuid.UUID {
	userID, err := uuid.Parse(c.Request().Header.Get("X-User-ID"))
	if err != nil {
		return uuid.Nil
	}
	return userID
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be a valid UUID")
	}
	return id, nil
}
