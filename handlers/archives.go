package handlers

import (
	"fmt"
	"net/http"
	"time"

	"timesheet_app_go/db"
	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
)

// archiveLinkTTL bounds presigned archive links
const archiveLinkTTL = 15 * time.Minute

// ListArchivesHandler lists archived imports and reports, optionally below ?prefix=
func ListArchivesHandler(c echo.Context) error {
	if services.Archives == nil {
		return handleServiceError(c, services.ErrArchiveDisabled, "list archives")
	}
	ctx := c.Request().Context()

	prefixes := []string{services.ArchiveImports, services.ArchiveReports}
	if p := c.QueryParam("prefix"); p != "" {
		prefix, err := services.CleanArchiveKey(p)
		if err != nil {
			return handleServiceError(c, err, "list archives")
		}
		prefixes = []string{prefix}
	}

	files := []services.ArchivedFile{}
	for _, prefix := range prefixes {
		found, err := services.Archives.List(ctx, prefix)
		if err != nil {
			return handleServiceError(c, err, "list archives")
		}
		files = append(files, found...)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": files})
}

// DownloadArchiveHandler serves ?key=. Stores with direct links answer with a
// redirect, the rest are streamed.
func DownloadArchiveHandler(c echo.Context) error {
	if services.Archives == nil {
		return handleServiceError(c, services.ErrArchiveDisabled, "download archive")
	}
	key, err := services.CleanArchiveKey(c.QueryParam("key"))
	if err != nil {
		return handleServiceError(c, err, "download archive")
	}
	ctx := c.Request().Context()

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionExport,
		ResourceType: "Archive",
		ResourceID:   key,
		Description:  "Archived file downloaded",
	})

	link, err := services.Archives.DownloadURL(ctx, key, archiveLinkTTL)
	if err != nil {
		return handleServiceError(c, err, "download archive")
	}
	if link != "" {
		return c.Redirect(http.StatusFound, link)
	}

	body, info, err := services.Archives.Open(ctx, key)
	if err != nil {
		return handleServiceError(c, err, "download archive")
	}
	defer body.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", info.Name))
	return c.Stream(http.StatusOK, info.ContentType, body)
}

// DeleteArchiveHandler removes ?key= from the archive
func DeleteArchiveHandler(c echo.Context) error {
	if services.Archives == nil {
		return handleServiceError(c, services.ErrArchiveDisabled, "delete archive")
	}
	key, err := services.CleanArchiveKey(c.QueryParam("key"))
	if err != nil {
		return handleServiceError(c, err, "delete archive")
	}

	if err := services.Archives.Remove(c.Request().Context(), key); err != nil {
		return handleServiceError(c, err, "delete archive")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionDelete,
		ResourceType: "Archive",
		ResourceID:   key,
		Description:  "Archived file deleted",
	})
	return c.NoContent(http.StatusNoContent)
}
