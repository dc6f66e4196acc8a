// Generated-file HTTP handlers.
//
// Exposes the room's current generated file set as JSON and as a zip
// archive download. The listing carries a weak ETag derived from the
// file count and newest update timestamp so polling clients can cheaply
// detect "nothing changed".
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibedeux/go-room-backend/internal/archive"
	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/repo"
	"github.com/vibedeux/go-room-backend/internal/services"
)

// ListFilesResponse is the JSON envelope for the generated file set.
type ListFilesResponse struct {
	Files []domain.RoomFile `json:"files"`
}

// ListFiles godoc
// @ID          listFiles
// @Summary     List generated files
// @Description Returns the room's current generated file set. Supports
// @Description conditional requests via a weak ETag over (count, max updated_at).
// @Tags        Files
// @Produce     json
//
// @Param       id  path  string  true  "Room ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.ListFilesResponse
// @Success     304  "Not modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Room not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/files [get]
func (h *Handlers) ListFiles(c *gin.Context) {
	id, valid := roomID(c)
	if !valid {
		return
	}

	if db := promptDB(h.promptSvc); db != nil {
		if count, maxUpd, err := repo.FilesStats(c.Request.Context(), db, id); err == nil {
			var ts int64
			if maxUpd != nil {
				ts = maxUpd.UnixNano()
			}
			etag := fmt.Sprintf(`W/"files:%s:%d:%d"`, id, count, ts)
			c.Header("ETag", etag)
			if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	files, err := h.roomSvc.Files(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if files == nil {
		files = []domain.RoomFile{}
	}
	ok(c, http.StatusOK, ListFilesResponse{Files: files})
}

// DownloadFiles godoc
// @ID          downloadFiles
// @Summary     Download generated files as a zip archive
// @Description Packages the room's generated file set into a zip archive and
// @Description returns it as an attachment.
// @Tags        Files
// @Produce     application/zip
//
// @Param       id  path  string  true  "Room ID (UUID)"  format(uuid)
//
// @Success     200  {file}  file  "Zip archive"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Room not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/download [get]
func (h *Handlers) DownloadFiles(c *gin.Context) {
	id, valid := roomID(c)
	if !valid {
		return
	}

	files, err := h.roomSvc.Files(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDownloadFailed, err.Error())
		return
	}

	blob, err := archive.ZipFiles(files)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDownloadFailed, err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Filename(id)))
	c.Data(http.StatusOK, "application/zip", blob)
}
