package center

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/e-center-api/services/media"
	"github.com/sahilchouksey/e-center-api/utils/response"
)

// UploadMedia handles POST /api/v1/center/media. The multipart form carries
// the file under "file" and its role (video, thumbnail, cover, audio) under
// "kind". The returned URL is what lessons and words store.
func (h *CenterHandler) UploadMedia(c *fiber.Ctx) error {
	if h.uploader == nil {
		return response.ServiceUnavailable(c, "Media storage is not configured")
	}

	kind := media.Kind(c.FormValue("kind"))
	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required")
	}

	// Reject before reading the body into memory
	if _, err := media.Validate(kind, file.Filename, file.Size); err != nil {
		return response.BadRequest(c, err.Error())
	}

	fileContent, err := file.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to open file")
	}
	defer fileContent.Close()

	data, err := io.ReadAll(fileContent)
	if err != nil {
		return response.InternalServerError(c, "Failed to read file")
	}

	object, err := h.uploader.Upload(c.UserContext(), kind, file.Filename, data)
	if err != nil {
		if isMediaRejection(err) {
			return response.BadRequest(c, err.Error())
		}
		log.Errorf("center: media upload failed: %v", err)
		return response.InternalServerError(c, "Failed to upload file")
	}
	return response.Created(c, object)
}

func isMediaRejection(err error) bool {
	return errors.Is(err, media.ErrUnknownKind) ||
		errors.Is(err, media.ErrUnsupportedFormat) ||
		errors.Is(err, media.ErrFileTooLarge) ||
		errors.Is(err, media.ErrEmptyFile)
}
