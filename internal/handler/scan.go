package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tripdesk/booking/internal/scan"
	"github.com/tripdesk/booking/internal/session"
)

// maxScanImageBytes caps uploaded document photos.  Phone camera JPEGs
// of a data page comfortably fit in 10 MiB.
const maxScanImageBytes = 10 << 20

// ScanDocument handles POST /v1/wizards/:id/travelers/:index/scan with
// a multipart "image" part.  It runs the MRZ extraction pipeline and
// merges the result into the addressed traveler, preserving contact
// fields.  The scan target is ticketed before OCR starts, so a result
// arriving after the traveler set changed is rejected as stale rather
// than merged into the wrong person.
func (h *WizardHandler) ScanDocument(c echo.Context) error {
	if h.Extractor == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error": "document scanning is not available; please enter the details manually",
		})
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid traveler index"})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "multipart field 'image' is required"})
	}
	if file.Size > maxScanImageBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "image too large"})
	}
	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not read image"})
	}
	defer func() { _ = src.Close() }()
	image, err := io.ReadAll(io.LimitReader(src, maxScanImageBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not read image"})
	}

	ctx := c.Request().Context()
	w, err := h.Sessions.Load(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "wizard not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}

	// Ticket the target before the (slow) OCR call.
	ticket, err := w.ScanTicket(index)
	if err != nil {
		return h.mapWizardError(c, err)
	}

	data, err := h.Extractor.Extract(ctx, image)
	if err != nil {
		var f *scan.Failure
		if errors.As(err, &f) {
			// Scan failures are local and recoverable; they never
			// escalate past the travelers step.
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"error": string(f.Kind),
				"hint":  f.Hint,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan failed"})
	}

	// Reload the session: the user may have edited while OCR ran.  The
	// ticket decides whether the merge is still valid.
	w, err = h.Sessions.Load(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	next, err := w.ApplyScan(index, ticket, data)
	if err != nil {
		return h.mapWizardError(c, err)
	}
	if err := h.Sessions.Save(ctx, next); err != nil {
		if errors.Is(err, session.ErrStaleSession) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "the wizard changed while the scan was running; please scan again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to persist session"})
	}
	return c.JSON(http.StatusOK, viewOf(next))
}
