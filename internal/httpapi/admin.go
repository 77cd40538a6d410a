package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"henna-rsvp/internal/invite"
	"henna-rsvp/internal/models"
	"henna-rsvp/internal/spreadsheet"
	"henna-rsvp/internal/storage"

	"github.com/gin-gonic/gin"
)

type guestRequest struct {
	Name           string            `json:"name"`
	Phone          string            `json:"phone"`
	Group          string            `json:"group"`
	Attending      models.Attendance `json:"attending"`
	NumberOfGuests int               `json:"numberOfGuests"`
}

func (r guestRequest) guest(id string) models.Guest {
	return models.Guest{
		ID:             id,
		Name:           r.Name,
		Phone:          r.Phone,
		Group:          r.Group,
		Attending:      r.Attending,
		NumberOfGuests: r.NumberOfGuests,
	}
}

type deleteGuestsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type shareLinkResponse struct {
	Message     string `json:"message"`
	PersonalURL string `json:"personalUrl"`
	ContactURL  string `json:"contactUrl"`
}

type settingsPayload struct {
	WhatsAppTemplate  *string  `json:"whatsappTemplate"`
	ConfirmationImage *string  `json:"confirmationImage"`
	Groups            []string `json:"groups"`
}

type groupRequest struct {
	Group string `json:"group" binding:"required"`
}

// ListGuests supports ?q= search and ?status=attending|notAttending|notAnswered
func (h *Handlers) ListGuests(c *gin.Context) {
	filter := models.Filter{Search: c.Query("q")}
	if status := c.Query("status"); status != "" && status != "all" {
		a, err := models.ParseAttendance(status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = &a
	}

	guests, err := h.store.FilterGuests(filter)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, guests)
}

func (h *Handlers) GetGuest(c *gin.Context) {
	g, err := h.store.GetGuest(c.Param("guest_id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handlers) CreateGuest(c *gin.Context) {
	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := h.store.AddGuest(req.guest(""))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handlers) UpdateGuest(c *gin.Context) {
	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g := req.guest(c.Param("guest_id"))
	applied, err := h.store.UpdateGuest(g)
	if err != nil {
		h.storeError(c, err)
		return
	}
	if !applied {
		c.JSON(http.StatusNotFound, gin.H{"error": "guest not found"})
		return
	}
	g.Normalize()
	c.JSON(http.StatusOK, g)
}

func (h *Handlers) DeleteGuest(c *gin.Context) {
	if _, err := h.store.DeleteGuest(c.Param("guest_id")); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) DeleteGuests(c *gin.Context) {
	var req deleteGuestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.store.DeleteGuests(req.IDs)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handlers) GetShareLink(c *gin.Context) {
	g, err := h.store.GetGuest(c.Param("guest_id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	tmpl, err := h.store.Template()
	if err != nil {
		h.storeError(c, err)
		return
	}
	msg := invite.RenderMessage(tmpl, g, h.config.BaseURL)
	c.JSON(http.StatusOK, shareLinkResponse{
		Message:     msg,
		PersonalURL: invite.PersonalLink(h.config.BaseURL, g.ID),
		ContactURL:  invite.BuildContactLink(g, msg),
	})
}

// ImportGuests merges an uploaded workbook (form field "file") into the
// guest list. A file that cannot be parsed leaves the list untouched.
func (h *Handlers) ImportGuests(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	file, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	imported, err := spreadsheet.Import(c.Request.Context(), file)
	if err != nil {
		var perr *spreadsheet.ParseError
		if errors.As(err, &perr) {
			h.log.Warn().Err(err).Str("file", fh.Filename).Msg("Rejected import")
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read spreadsheet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	merged, err := h.store.MergeImportedGuests(imported)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": len(imported), "guests": merged})
}

// ExportGuests downloads the guest list as xlsx
func (h *Handlers) ExportGuests(c *gin.Context) {
	guests, err := h.store.ListGuests()
	if err != nil {
		h.storeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(spreadsheet.ExportFileName)))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := spreadsheet.Export(c.Writer, guests); err != nil {
		h.log.Error().Err(err).Msg("Export failed")
	}
}

func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) GetSettings(c *gin.Context) {
	tmpl, err := h.store.Template()
	if err != nil {
		h.storeError(c, err)
		return
	}
	img, err := h.store.ConfirmationImage()
	if err != nil {
		h.storeError(c, err)
		return
	}
	groups, err := h.store.Groups()
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsPayload{
		WhatsAppTemplate:  &tmpl,
		ConfirmationImage: &img,
		Groups:            groups,
	})
}

// UpdateSettings applies the fields present in the body
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req settingsPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.WhatsAppTemplate != nil {
		if err := h.store.SetTemplate(*req.WhatsAppTemplate); err != nil {
			h.storeError(c, err)
			return
		}
	}
	if req.ConfirmationImage != nil {
		if err := h.store.SetConfirmationImage(*req.ConfirmationImage); err != nil {
			if errors.Is(err, storage.ErrInvalidImage) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			h.storeError(c, err)
			return
		}
	}
	if req.Groups != nil {
		if err := h.store.SetGroups(req.Groups); err != nil {
			h.storeError(c, err)
			return
		}
	}

	h.GetSettings(c)
}

func (h *Handlers) AddGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := h.store.AddGroup(req.Group)
	if err != nil {
		h.storeError(c, err)
		return
	}
	if !added {
		c.JSON(http.StatusConflict, gin.H{"error": "group already exists"})
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handlers) RemoveGroup(c *gin.Context) {
	if _, err := h.store.RemoveGroup(c.Param("group")); err != nil {
		h.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
