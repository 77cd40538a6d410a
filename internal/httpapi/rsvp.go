package httpapi

import (
	"fmt"
	"net/http"

	"henna-rsvp/internal/models"

	"github.com/gin-gonic/gin"
)

type invitationResponse struct {
	GuestID        string            `json:"guestId"`
	Name           string            `json:"name"`
	Attending      models.Attendance `json:"attending"`
	NumberOfGuests int               `json:"numberOfGuests"`
	// ConfirmationImage is only sent once the guest confirmed attendance.
	ConfirmationImage string `json:"confirmationImage,omitempty"`
}

type rsvpRequest struct {
	Attending      *bool `json:"attending" binding:"required"`
	NumberOfGuests int   `json:"numberOfGuests"`
}

func (h *Handlers) invitation(c *gin.Context, g models.Guest) {
	resp := invitationResponse{
		GuestID:        g.ID,
		Name:           g.Name,
		Attending:      g.Attending,
		NumberOfGuests: g.NumberOfGuests,
	}
	if g.Attending == models.Attending {
		img, err := h.store.ConfirmationImage()
		if err != nil {
			h.storeError(c, err)
			return
		}
		resp.ConfirmationImage = img
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) GetInvitation(c *gin.Context) {
	g, err := h.store.GetGuest(c.Param("guest_id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	h.invitation(c, g)
}

func (h *Handlers) SubmitRSVP(c *gin.Context) {
	var req rsvpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attending is required"})
		return
	}

	attending := models.NotAttending
	if *req.Attending {
		attending = models.Attending
		if req.NumberOfGuests < 0 || req.NumberOfGuests > MaxPartySize {
			// 0 leaves the party size to the store, which records 1
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("numberOfGuests must be between 0 and %d", MaxPartySize)})
			return
		}
	}

	guestID := c.Param("guest_id")
	applied, err := h.store.SetAttendance(guestID, attending, req.NumberOfGuests)
	if err != nil {
		h.storeError(c, err)
		return
	}
	if !applied {
		c.JSON(http.StatusNotFound, gin.H{"error": "guest not found"})
		return
	}

	g, err := h.store.GetGuest(guestID)
	if err != nil {
		h.storeError(c, err)
		return
	}
	h.invitation(c, g)
}
