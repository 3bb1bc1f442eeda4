package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/services"
	"github.com/gin-gonic/gin"
)

type registerInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type resetRequestInput struct {
	Email string `json:"email" binding:"required"`
}

type resetConfirmInput struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type profileInput struct {
	Name     *string          `json:"name"`
	Email    *string          `json:"email"`
	Password *string          `json:"password"`
	Settings *models.Settings `json:"settings"`
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) register(c *gin.Context) {
	var in registerInput
	if !bindJSON(c, &in) {
		return
	}

	sess, err := h.users.Register(c.Request.Context(), in.Email, in.Password, in.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) login(c *gin.Context) {
	var in loginInput
	if !bindJSON(c, &in) {
		return
	}

	sess, err := h.users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		// unknown email and wrong password look the same to the caller
		if errors.Is(err, common.ErrNotFound) {
			err = common.ErrInvalidCredentials
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// logout has nothing to revoke: tokens are stateless and the client drops
// its copy.
func (h *Handler) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) requestPasswordReset(c *gin.Context) {
	var in resetRequestInput
	if !bindJSON(c, &in) {
		return
	}

	if err := h.users.RequestPasswordReset(c.Request.Context(), in.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func (h *Handler) confirmPasswordReset(c *gin.Context) {
	var in resetConfirmInput
	if !bindJSON(c, &in) {
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), in.Token, in.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.users.GetUser(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) updateMe(c *gin.Context) {
	var in profileInput
	if !bindJSON(c, &in) {
		return
	}

	u, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c), services.ProfileUpdate{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Settings: in.Settings,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// deleteMe drops the stored audio before the rows cascade away with the
// account.
func (h *Handler) deleteMe(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	if err := h.recordings.PurgeUser(ctx, userID); err != nil {
		h.log.Warn(ctx, "failed to purge user audio", "user_id", userID, "error", err)
	}
	if err := h.users.DeleteUser(ctx, userID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
