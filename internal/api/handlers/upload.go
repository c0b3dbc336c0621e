package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coffeechain/coffeechain-backend/internal/services"
	"github.com/coffeechain/coffeechain-backend/internal/utils"
)

// Uploader is what the handler needs from the upload service.
type Uploader interface {
	Upload(ctx context.Context, uploader, fileName, contentType string, data []byte) (*services.UploadResult, error)
	Remove(ctx context.Context, cid string) error
}

type UploadHandler struct {
	uploads     Uploader
	ownerWallet string
}

func NewUploadHandler(uploads Uploader, ownerWallet string) *UploadHandler {
	return &UploadHandler{uploads: uploads, ownerWallet: ownerWallet}
}

// Upload accepts a multipart file from the catalog owner. The wallet check
// happens before the file is touched: an unauthorized caller never triggers
// an upload attempt.
func (h *UploadHandler) Upload(c *gin.Context) {
	wallet := c.GetHeader("X-Wallet")
	if !utils.SameWallet(wallet, h.ownerWallet) {
		utils.SendForbidden(c, "Not allowed")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.SendValidationError(c, "Missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.SendInternalError(c, "Failed to read file", err)
		return
	}

	result, err := h.uploads.Upload(
		c.Request.Context(),
		wallet,
		header.Filename,
		header.Header.Get("Content-Type"),
		data,
	)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Failed upload", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cid":        result.CID,
		"gatewayUrl": result.GatewayURL,
	})
}

// Remove deletes an orphaned blob. Same owner gate as Upload.
func (h *UploadHandler) Remove(c *gin.Context) {
	wallet := c.GetHeader("X-Wallet")
	if !utils.SameWallet(wallet, h.ownerWallet) {
		utils.SendForbidden(c, "Not allowed")
		return
	}

	cid := c.Param("cid")
	if cid == "" {
		utils.SendValidationError(c, "Missing content identifier")
		return
	}

	if err := h.uploads.Remove(c.Request.Context(), cid); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Failed removal", err)
		return
	}

	utils.SendSuccess(c, "Blob removed", gin.H{"cid": cid})
}
