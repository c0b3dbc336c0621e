package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/coffeechain/coffeechain-backend/internal/models"
	"github.com/coffeechain/coffeechain-backend/pkg/logger"
)

// BlobStore is what the upload path needs from the content store.
type BlobStore interface {
	Put(data []byte, contentType string) (string, error)
	Delete(cid string) error
}

type UploadResult struct {
	CID        string `json:"cid"`
	GatewayURL string `json:"gatewayUrl"`
	Size       int64  `json:"size"`
}

// UploadService relays accepted blobs into the content store and keeps an
// audit row per upload. Authorization happens in the handler, before the
// payload is read.
type UploadService struct {
	store BlobStore
	db    *gorm.DB
	ipfs  *IPFSService
}

func NewUploadService(store BlobStore, db *gorm.DB, ipfs *IPFSService) *UploadService {
	return &UploadService{store: store, db: db, ipfs: ipfs}
}

func (s *UploadService) Upload(ctx context.Context, uploader, fileName, contentType string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}

	cid, err := s.store.Put(data, contentType)
	if err != nil {
		return nil, err
	}

	record := models.Upload{
		CID:         cid,
		Uploader:    uploader,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	// The blob is already durably stored; a failed audit row must not
	// lose the content identifier.
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Warnf("failed to record upload %s: %v", cid, err)
	}

	return &UploadResult{
		CID:        cid,
		GatewayURL: s.ipfs.ResolveURL("ipfs://" + cid),
		Size:       int64(len(data)),
	}, nil
}

// Remove deletes a stored blob and its audit rows. Content a live product
// still references stays resolvable only until this is called; the catalog
// owner decides when an image is truly orphaned.
func (s *UploadService) Remove(ctx context.Context, cid string) error {
	if cid == "" {
		return errors.New("empty content identifier")
	}

	if err := s.store.Delete(cid); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("cid = ?", cid).Delete(&models.Upload{}).Error; err != nil {
		logger.Warnf("failed to remove upload records for %s: %v", cid, err)
	}
	return nil
}
