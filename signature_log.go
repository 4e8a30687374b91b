package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/eurotz/tzgate/pkg/hexbuf"
	"github.com/eurotz/tzgate/pkg/sign"
)

// SignaturePurpose says which endpoint produced a signature.
type SignaturePurpose string

const (
	PurposeRaw      SignaturePurpose = "raw"
	PurposeTransfer SignaturePurpose = "transfer"
	PurposeCLI      SignaturePurpose = "cli"
)

// SignatureRecord is the audit log entry stored for every signature issued.
type SignatureRecord struct {
	ID        string           `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Signer    string           `gorm:"column:signer;type:varchar(36);not null;index" json:"signer"`
	Kind      string           `gorm:"column:kind;type:varchar(16);not null" json:"kind"`
	Purpose   SignaturePurpose `gorm:"column:purpose;type:varchar(32);not null" json:"purpose"`
	Digest    string           `gorm:"column:digest;type:varchar(64);not null" json:"digest"`
	Signature string           `gorm:"column:signature;type:varchar(128);not null" json:"signature"`
	Payload   string           `gorm:"column:payload;type:text" json:"payload,omitempty"`
	Details   datatypes.JSON   `gorm:"column:details;type:text;not null" json:"details"`
	CreatedAt time.Time        `gorm:"column:created_at;index" json:"created_at"`
}

func (SignatureRecord) TableName() string {
	return "signature_records"
}

// SignatureStore persists and queries the signature audit log.
type SignatureStore interface {
	Store(ctx context.Context, record *SignatureRecord) error
	List(ctx context.Context, signer *string, purpose *SignaturePurpose, options *ListOptions) ([]SignatureRecord, error)
	Count(ctx context.Context, signer *string, purpose *SignaturePurpose) (int64, error)
}

type SignatureLogStore struct {
	db *gorm.DB
}

func NewSignatureLogStore(db *gorm.DB) *SignatureLogStore {
	return &SignatureLogStore{db: db}
}

// Store saves record, assigning an ID, empty details and creation time when
// missing.
func (s *SignatureLogStore) Store(ctx context.Context, record *SignatureRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if len(record.Details) == 0 {
		record.Details = datatypes.JSON("{}")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(record).Error
}

// List returns one page of records, newest first unless options say
// otherwise, optionally filtered by signer and purpose.
func (s *SignatureLogStore) List(ctx context.Context, signer *string, purpose *SignaturePurpose, options *ListOptions) ([]SignatureRecord, error) {
	query := s.db.WithContext(ctx).Scopes(options.scope("created_at", SortTypeDescending))
	query = filterSignatures(query, signer, purpose)

	var records []SignatureRecord
	err := query.Find(&records).Error
	return records, err
}

func (s *SignatureLogStore) Count(ctx context.Context, signer *string, purpose *SignaturePurpose) (int64, error) {
	query := filterSignatures(s.db.WithContext(ctx).Model(&SignatureRecord{}), signer, purpose)

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func filterSignatures(query *gorm.DB, signer *string, purpose *SignaturePurpose) *gorm.DB {
	if signer != nil {
		query = query.Where("signer = ?", *signer)
	}
	if purpose != nil {
		query = query.Where("purpose = ?", *purpose)
	}
	return query
}

// TransferDetails describes the transfer behind a PurposeTransfer signature.
type TransferDetails struct {
	Amount   string `json:"amount"`
	Nonce    uint64 `json:"nonce"`
	From     string `json:"from"`
	To       string `json:"to"`
	Contract string `json:"contract"`
}

// SignAndRecord signs payload with signer and stores the audit record along
// with details, when not nil. A signature that could not be recorded is not
// returned.
func SignAndRecord(ctx context.Context, store SignatureStore, signer sign.Signer, purpose SignaturePurpose, payload []byte, details any) (SignatureRecord, error) {
	detached, err := sign.SignBytes(signer, payload)
	if err != nil {
		return SignatureRecord{}, err
	}

	record := SignatureRecord{
		Signer:    signer.PublicKey().Address().String(),
		Kind:      detached.Encoded.Kind.String(),
		Purpose:   purpose,
		Digest:    hexbuf.Encode(detached.Digest),
		Signature: detached.Encoded.String(),
		Payload:   hexbuf.Encode(payload),
	}
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return SignatureRecord{}, fmt.Errorf("failed to marshal signature details: %w", err)
		}
		record.Details = data
	}
	if err := store.Store(ctx, &record); err != nil {
		return SignatureRecord{}, fmt.Errorf("failed to record signature: %w", err)
	}
	return record, nil
}
