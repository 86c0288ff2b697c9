package types

import "github.com/gofrs/uuid"

type (
	// RequestUIDType is the ad request unique identifier.
	RequestUIDType = uuid.UUID
	// VariantUIDType is the ad variant unique identifier.
	VariantUIDType = uuid.UUID
	// TenantUIDType is the owning tenant unique identifier.
	TenantUIDType = uuid.UUID
	// UserUIDType is the user unique identifier.
	UserUIDType = uuid.UUID
	// ProductUIDType is the product unique identifier.
	ProductUIDType = uuid.UUID
	// KnowledgeUIDType is the unique identifier of a knowledge item (best
	// practice or ad example).
	KnowledgeUIDType = uuid.UUID
)
