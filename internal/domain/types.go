package domain

import "time"

type EquipmentStatus string

const (
	StatusActive         EquipmentStatus = "ACTIVE"
	StatusInRepair       EquipmentStatus = "IN_REPAIR"
	StatusDecommissioned EquipmentStatus = "DECOMMISSIONED"
)

type ZoneType string

const (
	ZoneReceipt  ZoneType = "RECEIPT"
	ZoneStorage  ZoneType = "STORAGE"
	ZoneShipping ZoneType = "SHIPPING"
	ZoneRepair   ZoneType = "REPAIR"
)

func (t ZoneType) Valid() bool {
	switch t {
	case ZoneReceipt, ZoneStorage, ZoneShipping, ZoneRepair:
		return true
	}
	return false
}

// Operation is the kind of custody change recorded by a ledger entry.
type Operation string

const (
	OpReceipt  Operation = "RECEIPT"
	OpPutaway  Operation = "PUTAWAY"
	OpMove     Operation = "MOVE"
	OpIssue    Operation = "ISSUE"
	OpReturn   Operation = "RETURN"
	OpRepair   Operation = "REPAIR"
	OpWriteOff Operation = "WRITE_OFF"
)

func (o Operation) Valid() bool {
	return o.DocumentType() != ""
}

// DocumentType returns the paperwork family an operation is filed under,
// or "" for an unknown operation.
func (o Operation) DocumentType() DocumentType {
	switch o {
	case OpReceipt:
		return DocReceipt
	case OpPutaway, OpMove, OpReturn, OpRepair:
		return DocMove
	case OpIssue:
		return DocIssue
	case OpWriteOff:
		return DocWriteOff
	}
	return ""
}

type DocumentType string

const (
	DocReceipt  DocumentType = "RECEIPT"
	DocMove     DocumentType = "MOVE"
	DocIssue    DocumentType = "ISSUE"
	DocWriteOff DocumentType = "WRITE_OFF"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocReceipt, DocMove, DocIssue, DocWriteOff:
		return true
	}
	return false
}

type DocumentState string

const (
	StateDrafted      DocumentState = "DRAFTED"
	StateMaterialized DocumentState = "MATERIALIZED"
	StateSigned       DocumentState = "SIGNED"
)

type Equipment struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	InventoryNumber string          `json:"inventory_number"`
	SerialNumber    string          `json:"serial_number"`
	LocationID      *int64          `json:"location_id,omitempty"`
	Status          EquipmentStatus `json:"status"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Warehouse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type Zone struct {
	ID          int64    `json:"id"`
	WarehouseID int64    `json:"warehouse_id"`
	Name        string   `json:"name"`
	Type        ZoneType `json:"type"`
}

// Transaction is a ledger entry. Rows are never updated once written.
type Transaction struct {
	ID          int64     `json:"id"`
	EquipmentID int64     `json:"equipment_id"`
	FromZoneID  *int64    `json:"from_zone_id,omitempty"`
	ToZoneID    *int64    `json:"to_zone_id,omitempty"`
	Operation   Operation `json:"operation"`
	UserID      int64     `json:"user_id"`
	RepairerID  *int64    `json:"repairer_id,omitempty"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

type DocumentTemplate struct {
	ID   int64        `json:"id"`
	Name string       `json:"name"`
	Type DocumentType `json:"type"`
}

type Document struct {
	ID              int64      `json:"id"`
	TemplateID      int64      `json:"template_id"`
	TransactionID   int64      `json:"transaction_id"`
	WarehouseID     int64      `json:"warehouse_id"`
	Content         string     `json:"content"`
	ArtifactPath    *string    `json:"artifact_path,omitempty"`
	GeneratedAt     *time.Time `json:"generated_at,omitempty"`
	Signed          bool       `json:"signed"`
	Signature       *string    `json:"signature,omitempty"`
	SignerPublicKey *string    `json:"signer_public_key,omitempty"`
	SignedBy        *int64     `json:"signed_by,omitempty"`
	SignedAt        *time.Time `json:"signed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (d *Document) State() DocumentState {
	switch {
	case d.Signed:
		return StateSigned
	case d.ArtifactPath != nil:
		return StateMaterialized
	default:
		return StateDrafted
	}
}

type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	PublicKey  string    `json:"public_key,omitempty"`
	PrivateKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) HasKeypair() bool {
	return u.PublicKey != "" && u.PrivateKey != ""
}
